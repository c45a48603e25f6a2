package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vobuild/vobuild/cmd/vobuild/internal/config"
	"github.com/vobuild/vobuild/cmd/vobuild/internal/ui"
	"github.com/vobuild/vobuild/pkg/appgen"
	"github.com/vobuild/vobuild/pkg/capture"
	"github.com/vobuild/vobuild/pkg/pipeline"
	"github.com/vobuild/vobuild/pkg/store"
	"github.com/vobuild/vobuild/pkg/transcribe"
)

var buildInput string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Record a voice prompt and build an app from it",
	Long: `Record a description of the app from the microphone (or read it from
a WAV file with --input), then run the full pipeline: transcription, code
generation, icon generation, and packaging. The finished build is archived
and can be patched later with 'vobuild patch'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		wav, err := obtainRecording()
		if err != nil {
			return err
		}

		coordinator, err := newCoordinator(ctx)
		if err != nil {
			return err
		}
		defer coordinator.Close()

		updates, cancel := coordinator.Subscribe()
		defer cancel()
		go func() {
			printed := 0
			for snap := range updates {
				for ; printed < len(snap.Log); printed++ {
					fmt.Println(ui.LogLine(snap.Log[printed]))
				}
			}
		}()

		buildErr := coordinator.ProcessRecording(ctx, wav)

		snap := coordinator.Snapshot()
		fmt.Println()
		fmt.Print(ui.Snapshot(snap))

		if err := archiveBuild(snap); err != nil {
			slog.Warn("failed to archive build", "err", err)
		}

		return buildErr
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildInput, "input", "i", "", "WAV file to use instead of the microphone")
	rootCmd.AddCommand(buildCmd)
}

// obtainRecording reads the --input file or records from the microphone
// until Enter is pressed.
func obtainRecording() ([]byte, error) {
	if buildInput != "" {
		wav, err := os.ReadFile(buildInput)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return wav, nil
	}

	audio, err := capture.System()
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	rec := capture.NewRecorder(audio)
	if err := rec.Start(); err != nil {
		return nil, err
	}

	fmt.Println("Recording... describe your app, then press Enter to stop.")
	bufio.NewReader(os.Stdin).ReadString('\n')

	wav, err := rec.Stop()
	if err != nil {
		return nil, err
	}
	fmt.Printf("Captured %d bytes of audio.\n\n", len(wav))
	return wav, nil
}

// newCoordinator wires the pipeline from the active context's service
// configs.
func newCoordinator(ctx context.Context) (*pipeline.Coordinator, error) {
	dir, err := contextDir()
	if err != nil {
		return nil, err
	}

	providers, err := config.LoadService[config.ProvidersConfig](dir, config.ServiceProviders)
	if err != nil {
		return nil, err
	}

	gateway := &transcribe.Gateway{
		Primary: &transcribe.Groq{
			APIKey:   providers.Groq.APIKey,
			Model:    providers.Groq.Model,
			Language: providers.Groq.Language,
		},
		Logger: slog.Default(),
	}
	if providers.OpenAI.APIKey != "" {
		gateway.Secondary = &transcribe.OpenAI{
			APIKey:   providers.OpenAI.APIKey,
			Language: providers.OpenAI.Language,
		}
	}

	generator, err := appgen.NewGenerator(ctx, providers.Gemini.APIKey)
	if err != nil {
		return nil, err
	}
	generator.CodeModel = providers.Gemini.CodeModel
	generator.IconModel = providers.Gemini.IconModel

	packager := &appgen.Packager{Logger: slog.Default()}
	if pkgCfg, err := config.LoadService[config.PackagerConfig](dir, config.ServicePackager); err == nil {
		packager.Endpoint = pkgCfg.Endpoint
	}

	return pipeline.New(pipeline.Config{
		Transcriber: gateway,
		Coder:       generator,
		IconMaker:   generator,
		Packager:    packager,
		Notifier:    terminalNotifier{},
		Logger:      slog.Default(),
	})
}

// terminalNotifier prints user-facing failure messages to stderr.
type terminalNotifier struct{}

func (terminalNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

// archiveBuild persists a finished build to the session archive.
func archiveBuild(snap pipeline.Snapshot) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	s, err := store.Open(store.Options{Dir: cfg.SessionsDir()})
	if err != nil {
		return err
	}
	defer s.Close()

	rec := &store.BuildRecord{
		ID:      snap.ID,
		Stage:   snap.Stage,
		Prompt:  snap.RecognizedText,
		AppName: snap.AppName,
		Code:    snap.Code,
		IconRef: snap.IconRef,
		Log:     snap.Log,
	}
	if snap.Artifact != nil {
		rec.ArtifactURL = snap.Artifact.URL
	}
	if snap.Err != nil {
		rec.Error = snap.Err.Message
	}
	return s.SaveBuild(rec)
}
