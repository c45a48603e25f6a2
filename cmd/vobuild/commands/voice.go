package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vobuild/vobuild/cmd/vobuild/internal/config"
	"github.com/vobuild/vobuild/cmd/vobuild/internal/ui"
	"github.com/vobuild/vobuild/pkg/capture"
	"github.com/vobuild/vobuild/pkg/realtime"
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Live voice conversation with the agent",
	Long: `Open a realtime voice session: microphone audio streams to the agent
and the agent's replies stream back. Typed lines are sent as text messages.
Press Ctrl-C to hang up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := contextDir()
		if err != nil {
			return err
		}
		rtCfg, err := config.LoadService[config.RealtimeConfig](dir, config.ServiceRealtime)
		if err != nil {
			return err
		}
		if rtCfg.BrokerURL == "" {
			return fmt.Errorf("realtime.yaml has no broker_url")
		}

		audio, err := capture.System()
		if err != nil {
			return err
		}
		defer audio.Close()

		opts := []realtime.Option{
			realtime.WithAudio(audio),
			realtime.WithLogger(slog.Default()),
		}
		if rtCfg.AgentURL != "" {
			opts = append(opts, realtime.WithAgentURL(rtCfg.AgentURL))
		}
		if rtCfg.Model != "" {
			opts = append(opts, realtime.WithModel(rtCfg.Model))
		}
		if rtCfg.Voice != "" {
			opts = append(opts, realtime.WithVoice(rtCfg.Voice))
		}

		client := realtime.NewClient(rtCfg.BrokerURL, opts...)

		fmt.Println("Connecting...")
		session, err := client.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer session.Close()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		// Typed lines become text messages.
		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			close(lines)
		}()

		fmt.Println("Connected. Speak, or type a message and press Enter. Ctrl-C to hang up.")
		for {
			select {
			case <-interrupt:
				fmt.Println("\nHanging up.")
				return session.Close()

			case line, ok := <-lines:
				if !ok {
					return session.Close()
				}
				if line == "" {
					continue
				}
				if err := session.SendText(line); err != nil {
					fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				}

			case update, ok := <-session.Updates():
				if !ok {
					return nil
				}
				if update.Message != nil {
					fmt.Println(ui.Message(*update.Message))
				}
				if update.State == realtime.StateClosed {
					return nil
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(voiceCmd)
}
