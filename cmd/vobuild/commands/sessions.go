package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vobuild/vobuild/cmd/vobuild/internal/ui"
	"github.com/vobuild/vobuild/pkg/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and inspect archived builds",
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archived builds, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openArchive()
		if err != nil {
			return err
		}
		defer s.Close()

		records, err := s.ListBuilds()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No archived builds. Run 'vobuild build' to create one.")
			return nil
		}
		for _, rec := range records {
			fmt.Println(ui.BuildRow(rec))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one build with its log and transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openArchive()
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.GetBuild(args[0])
		if err != nil {
			return err
		}

		fmt.Println(ui.BuildRow(rec))
		if rec.Prompt != "" {
			fmt.Printf("  prompt: %s\n", rec.Prompt)
		}
		if rec.ArtifactURL != "" {
			fmt.Printf("  artifact: %s\n", rec.ArtifactURL)
		}
		if rec.Error != "" {
			fmt.Printf("  error: %s\n", rec.Error)
		}
		for _, line := range rec.Log {
			fmt.Println(ui.LogLine(line))
		}

		msgs, err := s.Transcript(rec.ID)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			fmt.Println("\nPatch history:")
			for _, msg := range msgs {
				fmt.Println("  " + ui.Message(msg))
			}
		}
		return nil
	},
}

func openArchive() (*store.Store, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(store.Options{Dir: cfg.SessionsDir()})
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
