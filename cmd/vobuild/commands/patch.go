package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vobuild/vobuild/cmd/vobuild/internal/config"
	"github.com/vobuild/vobuild/cmd/vobuild/internal/ui"
	"github.com/vobuild/vobuild/pkg/appgen"
	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/store"
)

var patchMessage string

var patchCmd = &cobra.Command{
	Use:   "patch <session-id>",
	Short: "Apply a change instruction to an archived build",
	Long: `Send a plain-language change request against the generated code of an
archived build. The code is replaced in full on success and left untouched
on failure; the exchange is appended to the session's transcript either way.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		if patchMessage == "" {
			return fmt.Errorf("a change instruction is required (-m)")
		}

		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		dir, err := contextDir()
		if err != nil {
			return err
		}
		providers, err := config.LoadService[config.ProvidersConfig](dir, config.ServiceProviders)
		if err != nil {
			return err
		}

		s, err := store.Open(store.Options{Dir: cfg.SessionsDir()})
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.GetBuild(sessionID)
		if err != nil {
			return err
		}
		if rec.Code == "" {
			return fmt.Errorf("session %s has no generated code to patch", sessionID)
		}

		generator, err := appgen.NewGenerator(cmd.Context(), providers.Gemini.APIKey)
		if err != nil {
			return err
		}
		generator.CodeModel = providers.Gemini.CodeModel

		patched, patchErr := generator.PatchCode(cmd.Context(), patchMessage, rec.Code)

		reply := "Applied: " + patchMessage
		if patchErr != nil {
			reply = "Failed: " + patchErr.Error()
		}
		if err := s.AppendMessages(sessionID,
			chat.New(chat.RoleUser, patchMessage),
			chat.New(chat.RoleAssistant, reply),
		); err != nil {
			return err
		}
		if patchErr != nil {
			return patchErr
		}

		rec.Code = patched
		if err := s.SaveBuild(rec); err != nil {
			return err
		}

		fmt.Printf("%s %s updated (%d characters of code)\n",
			ui.Stage(rec.Stage), rec.AppName, len(rec.Code))
		return nil
	},
}

func init() {
	patchCmd.Flags().StringVarP(&patchMessage, "message", "m", "", "change instruction to apply")
	rootCmd.AddCommand(patchCmd)
}
