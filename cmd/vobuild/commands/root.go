package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vobuild/vobuild/cmd/vobuild/internal/config"
)

var (
	// Global flags
	verbose     bool
	contextName string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vobuild",
	Short: "Build mobile apps by voice",
	Long: `vobuild - describe an app out loud and get an installable build.

A recording is transcribed (Groq first, OpenAI as fallback), turned into
app source code and an icon with Gemini, and packaged through an external
build service. Finished builds are archived locally and can be patched
afterwards with plain-language change requests.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/vobuild/
  Linux:   ~/.config/vobuild/
  Windows: %AppData%/vobuild/

Examples:
  # Configure credentials once
  vobuild config add-context dev
  vobuild config use-context dev

  # Build from the microphone, or from an existing recording
  vobuild build
  vobuild build --input prompt.wav

  # Patch an archived build and talk to the agent live
  vobuild patch 4f7c... -m "make the header blue"
  vobuild voice`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context to use (defaults to current)")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Commands that need config get a clear error via GetConfig();
		// commands like 'vobuild version' keep working.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// contextDir resolves the active context directory, honoring --context.
func contextDir() (string, error) {
	cfg, err := GetConfig()
	if err != nil {
		return "", err
	}
	return cfg.ResolveContext(contextName)
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
