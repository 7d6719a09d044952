package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tunelink/internal/config"
)

// Exit codes for CLI commands, usable from scripts.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a command needed a login that is not there.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login flow itself failed.
	ExitCodeAuthFailed = 3
)

// AuthRequiredError means a command needs an authenticated provider and
// found none.
type AuthRequiredError struct {
	Provider string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("not logged in to %s, run 'tunelink login %s' first", e.Provider, e.Provider)
}

// AuthFailedError means the login flow reached a terminal failure.
type AuthFailedError struct {
	Provider string
	Reason   string
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("%s login failed: %s", e.Provider, e.Reason)
}

var cfgFile string

// rootCmd is the entry point when tunelink is called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tunelink",
	Short: "Link your music accounts from the terminal",
	Long: `tunelink links Spotify and Deezer accounts through browser-based
OAuth flows and keeps the resulting tokens on this machine. Secrets needed
for the token exchange stay in the companion proxy (tunelink serve).`,
	SilenceUsage: true,
}

// SetVersion injects the build version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and maps errors to exit codes.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tunelink version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error to its semantic exit code.
func getExitCode(err error) int {
	var authRequired *AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loadConfig reads the config file from --config or the default location.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// newLogger builds the command logger from configuration. CLI commands log
// to stderr so stdout stays parseable.
func newLogger(cfg *config.Config) *slog.Logger {
	return config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.config/tunelink/config.yaml)")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
