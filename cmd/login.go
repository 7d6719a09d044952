package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"tunelink/internal/auth"
	"tunelink/internal/config"
	"tunelink/internal/events"
	"tunelink/internal/storage"
)

var loginPort int

func newLoginCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "login <provider>",
		Short: "Log in to a music provider",
		Long: `Log in to a music provider through its browser-based OAuth flow.

A browser window opens on the provider's consent page; the flow finishes
back in the terminal. Token exchange for providers that need a server-held
secret goes through the tunelink proxy (see 'tunelink serve').

Examples:
  tunelink login spotify
  tunelink login deezer
  tunelink login spotify --port 9999`,
		Args: cobra.ExactArgs(1),
		RunE: runLogin,
	}
	c.Flags().IntVar(&loginPort, "port", 0, "callback port override (default from config)")
	return c
}

func runLogin(cmd *cobra.Command, args []string) error {
	providerName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	coordinator, err := buildCoordinator(cfg, logger, providerName)
	if err != nil {
		return err
	}

	port := cfg.CallbackPort
	if loginPort != 0 {
		port = loginPort
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Opening %s consent page in your browser...\n", providerName)

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(cmd.ErrOrStderr()))
	spin.Suffix = " Waiting for the browser to finish..."
	spin.Start()

	session, err := coordinator.Login(cmd.Context(), port)
	spin.Stop()

	if session.Status() == auth.StatusFailed {
		return &AuthFailedError{Provider: providerName, Reason: session.Err}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s", providerName)
	if session.User != nil && session.User.DisplayName != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " as %s", session.User.DisplayName)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// buildCoordinator wires a coordinator for one configured provider.
func buildCoordinator(cfg *config.Config, logger *slog.Logger, providerName string) (*auth.Coordinator, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	providerCfg, err := registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	return auth.NewCoordinator(auth.CoordinatorConfig{
		Provider:  providerCfg,
		Durable:   store,
		Exchanger: auth.NewProxyExchanger(cfg.ProxyURL, nil),
		Emitter:   events.NewLogEmitter(logger),
	})
}
