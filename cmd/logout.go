package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout [provider]",
		Short: "Log out of a music provider",
		Long: `Log out of a music provider, removing its stored tokens.

Without an argument, all providers are logged out. Logout always succeeds,
including when nothing was logged in.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	names := registry.Names()
	if len(args) == 1 {
		if _, err := registry.Get(args[0]); err != nil {
			return err
		}
		names = []string{args[0]}
	}

	for _, name := range names {
		coordinator, err := buildCoordinator(cfg, logger, name)
		if err != nil {
			return err
		}
		coordinator.Logout()
		fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", name)
	}
	return nil
}
