package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"tunelink/internal/auth"
	tlstrings "tunelink/pkg/strings"
)

var statusRefresh bool

func newStatusCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "status [provider]",
		Short: "Show linked provider accounts",
		Long: `Show the login state of each configured provider.

With --refresh, the stored token is used to fetch the current user profile,
which also verifies the token still works. Asking for a specific provider
that is not logged in exits with code 2.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatus,
	}
	c.Flags().BoolVar(&statusRefresh, "refresh", false, "fetch live profiles with the stored tokens")
	return c
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Provider", "Status", "User", "Refresh Token"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Status", Align: text.AlignCenter},
	})

	for _, name := range names {
		coordinator, err := buildCoordinator(cfg, logger, name)
		if err != nil {
			return err
		}

		session := coordinator.Session()
		if session.Status() != auth.StatusAuthenticated {
			if len(args) == 1 {
				return &AuthRequiredError{Provider: name}
			}
			tw.AppendRow(table.Row{name, session.Status(), "-", "-"})
			continue
		}

		user := "-"
		if statusRefresh {
			profile, err := coordinator.FetchUserProfile(cmd.Context(), "")
			if err != nil {
				tw.AppendRow(table.Row{name, "token invalid", "-", "-"})
				continue
			}
			user = profile.DisplayName
			if user == "" {
				user = profile.ID
			}
			user = tlstrings.Truncate(user, 32)
		}

		refresh := "no"
		if session.RefreshToken != "" {
			refresh = "yes"
		}
		tw.AppendRow(table.Row{name, session.Status(), user, refresh})
	}

	tw.Render()
	return nil
}
