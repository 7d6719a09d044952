package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tunelink/internal/config"
	"tunelink/internal/proxy"
)

var serveListen string

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the token exchange proxy",
		Long: `Run the token exchange proxy.

The proxy is the only component that holds provider secrets. Secrets are
read from the environment (TUNELINK_SPOTIFY_CLIENT_ID, TUNELINK_DEEZER_APP_ID,
TUNELINK_DEEZER_APP_SECRET), with a .env file in the working directory
honored as a convenience. The config file is watched and provider settings
are picked up without a restart.`,
		RunE: runServe,
	}
	c.Flags().StringVar(&serveListen, "listen", "", "listen address override (default from config)")
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; absence is the normal production case.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	listen := cfg.Listen
	if serveListen != "" {
		listen = serveListen
	}

	server := proxy.NewServer(proxy.Config{
		Addr:               listen,
		SpotifyClientID:    cfg.Spotify.ClientID,
		SpotifyRedirectURI: spotifyRedirectURI(cfg),
		DeezerAppID:        cfg.Deezer.AppID,
		DeezerAppSecret:    secrets.DeezerAppSecret,
		Registry:           registry,
		Logger:             logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hot-reload provider settings into the shared registry. Listen
	// address and secrets still need a restart.
	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	go func() {
		err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
			nextRegistry, err := next.Registry()
			if err != nil {
				logger.Error("reloaded config has invalid providers", "error", err)
				return
			}
			for _, name := range nextRegistry.Names() {
				providerCfg, err := nextRegistry.Get(name)
				if err != nil {
					continue
				}
				if err := registry.Replace(providerCfg); err != nil {
					logger.Error("failed to apply reloaded provider", "provider", name, "error", err)
				}
			}
		})
		if err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// spotifyRedirectURI is the redirect URI registered with Spotify, derived
// from the client callback port. The exchange must present the same URI
// the authorization request used.
func spotifyRedirectURI(cfg *config.Config) string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", cfg.CallbackPort)
}
