// Package config loads tunelink configuration from a YAML file with
// environment overrides for everything secret-adjacent. Secrets are never
// written back to disk by this package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tunelink/internal/provider"
)

// envPrefix is the prefix for all tunelink environment variables.
const envPrefix = "TUNELINK_"

// SpotifySettings configures the Spotify provider.
type SpotifySettings struct {
	ClientID string   `yaml:"client_id"`
	Scopes   []string `yaml:"scopes"`
}

// DeezerSettings configures the Deezer provider. The app secret is
// deliberately absent: it is environment-only and used by the proxy alone.
type DeezerSettings struct {
	AppID string   `yaml:"app_id"`
	Perms []string `yaml:"perms"`
}

// Config is the full tunelink configuration.
type Config struct {
	// Listen is the exchange proxy's listen address.
	Listen string `yaml:"listen"`

	// CallbackPort is the fixed loopback port for the login callback.
	// Providers require the redirect URI to be registered, so this must
	// match the registration.
	CallbackPort int `yaml:"callback_port"`

	// ProxyURL is where the client reaches the exchange proxy.
	ProxyURL string `yaml:"proxy_url"`

	// StorageDir overrides the default token storage directory.
	StorageDir string `yaml:"storage_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Spotify SpotifySettings `yaml:"spotify"`
	Deezer  DeezerSettings  `yaml:"deezer"`
}

// Secrets are environment-only values. The Deezer app secret must never
// appear in the config file, so it has no YAML counterpart at all.
type Secrets struct {
	SpotifyClientID string `env:"SPOTIFY_CLIENT_ID"`
	DeezerAppID     string `env:"DEEZER_APP_ID"`
	DeezerAppSecret string `env:"DEEZER_APP_SECRET"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		CallbackPort: 4180,
		ProxyURL:     "http://localhost:8080",
		LogLevel:     "info",
		LogFormat:    "text",
		Spotify: SpotifySettings{
			Scopes: []string{"user-read-email", "user-read-private"},
		},
		Deezer: DeezerSettings{
			Perms: []string{"basic_access", "email"},
		},
	}
}

// DefaultPath returns the default config file location under the user's
// home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "tunelink", "config.yaml")
}

// Load reads the config file at path, if it exists, over the defaults and
// applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSecrets reads the environment-only secrets.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.ParseWithOptions(&s, env.Options{Prefix: envPrefix}); err != nil {
		return Secrets{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return s, nil
}

func (c *Config) applyEnvironment() error {
	secrets, err := LoadSecrets()
	if err != nil {
		return err
	}
	if secrets.SpotifyClientID != "" {
		c.Spotify.ClientID = secrets.SpotifyClientID
	}
	if secrets.DeezerAppID != "" {
		c.Deezer.AppID = secrets.DeezerAppID
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback_port %d", c.CallbackPort)
	}
	return nil
}

// Registry builds the provider registry from the configured providers.
// Providers without a client ID are left out rather than rejected, so a
// Spotify-only or Deezer-only setup works.
func (c *Config) Registry() (*provider.Registry, error) {
	var configs []*provider.Config
	if c.Spotify.ClientID != "" {
		configs = append(configs, provider.SpotifyConfig(c.Spotify.ClientID, c.Spotify.Scopes))
	}
	if c.Deezer.AppID != "" {
		configs = append(configs, provider.DeezerConfig(c.Deezer.AppID, c.Deezer.Perms))
	}
	return provider.NewRegistry(configs...)
}
