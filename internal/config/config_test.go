package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 4180, cfg.CallbackPort)
	assert.Equal(t, "http://localhost:8080", cfg.ProxyURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Spotify.Scopes)
	assert.NotEmpty(t, cfg.Deezer.Perms)
	require.NoError(t, cfg.validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
callback_port: 5555
proxy_url: "https://proxy.example"
log_level: debug
log_format: json
spotify:
  client_id: file-client
  scopes: [user-read-email]
deezer:
  app_id: file-app
  perms: [basic_access]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 5555, cfg.CallbackPort)
	assert.Equal(t, "https://proxy.example", cfg.ProxyURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file-client", cfg.Spotify.ClientID)
	assert.Equal(t, []string{"user-read-email"}, cfg.Spotify.Scopes)
	assert.Equal(t, "file-app", cfg.Deezer.AppID)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [broken"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spotify:\n  client_id: file-client\n"), 0o600))

	t.Setenv("TUNELINK_SPOTIFY_CLIENT_ID", "env-client")
	t.Setenv("TUNELINK_DEEZER_APP_ID", "env-app")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.Spotify.ClientID)
	assert.Equal(t, "env-app", cfg.Deezer.AppID)
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("TUNELINK_DEEZER_APP_SECRET", "shh")

	secrets, err := LoadSecrets()
	require.NoError(t, err)
	assert.Equal(t, "shh", secrets.DeezerAppSecret)
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	cfg.Spotify.ClientID = "client"
	cfg.Deezer.AppID = "app"

	reg, err := cfg.Registry()
	require.NoError(t, err)

	spotify, err := reg.Get("spotify")
	require.NoError(t, err)
	assert.Equal(t, "client", spotify.ClientID)

	deezer, err := reg.Get("deezer")
	require.NoError(t, err)
	assert.Equal(t, "app", deezer.ClientID)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, level)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":8080\"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, slog.New(slog.NewTextHandler(os.Stderr, nil)), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":9090", cfg.Listen)
	case <-time.After(3 * time.Second):
		t.Fatal("config reload not observed")
	}

	cancel()
	<-done
}
