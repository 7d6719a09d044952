package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tunelink/internal/provider"
)

// Default upstream endpoints, overridable for tests.
const (
	defaultSpotifyTokenURL   = "https://accounts.spotify.com/api/token"
	defaultSpotifyProfileURL = "https://api.spotify.com/v1/me"
	defaultDeezerTokenURL    = "https://connect.deezer.com/oauth/access_token.php"
	defaultDeezerProfileURL  = "https://api.deezer.com/user/me"
)

// Config carries the proxy's listen address and provider secrets. Secrets
// live only here; they are never echoed in responses or logs.
type Config struct {
	Addr string

	SpotifyClientID    string
	SpotifyRedirectURI string
	DeezerAppID        string
	DeezerAppSecret    string

	SpotifyTokenURL   string
	SpotifyProfileURL string
	DeezerTokenURL    string
	DeezerProfileURL  string

	// Registry supplies provider shapes for profile normalization. It may
	// be shared with a config watcher that replaces entries live.
	Registry *provider.Registry

	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Server is the exchange proxy HTTP server.
type Server struct {
	cfg      Config
	log      *slog.Logger
	client   *http.Client
	registry *provider.Registry
	router   chi.Router
	metrics  *metrics
	profiles *profileCache
	server   *http.Server
}

// NewServer builds the proxy with its routes mounted.
func NewServer(cfg Config) *Server {
	if cfg.SpotifyTokenURL == "" {
		cfg.SpotifyTokenURL = defaultSpotifyTokenURL
	}
	if cfg.SpotifyProfileURL == "" {
		cfg.SpotifyProfileURL = defaultSpotifyProfileURL
	}
	if cfg.DeezerTokenURL == "" {
		cfg.DeezerTokenURL = defaultDeezerTokenURL
	}
	if cfg.DeezerProfileURL == "" {
		cfg.DeezerProfileURL = defaultDeezerProfileURL
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger,
		client:   cfg.HTTPClient,
		registry: cfg.Registry,
		metrics:  newMetrics(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.registry == nil {
		var configs []*provider.Config
		if cfg.SpotifyClientID != "" {
			configs = append(configs, provider.SpotifyConfig(cfg.SpotifyClientID, nil))
		}
		if cfg.DeezerAppID != "" {
			configs = append(configs, provider.DeezerConfig(cfg.DeezerAppID, nil))
		}
		s.registry, _ = provider.NewRegistry(configs...)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	s.profiles = newProfileCache(s.client, s.metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/api/spotify/token", s.handleSpotifyToken)
	r.Post("/api/deezer/token", s.handleDeezerToken)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("exchange proxy listening", "addr", s.cfg.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("exchange proxy shutting down")
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger logs one line per request with the chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		s.metrics.requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		s.metrics.requestDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())

		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}

// writeError writes the proxy's error shape: a JSON object with a single
// error field, mirrored on every failure path.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// providerConfig returns the registry's current shape for a provider,
// used for profile normalization on the proxy side.
func (s *Server) providerConfig(name string) (*provider.Config, error) {
	return s.registry.Get(name)
}
