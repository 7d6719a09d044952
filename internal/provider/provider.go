package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Flow identifies how a provider delivers its authorization result.
type Flow int

const (
	// FlowPKCE is the authorization-code flow with PKCE. The popup returns
	// a code that must be exchanged server-side with the proof verifier.
	FlowPKCE Flow = iota

	// FlowImplicit is the legacy implicit flow. The provider delivers the
	// token (or a code exchangeable without proof material) directly in
	// the redirect.
	FlowImplicit
)

// String returns the string representation of the flow.
func (f Flow) String() string {
	switch f {
	case FlowPKCE:
		return "pkce"
	case FlowImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// ParseFlow parses a flow name from configuration.
func ParseFlow(s string) (Flow, error) {
	switch s {
	case "pkce":
		return FlowPKCE, nil
	case "implicit":
		return FlowImplicit, nil
	default:
		return 0, fmt.Errorf("unknown flow %q (want \"pkce\" or \"implicit\")", s)
	}
}

// Config describes one identity provider. It is created at process start
// from configuration and never mutated afterwards.
type Config struct {
	// Name identifies the provider ("spotify", "deezer"). It tags message
	// types and storage keys.
	Name string

	// Flow selects how the authorization result comes back.
	Flow Flow

	// AuthorizationEndpoint is the provider's consent page URL.
	AuthorizationEndpoint string

	// ProfileEndpoint returns the authenticated user's profile.
	ProfileEndpoint string

	// TokenExchangePath is the path on the tunelink exchange proxy that
	// performs the secret-bearing token exchange for this provider.
	TokenExchangePath string

	// ClientID is the public client or app identifier sent in the
	// authorization request. Secrets never appear here.
	ClientID string

	// RedirectURI is where the provider sends the user back. Empty means
	// the bridge's ephemeral loopback address is used.
	RedirectURI string

	// Scopes are the requested permissions.
	Scopes []string

	// clientIDParam and scopeParam are the query parameter names the
	// provider expects; they differ between providers (Deezer uses
	// app_id/perms).
	clientIDParam string
	scopeParam    string
	scopeSep      string
}

// Registry holds the configured providers for one application instance.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Config
}

// NewRegistry creates a registry with the given provider configs.
func NewRegistry(configs ...*Config) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Config, len(configs))}
	for _, cfg := range configs {
		if err := validate(cfg); err != nil {
			return nil, err
		}
		if _, dup := r.providers[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", cfg.Name)
		}
		r.providers[cfg.Name] = cfg
	}
	return r, nil
}

func validate(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if cfg.AuthorizationEndpoint == "" {
		return fmt.Errorf("provider %q: authorization endpoint is required", cfg.Name)
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("provider %q: client ID is required", cfg.Name)
	}
	return nil
}

// Get returns the config for a provider name.
func (r *Registry) Get(name string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return cfg, nil
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps a provider config, used by configuration reload. The name
// must already be registered; new providers cannot appear at runtime.
func (r *Registry) Replace(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[cfg.Name]; !ok {
		return fmt.Errorf("unknown provider %q", cfg.Name)
	}
	r.providers[cfg.Name] = cfg
	return nil
}
