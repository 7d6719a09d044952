package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"tunelink/internal/provider"
	"tunelink/pkg/oauth"
)

// ProfileFetcher loads the authenticated user's profile with an access
// token, used after a restart when a token pair survives but the profile
// does not.
type ProfileFetcher interface {
	Fetch(ctx context.Context, cfg *provider.Config, accessToken string) (*oauth.Profile, error)
}

// HTTPProfileFetcher fetches profiles directly from the provider's profile
// endpoint and normalizes the result. PKCE providers take the token as a
// bearer header; implicit providers take it as a query parameter.
type HTTPProfileFetcher struct {
	httpClient *http.Client
}

// NewHTTPProfileFetcher creates a fetcher; a nil client gets a default
// with a bounded timeout.
func NewHTTPProfileFetcher(httpClient *http.Client) *HTTPProfileFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPProfileFetcher{httpClient: httpClient}
}

// Fetch implements ProfileFetcher.
func (f *HTTPProfileFetcher) Fetch(ctx context.Context, cfg *provider.Config, accessToken string) (*oauth.Profile, error) {
	endpoint := cfg.ProfileEndpoint

	if cfg.Flow == provider.FlowImplicit {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid profile endpoint for %s: %w", cfg.Name, err)
		}
		q := u.Query()
		q.Set("access_token", accessToken)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Flow != provider.FlowImplicit {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d", resp.StatusCode)
	}

	return provider.NormalizeProfile(cfg.Name, body)
}
