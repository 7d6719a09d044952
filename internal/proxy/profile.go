package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"tunelink/internal/provider"
	"tunelink/pkg/oauth"
)

const (
	profileCacheTTL     = 5 * time.Minute
	profileCacheCleanup = 10 * time.Minute
)

// profileCache fetches and normalizes user profiles with a short TTL cache
// in front. Concurrent fetches for the same token are collapsed into one
// upstream request.
type profileCache struct {
	httpClient *http.Client
	cache      *gocache.Cache
	group      singleflight.Group
	metrics    *metrics
}

func newProfileCache(httpClient *http.Client, m *metrics) *profileCache {
	return &profileCache{
		httpClient: httpClient,
		cache:      gocache.New(profileCacheTTL, profileCacheCleanup),
		metrics:    m,
	}
}

// cacheKey derives the cache key from a token without storing the token
// itself.
func cacheKey(providerName, accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return providerName + ":" + hex.EncodeToString(sum[:8])
}

// Fetch returns the profile behind an access token, from cache when fresh.
func (p *profileCache) Fetch(ctx context.Context, cfg *provider.Config, endpoint, accessToken string) (*oauth.Profile, error) {
	key := cacheKey(cfg.Name, accessToken)

	if cached, ok := p.cache.Get(key); ok {
		p.metrics.profileCacheHit.WithLabelValues(cfg.Name, "hit").Inc()
		return cached.(*oauth.Profile), nil
	}
	p.metrics.profileCacheHit.WithLabelValues(cfg.Name, "miss").Inc()

	result, err, _ := p.group.Do(key, func() (any, error) {
		profile, err := p.fetch(ctx, cfg, endpoint, accessToken)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, profile, gocache.DefaultExpiration)
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauth.Profile), nil
}

func (p *profileCache) fetch(ctx context.Context, cfg *provider.Config, endpoint, accessToken string) (*oauth.Profile, error) {
	if cfg.Flow == provider.FlowImplicit {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid profile endpoint: %w", err)
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

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &profileError{status: resp.StatusCode}
	}

	return provider.NormalizeProfile(cfg.Name, body)
}

// profileError is a profile fetch the provider answered with a non-success
// status.
type profileError struct {
	status int
}

func (e *profileError) Error() string {
	return fmt.Sprintf("profile fetch failed with status %d", e.status)
}

// profileStatus maps a profile fetch error to the status the proxy answers
// with: the upstream's own status when the provider rejected the fetch,
// 502 for everything else (network failure, unreadable body).
func profileStatus(err error) int {
	var pe *profileError
	if errors.As(err, &pe) {
		return pe.status
	}
	return http.StatusBadGateway
}
