package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunelink/internal/browser"
	"tunelink/internal/events"
	"tunelink/internal/provider"
	"tunelink/internal/storage"
	"tunelink/pkg/oauth"
)

// popupOpener stands in for the user's browser: instead of opening a
// window it immediately follows the redirect the provider would issue.
type popupOpener struct {
	t        *testing.T
	redirect func(authURL *url.URL) url.Values
}

func (o *popupOpener) Open(rawURL string, _ browser.WindowOptions) error {
	authURL, err := url.Parse(rawURL)
	require.NoError(o.t, err)

	redirectURI := authURL.Query().Get("redirect_uri")
	require.NotEmpty(o.t, redirectURI)

	params := o.redirect(authURL)
	go func() {
		resp, err := http.Get(redirectURI + "?" + params.Encode())
		if err == nil {
			resp.Body.Close()
		}
	}()
	return nil
}

func TestLoginEndToEndPKCE(t *testing.T) {
	cfg := provider.SpotifyConfig("client-id", nil)

	var gotVerifier, wantChallenge string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, cfg.TokenExchangePath, r.URL.Path)

		var req ExchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "e2e-code", req.Code)
		gotVerifier = req.CodeVerifier

		json.NewEncoder(w).Encode(oauth.TokenResult{
			AccessToken:  "e2e-access",
			RefreshToken: "e2e-refresh",
			User:         &oauth.Profile{ID: "user-1", DisplayName: "E2E"},
		})
	}))
	defer proxy.Close()

	dir := t.TempDir()
	durable, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	opener := &popupOpener{
		t: t,
		redirect: func(authURL *url.URL) url.Values {
			q := authURL.Query()
			wantChallenge = q.Get("code_challenge")
			return url.Values{
				"code":  {"e2e-code"},
				"state": {q.Get("state")},
			}
		},
	}

	c, err := NewCoordinator(CoordinatorConfig{
		Provider:  cfg,
		Durable:   durable,
		Exchanger: NewProxyExchanger(proxy.URL, nil),
		Opener:    opener,
		Emitter:   events.NewRecorder(),
	})
	require.NoError(t, err)

	session, err := c.Login(context.Background(), 0)
	require.NoError(t, err)

	require.Equal(t, StatusAuthenticated, session.Status())
	assert.Equal(t, "e2e-access", session.AccessToken)
	assert.Equal(t, "e2e-refresh", session.RefreshToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "user-1", session.User.ID)

	// The proxy saw the verifier matching the challenge in the popup URL.
	assert.Equal(t, wantChallenge, oauth.GenerateCodeChallenge(gotVerifier))

	// Tokens survive a restart through the file store.
	reopened, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	pair, ok := reopened.TokenPair("spotify")
	require.True(t, ok)
	assert.Equal(t, "e2e-access", pair.AccessToken)
	assert.Equal(t, "e2e-refresh", pair.RefreshToken)
}

func TestLoginEndToEndImplicit(t *testing.T) {
	cfg := provider.DeezerConfig("app-id", nil)

	profileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "e2e-token", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"id":42,"name":"Mel"}`))
	}))
	defer profileSrv.Close()
	cfg.ProfileEndpoint = profileSrv.URL

	opener := &popupOpener{
		t: t,
		redirect: func(authURL *url.URL) url.Values {
			require.Equal(t, "token", authURL.Query().Get("response_type"))
			return url.Values{
				"access_token": {"e2e-token"},
				"expires_in":   {"3600"},
			}
		},
	}

	durable := storage.NewMemoryStore()
	c, err := NewCoordinator(CoordinatorConfig{
		Provider:  cfg,
		Durable:   durable,
		Exchanger: NewProxyExchanger("http://127.0.0.1:0", nil),
		Opener:    opener,
	})
	require.NoError(t, err)

	session, err := c.Login(context.Background(), 0)
	require.NoError(t, err)

	require.Equal(t, StatusAuthenticated, session.Status())
	assert.Equal(t, "e2e-token", session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "42", session.User.ID)
	assert.Equal(t, "Mel", session.User.DisplayName)

	pair, ok := durable.TokenPair("deezer")
	require.True(t, ok)
	assert.Equal(t, "e2e-token", pair.AccessToken)
}

func TestLoginExchangeRejected(t *testing.T) {
	cfg := provider.SpotifyConfig("client-id", nil)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_grant"))
	}))
	defer proxy.Close()

	durable := storage.NewMemoryStore()
	opener := &popupOpener{
		t: t,
		redirect: func(authURL *url.URL) url.Values {
			return url.Values{
				"code":  {"e2e-code"},
				"state": {authURL.Query().Get("state")},
			}
		},
	}

	c, err := NewCoordinator(CoordinatorConfig{
		Provider:  cfg,
		Durable:   durable,
		Exchanger: NewProxyExchanger(proxy.URL, nil),
		Opener:    opener,
	})
	require.NoError(t, err)

	session, err := c.Login(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, session.Status())
	assert.False(t, session.IsAuthenticated)
	assert.Contains(t, session.Err, "invalid_grant")

	_, ok := durable.TokenPair("spotify")
	assert.False(t, ok, "a rejected exchange must leave durable storage untouched")
}

func TestLoginDeniedByUser(t *testing.T) {
	cfg := provider.SpotifyConfig("client-id", nil)

	opener := &popupOpener{
		t: t,
		redirect: func(*url.URL) url.Values {
			return url.Values{
				"error":             {"access_denied"},
				"error_description": {"User denied access"},
			}
		},
	}

	exchanger := &stubExchanger{}
	c, err := NewCoordinator(CoordinatorConfig{
		Provider:  cfg,
		Durable:   storage.NewMemoryStore(),
		Exchanger: exchanger,
		Opener:    opener,
	})
	require.NoError(t, err)

	session, err := c.Login(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, session.Status())
	assert.Equal(t, "access_denied: User denied access", session.Err)
	assert.Zero(t, exchanger.callCount())
}
