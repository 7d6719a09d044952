package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunelink/internal/provider"
	"tunelink/pkg/oauth"
)

func TestProxyExchangerSuccess(t *testing.T) {
	cfg := provider.SpotifyConfig("client-id", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, cfg.TokenExchangePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ExchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "code-1", req.Code)
		assert.Equal(t, "verifier-1", req.CodeVerifier)

		json.NewEncoder(w).Encode(oauth.TokenResult{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    3600,
			TokenType:    "Bearer",
			User:         &oauth.Profile{ID: "user-1"},
		})
	}))
	defer srv.Close()

	ex := NewProxyExchanger(srv.URL, nil)
	result, err := ex.Exchange(context.Background(), cfg, ExchangeRequest{
		Code:         "code-1",
		CodeVerifier: "verifier-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, "refresh-token", result.RefreshToken)
	require.NotNil(t, result.User)
	assert.Equal(t, "user-1", result.User.ID)
}

func TestProxyExchangerErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "json error body",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant"}`,
			wantMessage: "invalid_grant",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantMessage: "",
		},
	}

	cfg := provider.SpotifyConfig("client-id", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ex := NewProxyExchanger(srv.URL, nil)
			_, err := ex.Exchange(context.Background(), cfg, ExchangeRequest{Code: "code-1"})

			var exErr *ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.status, exErr.Status)
			assert.Equal(t, tt.wantMessage, exErr.Message)
		})
	}
}

func TestProxyExchangerMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	ex := NewProxyExchanger(srv.URL, nil)
	_, err := ex.Exchange(context.Background(), provider.SpotifyConfig("client-id", nil), ExchangeRequest{Code: "code-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing access token")
}

func TestProxyExchangerNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	ex := NewProxyExchanger(srv.URL, nil)
	_, err := ex.Exchange(context.Background(), provider.SpotifyConfig("client-id", nil), ExchangeRequest{Code: "code-1"})
	require.Error(t, err)

	var exErr *ExchangeError
	assert.False(t, errors.As(err, &exErr), "network failures are not exchange errors")
}

func TestHTTPProfileFetcherBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"spotify-user","email":"u@example.com","display_name":"U","images":[{"url":"http://img"}],"country":"DE"}`))
	}))
	defer srv.Close()

	cfg := provider.SpotifyConfig("client-id", nil)
	cfg.ProfileEndpoint = srv.URL

	profile, err := NewHTTPProfileFetcher(nil).Fetch(context.Background(), cfg, "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "spotify-user", profile.ID)
	assert.Equal(t, "u@example.com", profile.Email)
	assert.Equal(t, "http://img", profile.AvatarURL)
}

func TestHTTPProfileFetcherQueryToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":42,"name":"Mel","email":"m@example.com","picture_medium":"http://pic","country":"FR"}`))
	}))
	defer srv.Close()

	cfg := provider.DeezerConfig("app-id", nil)
	cfg.ProfileEndpoint = srv.URL

	profile, err := NewHTTPProfileFetcher(nil).Fetch(context.Background(), cfg, "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "Mel", profile.DisplayName)
	assert.Equal(t, "http://pic", profile.AvatarURL)
}

func TestHTTPProfileFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := provider.SpotifyConfig("client-id", nil)
	cfg.ProfileEndpoint = srv.URL

	_, err := NewHTTPProfileFetcher(nil).Fetch(context.Background(), cfg, "tok-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
