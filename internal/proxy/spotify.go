package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tunelink/pkg/oauth"
)

// exchangeRequest is the wire shape clients POST to the token endpoints.
type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
}

// spotifyTokenResponse is the upstream token endpoint response.
type spotifyTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// handleSpotifyToken exchanges an authorization code plus PKCE verifier
// for tokens. The client secret model: Spotify's PKCE exchange needs the
// client ID and the original redirect URI, both of which live in proxy
// configuration, not in the request.
func (s *Server) handleSpotifyToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.CodeVerifier == "" {
		s.metrics.observeExchange("spotify", "bad_request")
		s.writeError(w, http.StatusBadRequest, "code and codeVerifier are required")
		return
	}

	if s.cfg.SpotifyClientID == "" || s.cfg.SpotifyRedirectURI == "" {
		s.log.Error("spotify exchange rejected", "reason", "missing client configuration")
		s.metrics.observeExchange("spotify", "config_error")
		s.writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {req.Code},
		"redirect_uri":  {s.cfg.SpotifyRedirectURI},
		"client_id":     {s.cfg.SpotifyClientID},
		"code_verifier": {req.CodeVerifier},
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		s.cfg.SpotifyTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.metrics.observeExchange("spotify", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}
	upstream.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(upstream)
	if err != nil {
		s.log.Error("spotify token exchange failed", "error", err)
		s.metrics.observeExchange("spotify", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.observeExchange("spotify", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn("spotify rejected token exchange", "status", resp.StatusCode)
		s.metrics.observeExchange("spotify", "rejected")
		s.writeError(w, resp.StatusCode, upstreamErrorMessage(body))
		return
	}

	var tokens spotifyTokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.AccessToken == "" {
		s.log.Error("spotify token response unreadable", "error", err)
		s.metrics.observeExchange("spotify", "error")
		s.writeError(w, http.StatusBadGateway, "Invalid token response from provider")
		return
	}

	result := &oauth.TokenResult{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	}

	// The exchange response embeds the user profile; a failed profile fetch
	// fails the whole exchange, with the provider's own status when it
	// rejected the fetch.
	if pcfg, err := s.providerConfig("spotify"); err == nil {
		profile, err := s.profiles.Fetch(r.Context(), pcfg, s.cfg.SpotifyProfileURL, tokens.AccessToken)
		if err != nil {
			s.log.Warn("spotify profile fetch failed", "error", err)
			s.metrics.observeExchange("spotify", "profile_error")
			s.writeError(w, profileStatus(err), "Failed to fetch user profile")
			return
		}
		result.User = profile
	}

	s.metrics.observeExchange("spotify", "success")
	s.writeJSON(w, result)
}

// upstreamErrorMessage extracts a displayable message from an OAuth error
// body: error_description first, then error, then the raw body.
func upstreamErrorMessage(body []byte) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "Token exchange failed"
}
