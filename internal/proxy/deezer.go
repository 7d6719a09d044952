package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"tunelink/pkg/oauth"
	tlstrings "tunelink/pkg/strings"
)

// deezerTokenResponse is Deezer's access_token.php response with
// output=json. Deezer issues no refresh tokens.
type deezerTokenResponse struct {
	AccessToken string `json:"access_token"`
	Expires     int    `json:"expires"`
}

// handleDeezerToken exchanges an authorization code for a Deezer access
// token. Deezer has no PKCE; the app secret held here is what
// authenticates the exchange.
func (s *Server) handleDeezerToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		s.metrics.observeExchange("deezer", "bad_request")
		s.writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	if s.cfg.DeezerAppID == "" || s.cfg.DeezerAppSecret == "" {
		s.log.Error("deezer exchange rejected", "reason", "missing app credentials")
		s.metrics.observeExchange("deezer", "config_error")
		s.writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	q := url.Values{
		"app_id": {s.cfg.DeezerAppID},
		"secret": {s.cfg.DeezerAppSecret},
		"code":   {req.Code},
		"output": {"json"},
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		s.cfg.DeezerTokenURL+"?"+q.Encode(), nil)
	if err != nil {
		s.metrics.observeExchange("deezer", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}

	resp, err := s.client.Do(upstream)
	if err != nil {
		s.log.Error("deezer token exchange failed", "error", err)
		s.metrics.observeExchange("deezer", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.observeExchange("deezer", "error")
		s.writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn("deezer rejected token exchange", "status", resp.StatusCode)
		s.metrics.observeExchange("deezer", "rejected")
		s.writeError(w, resp.StatusCode, upstreamErrorMessage(body))
		return
	}

	// Deezer answers an invalid code with 200 and a non-JSON body.
	var tokens deezerTokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.AccessToken == "" {
		s.log.Warn("deezer token response unreadable", "body_prefix", tlstrings.Truncate(string(body), 64))
		s.metrics.observeExchange("deezer", "rejected")
		s.writeError(w, http.StatusBadGateway, "Invalid token response from provider")
		return
	}

	result := &oauth.TokenResult{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.Expires,
		TokenType:   "Bearer",
	}

	if pcfg, err := s.providerConfig("deezer"); err == nil {
		profile, err := s.profiles.Fetch(r.Context(), pcfg, s.cfg.DeezerProfileURL, tokens.AccessToken)
		if err != nil {
			s.log.Warn("deezer profile fetch failed", "error", err)
			s.metrics.observeExchange("deezer", "profile_error")
			s.writeError(w, profileStatus(err), "Failed to fetch user profile")
			return
		}
		result.User = profile
	}

	s.metrics.observeExchange("deezer", "success")
	s.writeJSON(w, result)
}
