package provider

import (
	"fmt"
	"net/url"
	"strings"

	"tunelink/pkg/oauth"
)

// BuildAuthorizationURL constructs the provider authorization URL for one
// login attempt.
//
// For implicit providers the URL requests response_type=token and carries
// no state or challenge; the provider puts the token in the redirect
// fragment and there is nothing to prove later.
//
// For PKCE providers the URL requests response_type=code and carries the
// anti-forgery state plus the S256 code challenge.
func BuildAuthorizationURL(cfg *Config, redirectURI, state string, pkce *oauth.PKCEChallenge) (string, error) {
	u, err := url.Parse(cfg.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint for %s: %w", cfg.Name, err)
	}

	params := url.Values{}
	params.Set(cfg.clientIDParam, cfg.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set(cfg.scopeParam, strings.Join(cfg.Scopes, cfg.scopeSep))

	switch cfg.Flow {
	case FlowImplicit:
		params.Set("response_type", "token")

	case FlowPKCE:
		if state == "" {
			return "", fmt.Errorf("provider %s: state is required for the PKCE flow", cfg.Name)
		}
		if pkce == nil {
			return "", fmt.Errorf("provider %s: PKCE challenge is required", cfg.Name)
		}
		params.Set("response_type", "code")
		params.Set("state", state)
		params.Set("code_challenge_method", pkce.CodeChallengeMethod)
		params.Set("code_challenge", pkce.CodeChallenge)

	default:
		return "", fmt.Errorf("provider %s: unsupported flow %s", cfg.Name, cfg.Flow)
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}
