// Package storage provides the two storage scopes the auth flow needs:
// a short-term, process-local store for pending-request material and a
// durable store for token pairs that survive restarts.
package storage

// Short-term keys, written at login initiation and removed on completion
// or logout. PKCE flow only.
const (
	codeVerifierSuffix = "_code_verifier"
	authStateSuffix    = "_auth_state"
)

// Durable keys, written on successful exchange and removed on logout.
const (
	tokenSuffix        = "_token"
	refreshTokenSuffix = "_refresh_token"
)

// CodeVerifierKey returns the short-term key holding a provider's pending
// PKCE code verifier, e.g. "spotify_code_verifier".
func CodeVerifierKey(provider string) string {
	return provider + codeVerifierSuffix
}

// AuthStateKey returns the short-term key holding a provider's pending
// anti-forgery state, e.g. "spotify_auth_state".
func AuthStateKey(provider string) string {
	return provider + authStateSuffix
}

// TokenKey returns the durable key holding a provider's access token.
func TokenKey(provider string) string {
	return provider + tokenSuffix
}

// RefreshTokenKey returns the durable key holding a provider's refresh token.
func RefreshTokenKey(provider string) string {
	return provider + refreshTokenSuffix
}
