package oauth

import "strings"

// Message type suffixes. The full type is "<provider>_auth_success" or
// "<provider>_auth_error", e.g. "spotify_auth_success".
const (
	successSuffix = "_auth_success"
	errorSuffix   = "_auth_error"
)

// Message is the wire contract between the popup-side messaging bridge and
// the coordinator that opened the popup. It is a tagged union: success
// messages carry Code (and State for PKCE providers) or AccessToken (for
// implicit providers); error messages carry Error.
//
// The PKCE code verifier is deliberately absent from this type. The
// coordinator reads it from its own pending-request storage so that popup
// content can never substitute a verifier of its choosing.
type Message struct {
	// Type tags the message, e.g. "spotify_auth_success".
	Type string `json:"type"`

	// Origin is stamped by the bridge with the origin that produced the
	// message. Receivers must drop messages whose origin they do not trust
	// before looking at anything else.
	Origin string `json:"-"`

	// Code is the authorization code (success messages).
	Code string `json:"code,omitempty"`

	// State echoes the anti-forgery state parameter (PKCE success messages).
	State string `json:"state,omitempty"`

	// AccessToken is set when the implicit flow delivers the token directly
	// in the redirect fragment.
	AccessToken string `json:"access_token,omitempty"`

	// ExpiresIn is the token lifetime in seconds, when the provider
	// reported one (implicit flow).
	ExpiresIn int `json:"expires_in,omitempty"`

	// Error is the provider's error code (error messages).
	Error string `json:"error,omitempty"`
}

// SuccessType returns the success message type for a provider.
func SuccessType(provider string) string {
	return provider + successSuffix
}

// ErrorType returns the error message type for a provider.
func ErrorType(provider string) string {
	return provider + errorSuffix
}

// IsSuccess reports whether the message is a success message.
func (m *Message) IsSuccess() bool {
	return strings.HasSuffix(m.Type, successSuffix)
}

// IsError reports whether the message is an error message.
func (m *Message) IsError() bool {
	return strings.HasSuffix(m.Type, errorSuffix)
}

// Provider extracts the provider name from the message type.
// Returns "" if the type matches neither suffix.
func (m *Message) Provider() string {
	switch {
	case m.IsSuccess():
		return strings.TrimSuffix(m.Type, successSuffix)
	case m.IsError():
		return strings.TrimSuffix(m.Type, errorSuffix)
	default:
		return ""
	}
}
