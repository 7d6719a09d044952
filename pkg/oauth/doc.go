// Package oauth provides the shared OAuth primitives used on both sides of
// the tunelink authentication flow: PKCE challenge generation, anti-forgery
// state generation, and the wire contract for messages ferried from the
// popup-side callback bridge back to the coordinator that opened the popup.
//
// # PKCE
//
// The PKCE helpers implement RFC 7636 with the S256 method only:
//
//	pkce, err := oauth.GeneratePKCE()
//	// pkce.CodeVerifier stays local, pkce.CodeChallenge goes in the
//	// authorization URL.
//
// # Messages
//
// A Message is what the bridge posts to its opener after the provider
// redirect. Message types are provider-tagged ("spotify_auth_success",
// "deezer_auth_error") so several coordinators can share one channel and
// discard messages that are not addressed to them.
package oauth
