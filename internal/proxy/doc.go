// Package proxy implements the token exchange proxy: the only component
// that holds provider secrets. Clients send authorization codes (plus the
// PKCE verifier where the provider requires one) and receive a normalized
// token result; the provider client secret never leaves this process.
package proxy
