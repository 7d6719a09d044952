// Package auth implements the opener side of the popup login flow: the
// per-provider Coordinator state machine, the loopback callback bridge that
// ferries the provider redirect back as a structured message, and the
// client for the secret-bearing token exchange proxy.
//
// # Flow
//
// A login runs: Initiate opens the provider consent page in a popup browser
// window; the provider redirects the popup to the bridge's loopback
// address; the bridge posts exactly one origin-stamped message to the
// coordinator's channel; the coordinator validates origin and anti-forgery
// state, reads the PKCE verifier from its own pending storage, drives the
// token exchange through the proxy, persists the resulting token pair
// durably, and settles into Authenticated or Failed.
//
// # State machine
//
// Idle -> Loading -> {Authenticated, Failed}. Authenticated and Failed
// return to Idle on Logout or ClearError. Message handling is serialized:
// a message is processed only after the previous handler's chain has
// completed or failed.
//
// # Capabilities
//
// The Coordinator touches the outside world only through injected
// capabilities (tab store, durable store, message channel, exchanger,
// profile fetcher, popup opener, event emitter), so the whole state machine
// is testable without a browser or network.
package auth
