package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tunelink/internal/browser"
	"tunelink/internal/events"
	"tunelink/internal/provider"
	"tunelink/internal/storage"
	"tunelink/pkg/oauth"
)

// Coordinator owns one provider's login session in the window that
// initiated the flow. It holds the pending anti-forgery material, receives
// the bridged message, validates it, drives the exchange, and reconciles
// the result into durable session state.
//
// There is no package-level singleton: a Coordinator is constructed once
// per application instance and passed to whatever needs it.
type Coordinator struct {
	cfg       *provider.Config
	tab       *storage.TabStore
	durable   storage.DurableStore
	exchanger Exchanger
	profiles  ProfileFetcher
	opener    browser.Opener
	emitter   events.Emitter

	// handleMu serializes message handling: a new message is processed
	// only after the previous handler's chain completed or failed.
	handleMu sync.Mutex

	// storeMu orders durable writes against Logout's durable clear. A
	// completion checks its generation and persists under this guard, so a
	// logout either invalidates the completion before the write or its
	// clear lands after the write finished.
	storeMu sync.Mutex

	mu      sync.Mutex
	origin  string
	session Session
	settled bool
	gen     uint64
}

// CoordinatorConfig configures a Coordinator. Provider, Durable, and
// Exchanger are required; other capabilities default to real
// implementations.
type CoordinatorConfig struct {
	Provider  *provider.Config
	TabStore  *storage.TabStore
	Durable   storage.DurableStore
	Exchanger Exchanger
	Profiles  ProfileFetcher
	Opener    browser.Opener
	Emitter   events.Emitter
}

// NewCoordinator creates a coordinator and restores its session from
// durable storage: a persisted token pair means authenticated, with the
// user profile absent until the next fetch.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Provider == nil {
		return nil, errors.New("provider config is required")
	}
	if cfg.Durable == nil {
		return nil, errors.New("durable store is required")
	}
	if cfg.Exchanger == nil {
		return nil, errors.New("exchanger is required")
	}

	c := &Coordinator{
		cfg:       cfg.Provider,
		tab:       cfg.TabStore,
		durable:   cfg.Durable,
		exchanger: cfg.Exchanger,
		profiles:  cfg.Profiles,
		opener:    cfg.Opener,
		emitter:   cfg.Emitter,
	}
	if c.tab == nil {
		c.tab = storage.NewTabStore()
	}
	if c.profiles == nil {
		c.profiles = NewHTTPProfileFetcher(nil)
	}
	if c.opener == nil {
		c.opener = browser.SystemOpener{}
	}
	if c.emitter == nil {
		c.emitter = events.Nop{}
	}

	if pair, ok := c.durable.TokenPair(c.cfg.Name); ok {
		c.session = Session{
			AccessToken:     pair.AccessToken,
			RefreshToken:    pair.RefreshToken,
			IsAuthenticated: true,
		}
	}

	return c, nil
}

// Provider returns the provider this coordinator serves.
func (c *Coordinator) Provider() *provider.Config {
	return c.cfg
}

// BindOrigin sets the only origin messages are accepted from. Until it is
// bound, every message is dropped.
func (c *Coordinator) BindOrigin(origin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = origin
}

// Session returns a snapshot of the current session state.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Initiate starts a login attempt: it generates and stores the pending
// proof material (PKCE flow only), builds the authorization URL, and opens
// the popup. The returned URL is informational; the popup is already open.
//
// A blocked popup is reported synchronously as *browser.PopupBlockedError
// and rolls back the pending material it just wrote. Concurrent initiations
// each open their own popup; the later pending request silently supersedes
// the earlier one, whose popup becomes orphaned and will fail state
// validation.
func (c *Coordinator) Initiate(ctx context.Context, redirectURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var state string
	var pkce *oauth.PKCEChallenge

	if c.cfg.Flow == provider.FlowPKCE {
		var err error
		state, err = oauth.GenerateState()
		if err != nil {
			return "", err
		}
		pkce, err = oauth.GeneratePKCE()
		if err != nil {
			return "", err
		}

		c.tab.Set(storage.AuthStateKey(c.cfg.Name), state)
		c.tab.Set(storage.CodeVerifierKey(c.cfg.Name), pkce.CodeVerifier)
	}

	authURL, err := provider.BuildAuthorizationURL(c.cfg, redirectURI, state, pkce)
	if err != nil {
		c.rollbackPending(state)
		return "", err
	}

	if err := c.opener.Open(authURL, browser.DefaultWindowOptions); err != nil {
		c.rollbackPending(state)
		c.emitter.Emit(events.AuthPopupBlocked, c.cfg.Name, nil)
		return "", err
	}

	c.mu.Lock()
	c.settled = false
	c.session.Err = ""
	c.mu.Unlock()

	c.emitter.Emit(events.AuthInitiated, c.cfg.Name, map[string]any{
		"flow":         c.cfg.Flow.String(),
		"popup_width":  browser.DefaultWindowOptions.Width,
		"popup_height": browser.DefaultWindowOptions.Height,
		"redirect_uri": redirectURI,
	})

	return authURL, nil
}

// rollbackPending removes pending material written by a failed initiation,
// but only if it still is the pending material (a concurrent initiation
// may have superseded it already).
func (c *Coordinator) rollbackPending(state string) {
	if state == "" {
		return
	}
	if cur, ok := c.tab.Get(storage.AuthStateKey(c.cfg.Name)); ok && cur == state {
		c.tab.Delete(storage.AuthStateKey(c.cfg.Name), storage.CodeVerifierKey(c.cfg.Name))
	}
}

// HandleMessage processes one bridged message. All failures after this
// point are captured into the session's Err field, never returned; origin
// or addressing mismatches are dropped silently with no state change.
func (c *Coordinator) HandleMessage(ctx context.Context, msg *oauth.Message) {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	c.mu.Lock()
	origin := c.origin
	c.mu.Unlock()

	// Mandatory security filter: nothing from an untrusted origin is ever
	// acted on, regardless of payload shape. An unbound origin fails
	// closed.
	if origin == "" || msg.Origin != origin {
		c.emitter.Emit(events.AuthMessageDropped, c.cfg.Name, map[string]any{
			"reason": "untrusted_origin",
		})
		return
	}

	if msg.Provider() != c.cfg.Name {
		c.emitter.Emit(events.AuthMessageDropped, c.cfg.Name, map[string]any{
			"reason": "type_mismatch",
			"type":   msg.Type,
		})
		return
	}

	if msg.IsError() {
		c.fail(msg.Error)
		c.emitter.Emit(events.AuthFailed, c.cfg.Name, map[string]any{"error": msg.Error})
		return
	}

	switch c.cfg.Flow {
	case provider.FlowImplicit:
		c.handleImplicitSuccess(ctx, msg)
	case provider.FlowPKCE:
		c.handlePKCESuccess(ctx, msg)
	}
}

// handlePKCESuccess validates anti-forgery state and proof material, then
// drives the code exchange.
func (c *Coordinator) handlePKCESuccess(ctx context.Context, msg *oauth.Message) {
	name := c.cfg.Name

	// Byte-for-byte state comparison against our own pending request. A
	// cleared or superseded pending request fails closed here, which also
	// covers duplicate success messages. The stale material is left in
	// place for diagnostics.
	pendingState, ok := c.tab.Get(storage.AuthStateKey(name))
	if !ok || pendingState != msg.State {
		c.emitter.Emit(events.AuthStateMismatch, name, map[string]any{
			"has_pending": ok,
		})
		c.fail("state mismatch")
		return
	}

	// The verifier comes from our own storage only, never from the
	// message; popup content cannot substitute its own.
	verifier, ok := c.tab.Get(storage.CodeVerifierKey(name))
	if !ok || verifier == "" {
		c.emitter.Emit(events.AuthVerifierMissing, name, nil)
		c.fail("code verifier not found")
		return
	}

	gen := c.beginLoading()
	c.emitter.Emit(events.AuthExchangeStarted, name, nil)

	result, err := c.exchanger.Exchange(ctx, c.cfg, ExchangeRequest{
		Code:         msg.Code,
		CodeVerifier: verifier,
	})
	if err != nil {
		c.emitter.Emit(events.AuthExchangeFailed, name, map[string]any{"error": err.Error()})
		c.failIfCurrent(gen, exchangeFailureReason(err))
		return
	}

	if !c.settle(gen, pendingState, result) {
		return
	}
	if result.User == nil {
		// The proxy embeds the profile; a missing one is fetched with the
		// fresh token. Failure here must not undo the login.
		c.FetchUserProfile(ctx, result.AccessToken)
	}
}

// handleImplicitSuccess handles the implicit provider: the token arrives
// directly in the message, or a code exchangeable without proof material.
func (c *Coordinator) handleImplicitSuccess(ctx context.Context, msg *oauth.Message) {
	name := c.cfg.Name

	switch {
	case msg.AccessToken != "":
		gen := c.beginLoading()
		ok, err := c.persistIfCurrent(gen, "", storage.TokenPair{AccessToken: msg.AccessToken})
		if !ok {
			c.emitter.Emit(events.AuthMessageDropped, name, map[string]any{
				"reason": "stale_fragment_token",
			})
			return
		}
		if err != nil {
			c.failIfCurrent(gen, fmt.Sprintf("failed to persist token: %v", err))
			return
		}
		c.mu.Lock()
		current := c.gen == gen
		if current {
			c.session.AccessToken = msg.AccessToken
			c.session.RefreshToken = ""
			c.session.IsAuthenticated = true
			c.session.IsLoading = false
			c.session.Err = ""
			c.settled = true
		}
		c.mu.Unlock()
		if !current {
			return
		}
		c.emitter.Emit(events.AuthCompleted, name, map[string]any{"via": "fragment_token"})
		c.FetchUserProfile(ctx, msg.AccessToken)

	case msg.Code != "":
		gen := c.beginLoading()
		c.emitter.Emit(events.AuthExchangeStarted, name, nil)

		result, err := c.exchanger.Exchange(ctx, c.cfg, ExchangeRequest{Code: msg.Code})
		if err != nil {
			c.emitter.Emit(events.AuthExchangeFailed, name, map[string]any{"error": err.Error()})
			c.failIfCurrent(gen, exchangeFailureReason(err))
			return
		}

		if !c.settle(gen, "", result) {
			return
		}
		if result.User == nil {
			c.FetchUserProfile(ctx, result.AccessToken)
		}

	default:
		c.fail("missing token and code in success message")
	}
}

// beginLoading transitions to Loading and returns the generation to guard
// the eventual completion against logouts that happen in between.
func (c *Coordinator) beginLoading() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.IsLoading = true
	c.session.Err = ""
	return c.gen
}

// pendingStillMatches reports whether an async completion still belongs to
// the current world: same generation and, when a pending state was
// captured, the same pending request.
func (c *Coordinator) pendingStillMatches(gen uint64, pendingState string) bool {
	c.mu.Lock()
	current := c.gen
	c.mu.Unlock()
	if current != gen {
		return false
	}
	if pendingState == "" {
		return true
	}
	cur, ok := c.tab.Get(storage.AuthStateKey(c.cfg.Name))
	return ok && cur == pendingState
}

// persistIfCurrent writes the token pair to durable storage unless the
// attempt went stale. The generation check and the write share storeMu with
// Logout's durable clear, so a completion racing a logout either fails the
// check before writing or finishes its write before the clear lands; durable
// storage is empty once Logout returns either way. The first result reports
// whether the attempt was still current; the error is the store's.
func (c *Coordinator) persistIfCurrent(gen uint64, pendingState string, pair storage.TokenPair) (bool, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if !c.pendingStillMatches(gen, pendingState) {
		return false, nil
	}
	return true, c.durable.SetTokenPair(c.cfg.Name, pair)
}

// settle persists the exchange result and transitions to Authenticated.
// Durable storage receives both tokens atomically as a pair; on persistence
// failure the session fails and durable storage keeps its previous value. A
// result invalidated by a logout or superseding initiation is discarded
// without touching durable storage. Reports whether the session settled.
func (c *Coordinator) settle(gen uint64, pendingState string, result *oauth.TokenResult) bool {
	name := c.cfg.Name

	ok, err := c.persistIfCurrent(gen, pendingState, storage.TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
	if !ok {
		c.emitter.Emit(events.AuthMessageDropped, name, map[string]any{
			"reason": "stale_exchange_result",
		})
		return false
	}
	if err != nil {
		c.failIfCurrent(gen, fmt.Sprintf("failed to persist tokens: %v", err))
		return false
	}

	if pendingState != "" {
		c.tab.Delete(storage.AuthStateKey(name), storage.CodeVerifierKey(name))
	}

	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.session.AccessToken = result.AccessToken
		c.session.RefreshToken = result.RefreshToken
		c.session.User = result.User
		c.session.IsAuthenticated = true
		c.session.IsLoading = false
		c.session.Err = ""
		c.settled = true
	}
	c.mu.Unlock()
	if !current {
		return false
	}

	c.emitter.Emit(events.AuthExchangeSucceeded, name, map[string]any{
		"has_refresh_token": result.RefreshToken != "",
		"has_profile":       result.User != nil,
	})
	c.emitter.Emit(events.AuthCompleted, name, nil)
	return true
}

// FetchUserProfile loads the user profile with an access token, used on
// demand and after restarts when only the token pair survived. A failure
// sets the session error but never revokes an already-valid token.
func (c *Coordinator) FetchUserProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	if accessToken == "" {
		c.mu.Lock()
		accessToken = c.session.AccessToken
		c.mu.Unlock()
	}
	if accessToken == "" {
		return nil, errors.New("no access token available")
	}

	gen := c.beginLoading()

	profile, err := c.profiles.Fetch(ctx, c.cfg, accessToken)
	if err != nil {
		c.emitter.Emit(events.AuthProfileFailed, c.cfg.Name, map[string]any{"error": err.Error()})
		c.failIfCurrent(gen, fmt.Sprintf("failed to fetch user profile: %v", err))
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.session.User = profile
		c.session.IsAuthenticated = true
		c.session.IsLoading = false
		c.session.Err = ""
	}
	c.mu.Unlock()

	c.emitter.Emit(events.AuthProfileFetched, c.cfg.Name, map[string]any{
		"user_id": profile.ID,
	})
	return profile, nil
}

// Logout unconditionally clears durable tokens, pending material, and the
// in-memory session, from any state. It never reports an error to the
// caller; an in-flight exchange completing afterwards is discarded by the
// generation guard.
func (c *Coordinator) Logout() {
	name := c.cfg.Name

	c.mu.Lock()
	c.gen++
	c.session = Session{}
	c.settled = false
	c.mu.Unlock()

	c.tab.Delete(storage.AuthStateKey(name), storage.CodeVerifierKey(name))

	// The clear waits out any persist already in flight; that persist's
	// session update then fails the generation check.
	c.storeMu.Lock()
	err := c.durable.DeleteTokenPair(name)
	c.storeMu.Unlock()
	if err != nil {
		// Logout still succeeds from the caller's view; the emitter keeps
		// the trace.
		c.emitter.Emit(events.AuthFailed, name, map[string]any{
			"error": fmt.Sprintf("failed to clear durable tokens: %v", err),
		})
	}

	c.emitter.Emit(events.AuthLoggedOut, name, nil)
}

// ClearError drops the session error, returning a Failed session to Idle.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Err = ""
	c.settled = false
}

// fail records a terminal failure for the current attempt.
func (c *Coordinator) fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Err = reason
	c.session.IsLoading = false
	c.settled = true
}

// failIfCurrent records a failure unless a logout invalidated the attempt
// while its async work was in flight.
func (c *Coordinator) failIfCurrent(gen uint64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.session.Err = reason
	c.session.IsLoading = false
	c.settled = true
}

// exchangeFailureReason maps an exchange error to the session error value.
func exchangeFailureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
