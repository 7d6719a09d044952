package auth

import (
	"context"
	"errors"
	"time"

	"tunelink/internal/events"
)

// Await processes bridged messages until the current attempt reaches a
// terminal state, the callback timeout expires, or the context is
// cancelled. Dropped messages do not terminate the wait.
func (c *Coordinator) Await(ctx context.Context, ch *MessageChannel) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	for {
		msg, err := ch.Receive(ctx)
		if err != nil {
			// Caller cancellation (an interrupt, typically) is not a
			// timeout and carries no timeout event.
			if errors.Is(err, context.Canceled) {
				c.fail("canceled")
				return c.Session(), err
			}
			c.emitter.Emit(events.AuthTimeout, c.cfg.Name, nil)
			c.fail("timeout")
			return c.Session(), err
		}

		c.HandleMessage(ctx, msg)

		c.mu.Lock()
		done := c.settled
		c.mu.Unlock()
		if done {
			return c.Session(), nil
		}
	}
}

// Login runs one complete interactive login: it starts a loopback bridge,
// binds the coordinator to its origin, opens the authorization popup, and
// waits for the outcome. bridgePort of 0 picks an ephemeral port, which
// only works with providers that accept dynamic redirect URIs.
func (c *Coordinator) Login(ctx context.Context, bridgePort int) (Session, error) {
	ch := NewMessageChannel()
	bridge := NewBridge(bridgePort, c.cfg, ch, c.emitter)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	redirectURI, err := bridge.Start(ctx)
	if err != nil {
		return c.Session(), err
	}
	defer func() {
		// Leave the terminal page a moment to render before the server
		// goes away.
		go func() {
			time.Sleep(500 * time.Millisecond)
			bridge.Stop()
		}()
	}()

	c.BindOrigin(bridge.Origin())

	if _, err := c.Initiate(ctx, redirectURI); err != nil {
		return c.Session(), err
	}

	return c.Await(ctx, ch)
}
