package auth

import (
	"context"

	"tunelink/pkg/oauth"
)

// Poster is the bridge-facing side of a message channel.
type Poster interface {
	// Post delivers a message without blocking. Messages posted when no
	// receiver is draining the channel may be dropped once the buffer
	// fills; the flow treats that like a popup that never reported back.
	Post(msg *oauth.Message)
}

// MessageChannel connects a bridge to the coordinator that opened the
// popup, standing in for the window messaging surface between a popup and
// its opener.
type MessageChannel struct {
	ch chan *oauth.Message
}

// NewMessageChannel creates a channel with a small buffer so a popup can
// report back even if the coordinator is mid-handling.
func NewMessageChannel() *MessageChannel {
	return &MessageChannel{ch: make(chan *oauth.Message, 4)}
}

// Post implements Poster.
func (c *MessageChannel) Post(msg *oauth.Message) {
	select {
	case c.ch <- msg:
	default:
	}
}

// Receive blocks until a message arrives or the context ends.
func (c *MessageChannel) Receive(ctx context.Context) (*oauth.Message, error) {
	select {
	case msg := <-c.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
