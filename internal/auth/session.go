package auth

import "tunelink/pkg/oauth"

// Status is the coordinator's position in the login state machine.
type Status int

const (
	// StatusIdle means no login is in progress and none has failed.
	StatusIdle Status = iota

	// StatusLoading means an exchange or profile fetch is in flight.
	StatusLoading

	// StatusAuthenticated means a token pair is held.
	StatusAuthenticated

	// StatusFailed means the last attempt failed; Err carries the reason.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the durable, per-provider session record.
// Only the token pair is persisted; User is re-fetched after a restart.
type Session struct {
	User            *oauth.Profile
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// Status derives the state-machine position from the snapshot.
func (s Session) Status() Status {
	switch {
	case s.IsLoading:
		return StatusLoading
	case s.Err != "":
		return StatusFailed
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusIdle
	}
}
