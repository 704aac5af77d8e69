// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// Auth event kinds.
const (
    EventSignup = "signup"
    EventLogin  = "login"
    EventLogout = "logout"
)

// AuthEvent is published after a successful signup, login or logout.  It
// carries enough to build an audit trail without querying the database and
// never includes credentials or tokens.
type AuthEvent struct {
    Kind       string `json:"kind"`
    UserID     string `json:"user_id"`
    Email      string `json:"email,omitempty"`
    OccurredAt string `json:"occurred_at"` // RFC 3339, UTC
}
