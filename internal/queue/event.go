// Package queue defines message payloads exchanged over the message broker.
package queue

// AccountEventsQueue is the durable queue every account event is published to.
const AccountEventsQueue = "account.events"

// Event types.
const (
	EventAccountRegistered = "account.registered"
	EventPasswordChanged   = "account.password_changed"
)

// AccountEvent is published after a registration or a password change.  It
// carries enough for downstream consumers to log or notify without
// querying the account store.
type AccountEvent struct {
	Type       string `json:"type"`
	AccountID  string `json:"account_id"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	OccurredAt string `json:"occurred_at"`
}
