package core

import (
	"context"
	"time"
)

// Auth event types.
const (
	EventSignedUp     = "user.signed_up"
	EventSignedIn     = "user.signed_in"
	EventGuestStarted = "user.guest_started"
	EventUpgraded     = "user.upgraded"
	EventLoggedOut    = "user.logged_out"
	EventRoleSet      = "user.role_set"
)

type (
	Event struct {
		Type   string    `json:"type"`
		UserID string    `json:"user_id"`
		Role   string    `json:"role,omitempty"`
		At     time.Time `json:"at"`
	}

	// EventPublisher broadcasts domain events. Publishing is best effort.
	EventPublisher interface {
		Publish(ctx context.Context, evt Event) error
		Close() error
	}
)

func NewEvent(typ, userID, role string) Event {
	return Event{Type: typ, UserID: userID, Role: role, At: time.Now().UTC()}
}
