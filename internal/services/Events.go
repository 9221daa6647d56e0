package services

import (
	"context"
	"time"
)

// Account event types.
const (
	EventUserRegistered = "user.registered"
	EventUserDeleted    = "user.deleted"
)

// AccountEvent is the JSON payload published for account lifecycle changes.
type AccountEvent struct {
	Type       string    `json:"type"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers account events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event AccountEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AccountEvent) error { return nil }
