// Package events provides the in-process event bus used for decoupled
// communication between modules.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName returns a unique, dotted identifier for the event type.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
	// Actor returns the profile that caused the event, or uuid.Nil for
	// background work.
	Actor() uuid.UUID
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   uuid.UUID `json:"actorId,omitempty"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Actor returns the profile that caused the event.
func (e BaseEvent) Actor() uuid.UUID { return e.ActorID }

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// NewActorEvent stamps an event with the current time and the acting profile.
func NewActorEvent(actorID uuid.UUID) BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC(), ActorID: actorID}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish dispatches to handlers asynchronously.
	Publish(ctx context.Context, event Event)
	// PublishSync dispatches and waits for every handler.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers handler for events whose EventName equals eventName.
	Subscribe(eventName string, handler Handler)
}
