package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"agency_os_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishRunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublishSurvivesCanceledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var sawCanceled atomic.Bool
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
		sawCanceled.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{})
	bus.Wait()

	if sawCanceled.Load() {
		t.Fatal("handler should receive a detached context")
	}
}

func TestPublishSyncJoinsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	boom := errors.New("boom")
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error { return boom }))
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error { panic("kaput") }))

	err := bus.PublishSync(context.Background(), pingEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if err == nil || len(err.Error()) == 0 {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	bus.Publish(context.Background(), pingEvent{})
	if err := bus.PublishSync(context.Background(), pingEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
