package messaging

import (
	"context"
	"fmt"
	"testing"

	"quorum/internal/shared/events"
)

func TestBroadcastDeliversInPublishOrder(t *testing.T) {
	bus := NewBroadcast(16, nil)
	ch, cancel := bus.Subscribe("tally.updated")
	defer cancel()

	const published = 5
	for i := 0; i < published; i++ {
		err := bus.Publish(context.Background(), "tally.updated", events.Envelope{
			EventID:   fmt.Sprintf("evt-%d", i),
			EventType: "tally.updated",
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	for i := 0; i < published; i++ {
		envelope := <-ch
		if want := fmt.Sprintf("evt-%d", i); envelope.EventID != want {
			t.Fatalf("out of order delivery: got %s want %s", envelope.EventID, want)
		}
	}
}

func TestBroadcastDropsForSlowSubscriberWithoutBlocking(t *testing.T) {
	bus := NewBroadcast(1, nil)
	slow, cancelSlow := bus.Subscribe("tally.updated")
	defer cancelSlow()
	fast, cancelFast := bus.Subscribe("tally.updated")
	defer cancelFast()

	for i := 0; i < 4; i++ {
		if err := bus.Publish(context.Background(), "tally.updated", events.Envelope{
			EventID: fmt.Sprintf("evt-%d", i),
		}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		// Keep the fast subscriber drained so only the slow one overflows.
		<-fast
	}

	// Buffer of one: the slow subscriber holds evt-0 and dropped the rest.
	envelope := <-slow
	if envelope.EventID != "evt-0" {
		t.Fatalf("expected first event retained, got %s", envelope.EventID)
	}
	select {
	case extra := <-slow:
		t.Fatalf("expected overflow drops, got %s", extra.EventID)
	default:
	}
}

func TestBroadcastCancelDetachesSubscriber(t *testing.T) {
	bus := NewBroadcast(4, nil)
	ch, cancel := bus.Subscribe("tally.updated")
	cancel()

	if err := bus.Publish(context.Background(), "tally.updated", events.Envelope{EventID: "evt-after-cancel"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case envelope := <-ch:
		t.Fatalf("detached subscriber received %s", envelope.EventID)
	default:
	}
}

func TestBroadcastTopicsAreIsolated(t *testing.T) {
	bus := NewBroadcast(4, nil)
	ch, cancel := bus.Subscribe("tally.updated")
	defer cancel()

	if err := bus.Publish(context.Background(), "other.topic", events.Envelope{EventID: "evt-other"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case envelope := <-ch:
		t.Fatalf("received event from foreign topic: %s", envelope.EventID)
	default:
	}
}
