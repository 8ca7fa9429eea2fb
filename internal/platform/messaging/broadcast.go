package messaging

import (
	"context"
	"log/slog"
	"sync"

	"quorum/internal/shared/events"
)

// Broadcast is the in-process fan-out bus behind the tally publisher port.
// Each subscriber owns a buffered channel; a full buffer drops the event for
// that subscriber only, so one slow observer never reorders or blocks
// delivery to the rest. Dropped snapshots are safe to skip: the next one
// supersedes them and the pull endpoint stays available.
type Broadcast struct {
	mu          sync.RWMutex
	subscribers map[string][]chan events.Envelope
	buffer      int
	logger      *slog.Logger
}

func NewBroadcast(buffer int, logger *slog.Logger) *Broadcast {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcast{
		subscribers: make(map[string][]chan events.Envelope),
		buffer:      buffer,
		logger:      logger,
	}
}

func (b *Broadcast) Publish(ctx context.Context, topic string, envelope events.Envelope) error {
	b.mu.RLock()
	subs := append([]chan events.Envelope(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- envelope:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "broadcast_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_id", envelope.EventID,
				)
			}
		}
	}

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "broadcast_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}
	return nil
}

// Subscribe registers an observer channel for the topic. The returned cancel
// function detaches the channel; events delivered to one subscriber arrive in
// publish order.
func (b *Broadcast) Subscribe(topic string) (<-chan events.Envelope, func()) {
	ch := make(chan events.Envelope, b.buffer)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	return ch, func() {
		b.removeSubscriber(topic, ch)
	}
}

func (b *Broadcast) removeSubscriber(topic string, target chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan events.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
