package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

// Bus is an in-process event publisher used when no external broker is
// configured. Subscribers receive events on buffered channels; slow
// subscribers drop rather than block the relay.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ports.LedgerEvent
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan ports.LedgerEvent),
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, subject string, event ports.LedgerEvent) error {
	b.mu.RLock()
	subs := append([]chan ports.LedgerEvent(nil), b.subscribers[subject]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "bus_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"subject", subject,
					"event_id", event.EventID,
				)
			}
		}
	}
	return nil
}

// Subscribe registers a channel for a subject and returns it. Intended for
// tests and in-process consumers.
func (b *Bus) Subscribe(subject string, buffer int) <-chan ports.LedgerEvent {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan ports.LedgerEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[subject] = append(b.subscribers[subject], ch)
	return ch
}
