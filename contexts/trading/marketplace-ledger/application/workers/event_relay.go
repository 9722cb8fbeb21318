package workers

import (
	"context"
	"log/slog"
	"time"

	application "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

// EventRelay drains the append-only notification log to an external
// publisher. It never mutates ledger state; settlement stays pull-based.
type EventRelay struct {
	Events    ports.EventLog
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Subject   string
	BatchSize int
	Logger    *slog.Logger
}

func (r EventRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	subject := r.Subject
	if subject == "" {
		subject = "market.events"
	}

	pending, err := r.Events.ListPending(ctx, limit)
	if err != nil {
		logger.Error("event relay list pending failed",
			"event", "event_relay_list_failed",
			"module", "trading/marketplace-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, event := range pending {
		if err := r.Publisher.Publish(ctx, subject, event); err != nil {
			logger.Error("event relay publish failed",
				"event", "event_relay_publish_failed",
				"module", "trading/marketplace-ledger",
				"layer", "worker",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Events.MarkPublished(ctx, event.EventID, now); err != nil {
			logger.Error("event relay mark published failed",
				"event", "event_relay_mark_failed",
				"module", "trading/marketplace-ledger",
				"layer", "worker",
				"event_id", event.EventID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("event relay cycle completed",
			"event", "event_relay_completed",
			"module", "trading/marketplace-ledger",
			"layer", "worker",
			"sent_count", len(pending),
		)
	}
	return nil
}
