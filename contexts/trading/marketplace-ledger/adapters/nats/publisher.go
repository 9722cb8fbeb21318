package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	application "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

// Publisher pushes ledger events onto NATS subjects for external consumers
// (indexers, UIs). The core never reads these back.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(conn *nats.Conn, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: application.ResolveLogger(logger),
	}
}

func (p *Publisher) Publish(_ context.Context, subject string, event ports.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event %s: %w", event.EventID, err)
	}
	// Subject carries the event type so consumers can subscribe per kind,
	// e.g. market.events.market.bid_placed.
	if err := p.conn.Publish(fmt.Sprintf("%s.%s", subject, event.EventType), payload); err != nil {
		return fmt.Errorf("publish ledger event %s: %w", event.EventID, err)
	}

	p.logger.Debug("ledger event published to nats",
		"event", "nats_event_published",
		"module", "trading/marketplace-ledger",
		"layer", "adapter",
		"subject", subject,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}
