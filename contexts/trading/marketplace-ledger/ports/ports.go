package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
)

// NewItemInput carries validated mint parameters into the repository, which
// owns the sequential item id.
type NewItemInput struct {
	Name        string
	Description string
	Price       int64
	Seller      string
}

// NewAuctionInput carries validated auction parameters; the repository owns
// the sequential auction id.
type NewAuctionInput struct {
	ItemID     int64
	Seller     string
	StartPrice int64
	EndTime    time.Time
}

// ItemRepository owns item persistence and the item id sequence.
type ItemRepository interface {
	// CreateItem allocates the next sequential item id and stores the item.
	CreateItem(ctx context.Context, input NewItemInput, now time.Time) (entities.Item, error)
	GetItem(ctx context.Context, itemID int64) (entities.Item, error)
	// MarkItemSold flips the sold flag and transfers ownership exactly once;
	// it must fail on an already-sold item.
	MarkItemSold(ctx context.Context, itemID int64, newOwner string, soldAt time.Time) error
	CountItems(ctx context.Context) (int64, error)
}

// AuctionRepository owns auction persistence and the auction id sequence.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, input NewAuctionInput, now time.Time) (entities.Auction, error)
	GetAuction(ctx context.Context, auctionID int64) (entities.Auction, error)
	HasActiveAuctionForItem(ctx context.Context, itemID int64) (bool, error)
	// RecordBid replaces the current bid; it must fail on an inactive auction
	// or a bid that does not exceed the stored one.
	RecordBid(ctx context.Context, auctionID int64, bidder string, amount int64, at time.Time) (entities.Auction, error)
	// CloseAuction deactivates exactly once; a second close must fail.
	CloseAuction(ctx context.Context, auctionID int64, closedAt time.Time) (entities.Auction, error)
	CountAuctions(ctx context.Context) (int64, error)
}

// Treasury is the substrate value-transfer primitive. A failed transfer must
// leave the caller free to abort without any ledger mutation.
type Treasury interface {
	Transfer(ctx context.Context, account string, amount int64) error
}

// LedgerEvent is one append-only notification record. The core writes events;
// it never reads them back.
type LedgerEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// EventLog is the notification sink plus the relay-side polling surface.
type EventLog interface {
	Append(ctx context.Context, event LedgerEvent) error
	ListPending(ctx context.Context, limit int) ([]LedgerEvent, error)
	MarkPublished(ctx context.Context, eventID string, at time.Time) error
}

// EventPublisher pushes ledger events to an external broker topic/subject.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event LedgerEvent) error
}

// Clock allows deterministic testing of auction deadlines.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
