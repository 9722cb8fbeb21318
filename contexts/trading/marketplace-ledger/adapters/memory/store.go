package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	application "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

// Store is an in-memory adapter implementing every marketplace-ledger port for
// local runtime and tests. It is not intended as production persistence.
//
// A single mutex critical section approximates transactional semantics: each
// repository mutation succeeds or fails as a unit.
type Store struct {
	mu          sync.RWMutex
	items       map[int64]entities.Item
	auctions    map[int64]entities.Auction
	itemSeq     int64
	auctionSeq  int64
	events      map[string]ports.LedgerEvent
	eventOrder  []string
	published   map[string]time.Time
	credits     map[string]int64
	failedDests map[string]error
	logger      *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		items:       make(map[int64]entities.Item),
		auctions:    make(map[int64]entities.Auction),
		events:      make(map[string]ports.LedgerEvent),
		eventOrder:  make([]string, 0),
		published:   make(map[string]time.Time),
		credits:     make(map[string]int64),
		failedDests: make(map[string]error),
		logger:      application.ResolveLogger(logger),
	}
}

func (s *Store) CreateItem(_ context.Context, input ports.NewItemInput, now time.Time) (entities.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := entities.NewItem(
		s.itemSeq+1,
		input.Name,
		input.Description,
		input.Price,
		input.Seller,
		now,
	)
	if err != nil {
		return entities.Item{}, err
	}
	s.itemSeq++
	s.items[item.ItemID] = item

	s.logger.Debug("item stored in memory",
		"event", "memory_create_item",
		"module", "trading/marketplace-ledger",
		"layer", "adapter",
		"item_id", item.ItemID,
	)
	return item, nil
}

func (s *Store) GetItem(_ context.Context, itemID int64) (entities.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return entities.Item{}, domainerrors.ErrItemNotFound
	}
	return item, nil
}

func (s *Store) MarkItemSold(_ context.Context, itemID int64, newOwner string, soldAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return domainerrors.ErrItemNotFound
	}
	if item.IsSold {
		return domainerrors.ErrItemAlreadySold
	}
	item.CurrentOwner = newOwner
	item.IsSold = true
	item.UpdatedAt = soldAt.UTC()
	s.items[itemID] = item
	return nil
}

func (s *Store) CountItems(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemSeq, nil
}

func (s *Store) CreateAuction(_ context.Context, input ports.NewAuctionInput, now time.Time) (entities.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := entities.NewAuction(
		s.auctionSeq+1,
		input.ItemID,
		input.Seller,
		input.StartPrice,
		input.EndTime.Sub(now),
		now,
	)
	if err != nil {
		return entities.Auction{}, err
	}
	s.auctionSeq++
	s.auctions[auction.AuctionID] = auction

	s.logger.Debug("auction stored in memory",
		"event", "memory_create_auction",
		"module", "trading/marketplace-ledger",
		"layer", "adapter",
		"auction_id", auction.AuctionID,
		"item_id", auction.ItemID,
	)
	return auction, nil
}

func (s *Store) GetAuction(_ context.Context, auctionID int64) (entities.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	return auction, nil
}

func (s *Store) HasActiveAuctionForItem(_ context.Context, itemID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, auction := range s.auctions {
		if auction.ItemID == itemID && auction.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RecordBid(
	_ context.Context,
	auctionID int64,
	bidder string,
	amount int64,
	at time.Time,
) (entities.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	if !auction.IsActive {
		return entities.Auction{}, domainerrors.ErrAuctionInactive
	}
	if !auction.Outbids(amount) {
		return entities.Auction{}, domainerrors.ErrBidTooLow
	}
	auction.CurrentBid = amount
	auction.CurrentBidder = bidder
	auction.UpdatedAt = at.UTC()
	s.auctions[auctionID] = auction
	return auction, nil
}

func (s *Store) CloseAuction(_ context.Context, auctionID int64, closedAt time.Time) (entities.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	if !auction.IsActive {
		return entities.Auction{}, domainerrors.ErrAuctionInactive
	}
	auction.IsActive = false
	auction.UpdatedAt = closedAt.UTC()
	s.auctions[auctionID] = auction
	return auction, nil
}

func (s *Store) CountAuctions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auctionSeq, nil
}

// Transfer credits the destination account. FailTransfersTo forces a failure
// for a destination so callers can exercise declined-transfer paths.
func (s *Store) Transfer(_ context.Context, account string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 {
		return domainerrors.ErrLedgerInconsistent
	}
	if err, ok := s.failedDests[account]; ok {
		return err
	}
	s.credits[account] += amount
	return nil
}

// FailTransfersTo makes every subsequent transfer to account fail with err.
func (s *Store) FailTransfersTo(account string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		err = fmt.Errorf("transfer to %s declined", account)
	}
	s.failedDests[account] = err
}

// CreditedTo reports the total amount transferred to an account.
func (s *Store) CreditedTo(account string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credits[account]
}

func (s *Store) Append(_ context.Context, event ports.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; exists {
		return domainerrors.ErrLedgerInconsistent
	}
	s.events[event.EventID] = event
	s.eventOrder = append(s.eventOrder, event.EventID)
	return nil
}

func (s *Store) ListPending(_ context.Context, limit int) ([]ports.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	pending := make([]ports.LedgerEvent, 0, limit)
	for _, id := range s.eventOrder {
		if _, sent := s.published[id]; sent {
			continue
		}
		if event, ok := s.events[id]; ok {
			pending = append(pending, event)
		}
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkPublished(_ context.Context, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return domainerrors.ErrLedgerInconsistent
	}
	s.published[eventID] = at.UTC()
	return nil
}

// Events returns the full append-only notification log in emission order.
func (s *Store) Events() []ports.LedgerEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.LedgerEvent, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		if event, ok := s.events[id]; ok {
			events = append(events, event)
		}
	}
	return events
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
