package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

const (
	EventItemMinted     = "market.item_minted"
	EventItemPurchased  = "market.item_purchased"
	EventAuctionCreated = "market.auction_created"
	EventBidPlaced      = "market.bid_placed"
	EventAuctionEnded   = "market.auction_ended"

	defaultFeePercent      = 2
	defaultOperatorAccount = "croakmarket-operator"
)

// Service is the marketplace ledger: two collections, five operations, and the
// value-transfer rules attached to each transition.
//
// PurchaseItem, PlaceBid and EndAuction acquire an execution guard for their
// full duration and order their work validate -> transfer -> mutate -> emit,
// so a declined transfer never leaves a sold/inactive flag flipped and no
// re-entrant invocation can observe partial state. Event emission is
// best-effort once the mutation has landed: a failed append is logged, never
// surfaced as an operation failure.
type Service struct {
	Items    ports.ItemRepository
	Auctions ports.AuctionRepository
	Treasury ports.Treasury
	Events   ports.EventLog
	Clock    ports.Clock
	IDGen    ports.IDGenerator

	// FeePercent is the operator cut of every successful sale price.
	// Zero means the process-wide default of 2.
	FeePercent      int64
	OperatorAccount string
	Logger          *slog.Logger

	guard sync.Mutex
}

// PurchaseReceipt reports the fee split applied by a successful direct sale.
type PurchaseReceipt struct {
	Item           entities.Item
	Buyer          string
	Price          int64
	Fee            int64
	SellerProceeds int64
}

// SettlementReceipt reports the outcome of ending an auction. Winner is empty
// when the auction closed without bids.
type SettlementReceipt struct {
	Auction  entities.Auction
	Winner   string
	FinalBid int64
	Fee      int64
}

// LedgerCounts mirrors the item/auction sequence high-water marks.
type LedgerCounts struct {
	Items    int64
	Auctions int64
}

func (s *Service) MintItem(
	ctx context.Context,
	caller string,
	name string,
	description string,
	price int64,
) (entities.Item, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(caller) == "" ||
		strings.TrimSpace(name) == "" ||
		strings.TrimSpace(description) == "" ||
		price <= 0 {
		return entities.Item{}, domainerrors.ErrInvalidItemInput
	}

	item, err := s.Items.CreateItem(ctx, ports.NewItemInput{
		Name:        name,
		Description: description,
		Price:       price,
		Seller:      caller,
	}, s.now())
	if err != nil {
		logger.Error("mint item failed",
			"event", "mint_item_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"seller", caller,
			"error", err.Error(),
		)
		return entities.Item{}, err
	}

	if err := s.emit(ctx, EventItemMinted, "item", item.ItemID, map[string]any{
		"item_id":     item.ItemID,
		"name":        item.Name,
		"description": item.Description,
		"price":       item.Price,
		"seller":      item.Seller,
	}); err != nil {
		logger.Error("mint event append failed",
			"event", "event_append_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"item_id", item.ItemID,
			"error", err.Error(),
		)
	}

	logger.Info("item minted",
		"event", "item_minted",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"item_id", item.ItemID,
		"seller", item.Seller,
		"price", item.Price,
	)
	return item, nil
}

func (s *Service) PurchaseItem(
	ctx context.Context,
	caller string,
	itemID int64,
	amountPaid int64,
) (PurchaseReceipt, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(caller) == "" {
		return PurchaseReceipt{}, domainerrors.ErrInvalidItemInput
	}

	s.guard.Lock()
	defer s.guard.Unlock()

	item, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return PurchaseReceipt{}, err
	}
	if !item.Purchasable() {
		return PurchaseReceipt{}, domainerrors.ErrItemAlreadySold
	}
	// An item with an active auction is committed to that auction; selling it
	// directly would strand the escrowed bid at settlement.
	listed, err := s.Auctions.HasActiveAuctionForItem(ctx, item.ItemID)
	if err != nil {
		return PurchaseReceipt{}, err
	}
	if listed {
		return PurchaseReceipt{}, domainerrors.ErrItemOnAuction
	}
	if amountPaid < item.Price {
		return PurchaseReceipt{}, domainerrors.ErrInsufficientPayment
	}

	// Overpayment stays with the ledger; only the listed price is split.
	fee := item.Price * s.feePercent() / 100
	sellerAmount := item.Price - fee

	if err := s.payOut(ctx, item.Seller, sellerAmount, fee); err != nil {
		logger.Error("purchase payout declined",
			"event", "purchase_transfer_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"item_id", item.ItemID,
			"buyer", caller,
			"error", err.Error(),
		)
		return PurchaseReceipt{}, err
	}

	now := s.now()
	if err := s.Items.MarkItemSold(ctx, item.ItemID, caller, now); err != nil {
		return PurchaseReceipt{}, err
	}
	item.CurrentOwner = caller
	item.IsSold = true
	item.UpdatedAt = now

	if err := s.emit(ctx, EventItemPurchased, "item", item.ItemID, map[string]any{
		"item_id": item.ItemID,
		"buyer":   caller,
		"seller":  item.Seller,
		"price":   item.Price,
		"fee":     fee,
	}); err != nil {
		logger.Error("purchase event append failed",
			"event", "event_append_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"item_id", item.ItemID,
			"error", err.Error(),
		)
	}

	logger.Info("item purchased",
		"event", "item_purchased",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"item_id", item.ItemID,
		"buyer", caller,
		"price", item.Price,
		"fee", fee,
	)
	return PurchaseReceipt{
		Item:           item,
		Buyer:          caller,
		Price:          item.Price,
		Fee:            fee,
		SellerProceeds: sellerAmount,
	}, nil
}

func (s *Service) CreateAuction(
	ctx context.Context,
	caller string,
	itemID int64,
	startPrice int64,
	duration time.Duration,
) (entities.Auction, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(caller) == "" || startPrice < 0 || duration <= 0 {
		return entities.Auction{}, domainerrors.ErrInvalidAuctionInput
	}

	item, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return entities.Auction{}, err
	}
	if !item.Purchasable() {
		return entities.Auction{}, domainerrors.ErrItemAlreadySold
	}
	if !item.OwnedBy(caller) {
		return entities.Auction{}, domainerrors.ErrNotItemOwner
	}
	listed, err := s.Auctions.HasActiveAuctionForItem(ctx, itemID)
	if err != nil {
		return entities.Auction{}, err
	}
	if listed {
		return entities.Auction{}, domainerrors.ErrItemOnAuction
	}

	now := s.now()
	auction, err := s.Auctions.CreateAuction(ctx, ports.NewAuctionInput{
		ItemID:     itemID,
		Seller:     caller,
		StartPrice: startPrice,
		EndTime:    now.Add(duration),
	}, now)
	if err != nil {
		return entities.Auction{}, err
	}

	if err := s.emit(ctx, EventAuctionCreated, "auction", auction.AuctionID, map[string]any{
		"auction_id":  auction.AuctionID,
		"item_id":     auction.ItemID,
		"seller":      auction.Seller,
		"start_price": auction.StartPrice,
		"end_time":    auction.EndTime.UTC().Format(time.RFC3339),
	}); err != nil {
		logger.Error("auction created event append failed",
			"event", "event_append_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"auction_id", auction.AuctionID,
			"error", err.Error(),
		)
	}

	logger.Info("auction created",
		"event", "auction_created",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"auction_id", auction.AuctionID,
		"item_id", auction.ItemID,
		"seller", auction.Seller,
	)
	return auction, nil
}

func (s *Service) PlaceBid(
	ctx context.Context,
	caller string,
	auctionID int64,
	amount int64,
) (entities.Auction, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(caller) == "" || amount <= 0 {
		return entities.Auction{}, domainerrors.ErrBidTooLow
	}

	s.guard.Lock()
	defer s.guard.Unlock()

	auction, err := s.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return entities.Auction{}, err
	}
	if !auction.IsActive {
		return entities.Auction{}, domainerrors.ErrAuctionInactive
	}
	if auction.Expired(s.now()) {
		return entities.Auction{}, domainerrors.ErrAuctionExpired
	}
	if !auction.Outbids(amount) {
		return entities.Auction{}, domainerrors.ErrBidTooLow
	}

	// The previous bidder gets their escrowed bid back before the new bid is
	// accepted; a declined refund aborts with the auction untouched.
	if auction.HasBid() {
		if err := s.transfer(ctx, auction.CurrentBidder, auction.CurrentBid); err != nil {
			logger.Error("bid refund declined",
				"event", "bid_refund_failed",
				"module", "trading/marketplace-ledger",
				"layer", "application",
				"auction_id", auction.AuctionID,
				"outbid_bidder", auction.CurrentBidder,
				"error", err.Error(),
			)
			return entities.Auction{}, err
		}
	}

	updated, err := s.Auctions.RecordBid(ctx, auction.AuctionID, caller, amount, s.now())
	if err != nil {
		return entities.Auction{}, err
	}

	if err := s.emit(ctx, EventBidPlaced, "auction", updated.AuctionID, map[string]any{
		"auction_id": updated.AuctionID,
		"item_id":    updated.ItemID,
		"bidder":     caller,
		"amount":     amount,
	}); err != nil {
		logger.Error("bid event append failed",
			"event", "event_append_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"auction_id", updated.AuctionID,
			"error", err.Error(),
		)
	}

	logger.Info("bid placed",
		"event", "bid_placed",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"auction_id", updated.AuctionID,
		"bidder", caller,
		"amount", amount,
	)
	return updated, nil
}

func (s *Service) EndAuction(
	ctx context.Context,
	caller string,
	auctionID int64,
) (SettlementReceipt, error) {
	logger := ResolveLogger(s.Logger)

	s.guard.Lock()
	defer s.guard.Unlock()

	auction, err := s.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return SettlementReceipt{}, err
	}
	if !auction.IsActive {
		return SettlementReceipt{}, domainerrors.ErrAuctionInactive
	}
	if !auction.Expired(s.now()) {
		return SettlementReceipt{}, domainerrors.ErrAuctionStillOpen
	}

	now := s.now()

	if !auction.HasBid() {
		// No bids: the auction deactivates, the item stays with its owner, and
		// no notification is emitted.
		closed, err := s.Auctions.CloseAuction(ctx, auction.AuctionID, now)
		if err != nil {
			return SettlementReceipt{}, err
		}
		logger.Info("auction closed without bids",
			"event", "auction_closed_no_bids",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"auction_id", closed.AuctionID,
			"item_id", closed.ItemID,
		)
		return SettlementReceipt{Auction: closed}, nil
	}

	// The item must still be sellable before any money moves; settlement is
	// all-or-nothing and the sold check after payout would be too late.
	item, err := s.Items.GetItem(ctx, auction.ItemID)
	if err != nil {
		return SettlementReceipt{}, err
	}
	if !item.Purchasable() {
		return SettlementReceipt{}, domainerrors.ErrItemAlreadySold
	}

	fee := auction.CurrentBid * s.feePercent() / 100
	sellerAmount := auction.CurrentBid - fee

	if err := s.payOut(ctx, auction.Seller, sellerAmount, fee); err != nil {
		logger.Error("settlement payout declined",
			"event", "settlement_transfer_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"auction_id", auction.AuctionID,
			"winner", auction.CurrentBidder,
			"error", err.Error(),
		)
		return SettlementReceipt{}, err
	}

	closed, err := s.Auctions.CloseAuction(ctx, auction.AuctionID, now)
	if err != nil {
		return SettlementReceipt{}, err
	}
	if err := s.Items.MarkItemSold(ctx, closed.ItemID, closed.CurrentBidder, now); err != nil {
		return SettlementReceipt{}, err
	}

	if err := s.emit(ctx, EventAuctionEnded, "auction", closed.AuctionID, map[string]any{
		"auction_id": closed.AuctionID,
		"item_id":    closed.ItemID,
		"winner":     closed.CurrentBidder,
		"final_bid":  closed.CurrentBid,
		"fee":        fee,
	}); err != nil {
		logger.Error("settlement event append failed",
			"event", "event_append_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"auction_id", closed.AuctionID,
			"error", err.Error(),
		)
	}

	logger.Info("auction settled",
		"event", "auction_settled",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"auction_id", closed.AuctionID,
		"item_id", closed.ItemID,
		"winner", closed.CurrentBidder,
		"final_bid", closed.CurrentBid,
		"settled_by", caller,
	)
	return SettlementReceipt{
		Auction:  closed,
		Winner:   closed.CurrentBidder,
		FinalBid: closed.CurrentBid,
		Fee:      fee,
	}, nil
}

func (s *Service) GetItem(ctx context.Context, itemID int64) (entities.Item, error) {
	return s.Items.GetItem(ctx, itemID)
}

func (s *Service) GetAuction(ctx context.Context, auctionID int64) (entities.Auction, error) {
	return s.Auctions.GetAuction(ctx, auctionID)
}

func (s *Service) Counts(ctx context.Context) (LedgerCounts, error) {
	items, err := s.Items.CountItems(ctx)
	if err != nil {
		return LedgerCounts{}, err
	}
	auctions, err := s.Auctions.CountAuctions(ctx)
	if err != nil {
		return LedgerCounts{}, err
	}
	return LedgerCounts{Items: items, Auctions: auctions}, nil
}

// payOut splits a sale price between seller and operator using the
// transfer(to, amount) primitive, one leg per payee.
func (s *Service) payOut(ctx context.Context, seller string, sellerAmount int64, fee int64) error {
	if err := s.transfer(ctx, seller, sellerAmount); err != nil {
		return err
	}
	return s.transfer(ctx, s.operatorAccount(), fee)
}

func (s *Service) transfer(ctx context.Context, account string, amount int64) error {
	if err := s.Treasury.Transfer(ctx, account, amount); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
	}
	return nil
}

func (s *Service) emit(
	ctx context.Context,
	eventType string,
	entityType string,
	entityID int64,
	payload map[string]any,
) error {
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.Events.Append(ctx, ports.LedgerEvent{
		EventID:    eventID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		OccurredAt: s.now(),
		Data:       data,
	})
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) feePercent() int64 {
	if s.FeePercent <= 0 {
		return defaultFeePercent
	}
	return s.FeePercent
}

func (s *Service) operatorAccount() string {
	if strings.TrimSpace(s.OperatorAccount) == "" {
		return defaultOperatorAccount
	}
	return s.OperatorAccount
}
