package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/adapters/memory"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
)

const operatorAccount = "operator-treasury"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLedger(feePercent int64) (*application.Service, *memory.Store, *fakeClock) {
	store := memory.NewStore(nil)
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	service := &application.Service{
		Items:           store,
		Auctions:        store,
		Treasury:        store,
		Events:          store,
		Clock:           clock,
		IDGen:           store,
		FeePercent:      feePercent,
		OperatorAccount: operatorAccount,
	}
	return service, store, clock
}

func mustMint(t *testing.T, service *application.Service, seller string, price int64) entities.Item {
	t.Helper()
	item, err := service.MintItem(context.Background(), seller, "vintage lure", "hand-carved wooden lure", price)
	if err != nil {
		t.Fatalf("mint item: %v", err)
	}
	return item
}

func eventCount(store *memory.Store, eventType string) int {
	count := 0
	for _, event := range store.Events() {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

func TestMintItemAssignsSequentialIDs(t *testing.T) {
	service, store, _ := newLedger(0)

	first := mustMint(t, service, "alice", 100)
	second := mustMint(t, service, "bob", 250)

	if first.ItemID != 1 || second.ItemID != 2 {
		t.Fatalf("expected item ids 1 and 2, got %d and %d", first.ItemID, second.ItemID)
	}
	if first.CurrentOwner != "alice" || first.IsSold {
		t.Fatalf("expected fresh item owned by seller and unsold, got %+v", first)
	}
	if got := eventCount(store, application.EventItemMinted); got != 2 {
		t.Fatalf("expected 2 minted events, got %d", got)
	}
}

func TestMintItemRejectsInvalidInput(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()

	cases := []struct {
		name        string
		caller      string
		itemName    string
		description string
		price       int64
	}{
		{"empty caller", "", "lure", "desc", 10},
		{"empty name", "alice", "", "desc", 10},
		{"empty description", "alice", "lure", "", 10},
		{"zero price", "alice", "lure", "desc", 0},
		{"negative price", "alice", "lure", "desc", -5},
	}
	for _, tc := range cases {
		if _, err := service.MintItem(ctx, tc.caller, tc.itemName, tc.description, tc.price); !errors.Is(err, domainerrors.ErrInvalidItemInput) {
			t.Fatalf("%s: expected ErrInvalidItemInput, got %v", tc.name, err)
		}
	}
	if len(store.Events()) != 0 {
		t.Fatalf("expected no events after rejected mints, got %d", len(store.Events()))
	}
}

func TestPurchaseItemSplitsFee(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	receipt, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100)
	if err != nil {
		t.Fatalf("purchase item: %v", err)
	}
	if receipt.Fee != 2 || receipt.SellerProceeds != 98 {
		t.Fatalf("expected 2/98 split, got fee=%d proceeds=%d", receipt.Fee, receipt.SellerProceeds)
	}
	if store.CreditedTo("alice") != 98 {
		t.Fatalf("expected seller credited 98, got %d", store.CreditedTo("alice"))
	}
	if store.CreditedTo(operatorAccount) != 2 {
		t.Fatalf("expected operator credited 2, got %d", store.CreditedTo(operatorAccount))
	}

	sold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !sold.IsSold || sold.CurrentOwner != "bob" {
		t.Fatalf("expected item sold to bob, got %+v", sold)
	}
	if got := eventCount(store, application.EventItemPurchased); got != 1 {
		t.Fatalf("expected 1 purchased event, got %d", got)
	}
}

func TestPurchaseItemKeepsOverpayment(t *testing.T) {
	service, store, _ := newLedger(0)
	item := mustMint(t, service, "alice", 100)

	receipt, err := service.PurchaseItem(context.Background(), "bob", item.ItemID, 150)
	if err != nil {
		t.Fatalf("purchase item: %v", err)
	}
	if receipt.Price != 100 || receipt.Fee != 2 || receipt.SellerProceeds != 98 {
		t.Fatalf("expected the listed price to be split, got %+v", receipt)
	}
	if store.CreditedTo("alice") != 98 || store.CreditedTo(operatorAccount) != 2 {
		t.Fatalf("overpayment must not reach seller or operator, got seller=%d operator=%d",
			store.CreditedTo("alice"), store.CreditedTo(operatorAccount))
	}
}

func TestPurchaseItemRejectsUnderpayment(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 99); !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	unchanged, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if unchanged.IsSold || unchanged.CurrentOwner != "alice" {
		t.Fatalf("underpayment must leave the item untouched, got %+v", unchanged)
	}
	if store.CreditedTo("alice") != 0 {
		t.Fatalf("expected no credit on rejected purchase, got %d", store.CreditedTo("alice"))
	}
}

func TestPurchaseItemRejectsResale(t *testing.T) {
	service, _, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := service.PurchaseItem(ctx, "carol", item.ItemID, 100); !errors.Is(err, domainerrors.ErrItemAlreadySold) {
		t.Fatalf("expected ErrItemAlreadySold, got %v", err)
	}
}

func TestPurchaseItemUnknownItem(t *testing.T) {
	service, _, _ := newLedger(0)
	if _, err := service.PurchaseItem(context.Background(), "bob", 42, 100); !errors.Is(err, domainerrors.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestPurchaseItemDeclinedTransferLeavesItemUnsold(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	store.FailTransfersTo("alice", nil)

	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100); !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	unchanged, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if unchanged.IsSold || unchanged.CurrentOwner != "alice" {
		t.Fatalf("declined payout must not flip the sold flag, got %+v", unchanged)
	}
	if got := eventCount(store, application.EventItemPurchased); got != 0 {
		t.Fatalf("expected no purchased event after declined payout, got %d", got)
	}
}

func TestFeePercentIsParameterizable(t *testing.T) {
	service, store, _ := newLedger(10)
	item := mustMint(t, service, "alice", 100)

	receipt, err := service.PurchaseItem(context.Background(), "bob", item.ItemID, 100)
	if err != nil {
		t.Fatalf("purchase item: %v", err)
	}
	if receipt.Fee != 10 || receipt.SellerProceeds != 90 {
		t.Fatalf("expected 10/90 split with 10%% fee, got fee=%d proceeds=%d", receipt.Fee, receipt.SellerProceeds)
	}
	if store.CreditedTo(operatorAccount) != 10 {
		t.Fatalf("expected operator credited 10, got %d", store.CreditedTo(operatorAccount))
	}
}

func TestCreateAuctionInitialState(t *testing.T) {
	service, _, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 50, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if auction.AuctionID != 1 {
		t.Fatalf("expected auction id 1, got %d", auction.AuctionID)
	}
	if !auction.EndTime.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("expected end time %v, got %v", clock.now.Add(time.Hour), auction.EndTime)
	}
	if auction.CurrentBid != 0 || auction.CurrentBidder != entities.NoBidder {
		t.Fatalf("expected no opening bid, got bid=%d bidder=%q", auction.CurrentBid, auction.CurrentBidder)
	}
	if !auction.IsActive {
		t.Fatal("expected new auction to be active")
	}
}

func TestCreateAuctionValidation(t *testing.T) {
	service, _, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	if _, err := service.CreateAuction(ctx, "alice", item.ItemID, 50, 0); !errors.Is(err, domainerrors.ErrInvalidAuctionInput) {
		t.Fatalf("zero duration: expected ErrInvalidAuctionInput, got %v", err)
	}
	if _, err := service.CreateAuction(ctx, "alice", item.ItemID, -1, time.Hour); !errors.Is(err, domainerrors.ErrInvalidAuctionInput) {
		t.Fatalf("negative start price: expected ErrInvalidAuctionInput, got %v", err)
	}
	if _, err := service.CreateAuction(ctx, "mallory", item.ItemID, 50, time.Hour); !errors.Is(err, domainerrors.ErrNotItemOwner) {
		t.Fatalf("non-owner: expected ErrNotItemOwner, got %v", err)
	}
	if _, err := service.CreateAuction(ctx, "alice", 42, 50, time.Hour); !errors.Is(err, domainerrors.ErrItemNotFound) {
		t.Fatalf("unknown item: expected ErrItemNotFound, got %v", err)
	}

	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100); err != nil {
		t.Fatalf("purchase item: %v", err)
	}
	if _, err := service.CreateAuction(ctx, "bob", item.ItemID, 50, time.Hour); !errors.Is(err, domainerrors.ErrItemAlreadySold) {
		t.Fatalf("sold item: expected ErrItemAlreadySold, got %v", err)
	}
}

func TestCreateAuctionRejectsSecondActiveListing(t *testing.T) {
	service, _, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)

	if _, err := service.CreateAuction(ctx, "alice", item.ItemID, 50, time.Hour); err != nil {
		t.Fatalf("first auction: %v", err)
	}
	if _, err := service.CreateAuction(ctx, "alice", item.ItemID, 60, time.Hour); !errors.Is(err, domainerrors.ErrItemOnAuction) {
		t.Fatalf("expected ErrItemOnAuction, got %v", err)
	}

	// Once the first auction closes without bids the item may be listed again.
	clock.Advance(2 * time.Hour)
	if _, err := service.EndAuction(ctx, "anyone", 1); err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if _, err := service.CreateAuction(ctx, "alice", item.ItemID, 60, time.Hour); err != nil {
		t.Fatalf("relist after close: %v", err)
	}
}

func TestPlaceBidRefundsOutbidBidder(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 50); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	updated, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 60)
	if err != nil {
		t.Fatalf("second bid: %v", err)
	}

	if updated.CurrentBid != 60 || updated.CurrentBidder != "bidder-b" {
		t.Fatalf("expected leading bid 60 by bidder-b, got %d by %q", updated.CurrentBid, updated.CurrentBidder)
	}
	if store.CreditedTo("bidder-a") != 50 {
		t.Fatalf("expected bidder-a refunded exactly 50, got %d", store.CreditedTo("bidder-a"))
	}
	if store.CreditedTo("bidder-b") != 0 {
		t.Fatalf("leading bidder must not be credited, got %d", store.CreditedTo("bidder-b"))
	}
	if got := eventCount(store, application.EventBidPlaced); got != 2 {
		t.Fatalf("expected 2 bid events, got %d", got)
	}
}

func TestPlaceBidRejectsLowAndEqualBids(t *testing.T) {
	service, _, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 50); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 50); !errors.Is(err, domainerrors.ErrBidTooLow) {
		t.Fatalf("equal bid: expected ErrBidTooLow, got %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 49); !errors.Is(err, domainerrors.ErrBidTooLow) {
		t.Fatalf("lower bid: expected ErrBidTooLow, got %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 0); !errors.Is(err, domainerrors.ErrBidTooLow) {
		t.Fatalf("zero bid: expected ErrBidTooLow, got %v", err)
	}
}

func TestPlaceBidAfterDeadline(t *testing.T) {
	service, _, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	// A bid exactly at the deadline still lands.
	clock.Advance(time.Hour)
	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 50); err != nil {
		t.Fatalf("bid at deadline: %v", err)
	}

	clock.Advance(time.Second)
	if _, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 60); !errors.Is(err, domainerrors.ErrAuctionExpired) {
		t.Fatalf("expected ErrAuctionExpired, got %v", err)
	}
}

func TestPlaceBidDeclinedRefundKeepsAuctionState(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 50); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	store.FailTransfersTo("bidder-a", nil)

	if _, err := service.PlaceBid(ctx, "bidder-b", auction.AuctionID, 60); !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	unchanged, err := service.GetAuction(ctx, auction.AuctionID)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if unchanged.CurrentBid != 50 || unchanged.CurrentBidder != "bidder-a" {
		t.Fatalf("declined refund must leave the leading bid intact, got %d by %q",
			unchanged.CurrentBid, unchanged.CurrentBidder)
	}
}

func TestEndAuctionBeforeDeadline(t *testing.T) {
	service, _, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if _, err := service.EndAuction(ctx, "alice", auction.AuctionID); !errors.Is(err, domainerrors.ErrAuctionStillOpen) {
		t.Fatalf("expected ErrAuctionStillOpen, got %v", err)
	}
}

func TestEndAuctionSettlesToWinner(t *testing.T) {
	service, store, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 60); err != nil {
		t.Fatalf("place bid: %v", err)
	}

	clock.Advance(time.Hour + time.Second)
	// Settlement is pull-based: any caller may end an expired auction.
	receipt, err := service.EndAuction(ctx, "random-caller", auction.AuctionID)
	if err != nil {
		t.Fatalf("end auction: %v", err)
	}

	if receipt.Winner != "bidder-a" || receipt.FinalBid != 60 {
		t.Fatalf("expected bidder-a winning at 60, got %q at %d", receipt.Winner, receipt.FinalBid)
	}
	if receipt.Fee != 1 {
		t.Fatalf("expected fee 1 on a 60 bid, got %d", receipt.Fee)
	}
	if store.CreditedTo("alice") != 59 {
		t.Fatalf("expected seller credited 59, got %d", store.CreditedTo("alice"))
	}
	if store.CreditedTo(operatorAccount) != 1 {
		t.Fatalf("expected operator credited 1, got %d", store.CreditedTo(operatorAccount))
	}

	sold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !sold.IsSold || sold.CurrentOwner != "bidder-a" {
		t.Fatalf("expected item transferred to winner, got %+v", sold)
	}
	if got := eventCount(store, application.EventAuctionEnded); got != 1 {
		t.Fatalf("expected 1 auction ended event, got %d", got)
	}

	if _, err := service.EndAuction(ctx, "random-caller", auction.AuctionID); !errors.Is(err, domainerrors.ErrAuctionInactive) {
		t.Fatalf("second settlement: expected ErrAuctionInactive, got %v", err)
	}
}

func TestEndAuctionWithoutBidsClosesQuietly(t *testing.T) {
	service, store, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	clock.Advance(2 * time.Hour)
	receipt, err := service.EndAuction(ctx, "alice", auction.AuctionID)
	if err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if receipt.Winner != "" || receipt.FinalBid != 0 || receipt.Fee != 0 {
		t.Fatalf("expected empty settlement, got %+v", receipt)
	}
	if receipt.Auction.IsActive {
		t.Fatal("expected auction deactivated")
	}

	unsold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if unsold.IsSold || unsold.CurrentOwner != "alice" {
		t.Fatalf("no-bid close must leave the item with its owner, got %+v", unsold)
	}
	if got := eventCount(store, application.EventAuctionEnded); got != 0 {
		t.Fatalf("no-bid close must not emit an ended event, got %d", got)
	}
	if store.CreditedTo("alice") != 0 || store.CreditedTo(operatorAccount) != 0 {
		t.Fatalf("no-bid close must not move value, got seller=%d operator=%d",
			store.CreditedTo("alice"), store.CreditedTo(operatorAccount))
	}
}

func TestEndAuctionDeclinedPayoutKeepsAuctionOpen(t *testing.T) {
	service, store, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 60); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	store.FailTransfersTo("alice", nil)

	clock.Advance(2 * time.Hour)
	if _, err := service.EndAuction(ctx, "alice", auction.AuctionID); !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	open, err := service.GetAuction(ctx, auction.AuctionID)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if !open.IsActive {
		t.Fatal("declined payout must leave the auction active for a retry")
	}
	unsold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if unsold.IsSold {
		t.Fatal("declined payout must not mark the item sold")
	}
}

func TestPurchaseItemRejectsItemOnAuction(t *testing.T) {
	service, store, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 60); err != nil {
		t.Fatalf("place bid: %v", err)
	}

	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100); !errors.Is(err, domainerrors.ErrItemOnAuction) {
		t.Fatalf("expected ErrItemOnAuction, got %v", err)
	}
	if store.CreditedTo("alice") != 0 {
		t.Fatalf("rejected purchase must not pay the seller, got %d", store.CreditedTo("alice"))
	}

	// The auction settles normally afterwards; the seller is paid exactly once.
	clock.Advance(2 * time.Hour)
	receipt, err := service.EndAuction(ctx, "anyone", auction.AuctionID)
	if err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if receipt.Winner != "bidder-a" || store.CreditedTo("alice") != 59 {
		t.Fatalf("expected single settlement payout of 59, got winner=%q seller=%d",
			receipt.Winner, store.CreditedTo("alice"))
	}

	sold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if sold.CurrentOwner != "bidder-a" {
		t.Fatalf("expected item with the auction winner, got %+v", sold)
	}
}

func TestPurchaseItemAllowedAfterAuctionCloses(t *testing.T) {
	service, _, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := service.EndAuction(ctx, "alice", auction.AuctionID); err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if _, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100); err != nil {
		t.Fatalf("purchase after no-bid close: %v", err)
	}
}

func TestEndAuctionSoldItemFailsBeforePayout(t *testing.T) {
	service, store, clock := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	auction, err := service.CreateAuction(ctx, "alice", item.ItemID, 40, time.Hour)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if _, err := service.PlaceBid(ctx, "bidder-a", auction.AuctionID, 60); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	// Ownership changed outside the auction path, e.g. a repair script.
	if err := store.MarkItemSold(ctx, item.ItemID, "bob", clock.Now()); err != nil {
		t.Fatalf("mark item sold: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := service.EndAuction(ctx, "anyone", auction.AuctionID); !errors.Is(err, domainerrors.ErrItemAlreadySold) {
		t.Fatalf("expected ErrItemAlreadySold, got %v", err)
	}

	if store.CreditedTo("alice") != 0 || store.CreditedTo(operatorAccount) != 0 {
		t.Fatalf("failed settlement must move no value, got seller=%d operator=%d",
			store.CreditedTo("alice"), store.CreditedTo(operatorAccount))
	}
	open, err := service.GetAuction(ctx, auction.AuctionID)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if !open.IsActive {
		t.Fatal("failed settlement must leave the auction untouched")
	}
	sold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if sold.CurrentOwner != "bob" {
		t.Fatalf("item owner must be unchanged, got %q", sold.CurrentOwner)
	}
}

type failingIDGen struct{}

func (failingIDGen) NewID(context.Context) (string, error) {
	return "", errors.New("id source unavailable")
}

func TestPurchaseSucceedsWhenEventAppendFails(t *testing.T) {
	service, store, _ := newLedger(0)
	ctx := context.Background()
	item := mustMint(t, service, "alice", 100)
	service.IDGen = failingIDGen{}

	receipt, err := service.PurchaseItem(ctx, "bob", item.ItemID, 100)
	if err != nil {
		t.Fatalf("purchase with failing event append: %v", err)
	}
	if receipt.Fee != 2 || store.CreditedTo("alice") != 98 {
		t.Fatalf("expected the sale to commit normally, got fee=%d seller=%d",
			receipt.Fee, store.CreditedTo("alice"))
	}

	sold, err := service.GetItem(ctx, item.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !sold.IsSold || sold.CurrentOwner != "bob" {
		t.Fatalf("expected item sold to bob, got %+v", sold)
	}
	if got := eventCount(store, application.EventItemPurchased); got != 0 {
		t.Fatalf("expected no purchased event recorded, got %d", got)
	}
}

func TestCountsTrackSequences(t *testing.T) {
	service, _, _ := newLedger(0)
	ctx := context.Background()

	mustMint(t, service, "alice", 100)
	item := mustMint(t, service, "bob", 200)
	if _, err := service.CreateAuction(ctx, "bob", item.ItemID, 10, time.Hour); err != nil {
		t.Fatalf("create auction: %v", err)
	}

	counts, err := service.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Items != 2 || counts.Auctions != 1 {
		t.Fatalf("expected 2 items and 1 auction, got %+v", counts)
	}
}
