package entities

import (
	"strings"
	"time"

	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
)

// NoBidder is the bidder value of an auction that has not received a bid.
const NoBidder = ""

type Auction struct {
	AuctionID     int64
	ItemID        int64
	Seller        string
	StartPrice    int64
	CurrentBid    int64
	CurrentBidder string
	EndTime       time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAuction opens an auction for an item. The deadline is fixed at creation
// and bids start from zero regardless of start price.
func NewAuction(
	auctionID int64,
	itemID int64,
	seller string,
	startPrice int64,
	duration time.Duration,
	createdAt time.Time,
) (Auction, error) {
	if auctionID <= 0 || itemID <= 0 || strings.TrimSpace(seller) == "" {
		return Auction{}, domainerrors.ErrInvalidAuctionInput
	}
	if startPrice < 0 || duration <= 0 {
		return Auction{}, domainerrors.ErrInvalidAuctionInput
	}

	return Auction{
		AuctionID:     auctionID,
		ItemID:        itemID,
		Seller:        seller,
		StartPrice:    startPrice,
		CurrentBid:    0,
		CurrentBidder: NoBidder,
		EndTime:       createdAt.UTC().Add(duration),
		IsActive:      true,
		CreatedAt:     createdAt.UTC(),
		UpdatedAt:     createdAt.UTC(),
	}, nil
}

func (a Auction) HasBid() bool {
	return a.CurrentBidder != NoBidder
}

// Expired reports whether the deadline has passed. Bids are accepted up to and
// including the deadline instant; settlement requires strictly after.
func (a Auction) Expired(now time.Time) bool {
	return now.UTC().After(a.EndTime)
}

func (a Auction) Outbids(amount int64) bool {
	return amount > a.CurrentBid
}
