package entities

import (
	"strings"
	"time"

	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
)

type Item struct {
	ItemID       int64
	Name         string
	Description  string
	Price        int64
	Seller       string
	CurrentOwner string
	IsSold       bool
	MintedAt     time.Time
	UpdatedAt    time.Time
}

// NewItem builds a freshly minted item. Seller and current owner start equal;
// the sold flag only ever flips false to true.
func NewItem(
	itemID int64,
	name string,
	description string,
	price int64,
	seller string,
	mintedAt time.Time,
) (Item, error) {
	if itemID <= 0 ||
		strings.TrimSpace(name) == "" ||
		strings.TrimSpace(description) == "" ||
		strings.TrimSpace(seller) == "" {
		return Item{}, domainerrors.ErrInvalidItemInput
	}
	if price <= 0 {
		return Item{}, domainerrors.ErrInvalidItemInput
	}

	return Item{
		ItemID:       itemID,
		Name:         name,
		Description:  description,
		Price:        price,
		Seller:       seller,
		CurrentOwner: seller,
		IsSold:       false,
		MintedAt:     mintedAt.UTC(),
		UpdatedAt:    mintedAt.UTC(),
	}, nil
}

func (i Item) Purchasable() bool {
	return !i.IsSold
}

func (i Item) OwnedBy(principal string) bool {
	return i.CurrentOwner == principal
}
