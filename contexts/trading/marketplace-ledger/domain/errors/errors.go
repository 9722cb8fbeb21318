package errors

import "errors"

var (
	ErrInvalidItemInput    = errors.New("invalid item input")
	ErrInvalidAuctionInput = errors.New("invalid auction input")
	ErrItemNotFound        = errors.New("item not found")
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrItemAlreadySold     = errors.New("item already sold")
	ErrNotItemOwner        = errors.New("caller does not own item")
	ErrItemOnAuction       = errors.New("item already has an active auction")
	ErrInsufficientPayment = errors.New("payment below item price")
	ErrBidTooLow           = errors.New("bid must exceed current bid")
	ErrAuctionInactive     = errors.New("auction is not active")
	ErrAuctionExpired      = errors.New("auction deadline passed")
	ErrAuctionStillOpen    = errors.New("auction deadline not reached")
	ErrTransferFailed      = errors.New("value transfer failed")
	ErrLedgerInconsistent  = errors.New("ledger invariant violated")
)
