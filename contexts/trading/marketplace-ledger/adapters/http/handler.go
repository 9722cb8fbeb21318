package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
	httptransport "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

// MintItemHandler godoc
// @Summary Mint an item
// @Description Registers a new item for sale owned by the caller.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param request body httptransport.MintItemRequest true "Mint payload"
// @Success 201 {object} httptransport.MintItemResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Router /v1/market/items [post]
func (h Handler) MintItemHandler(
	ctx context.Context,
	caller string,
	req httptransport.MintItemRequest,
) (httptransport.MintItemResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("mint item request received",
		"event", "http_mint_item_received",
		"module", "trading/marketplace-ledger",
		"layer", "transport",
		"seller", caller,
	)

	item, err := h.Service.MintItem(ctx, caller, req.Name, req.Description, req.Price)
	if err != nil {
		return httptransport.MintItemResponse{}, err
	}
	return httptransport.MintItemResponse{Item: mapItem(item)}, nil
}

// GetItemHandler godoc
// @Summary Get item details
// @Description Returns one item by id.
// @Tags marketplace-ledger
// @Produce json
// @Param item_id path int true "Item id"
// @Success 200 {object} httptransport.GetItemResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/market/items/{item_id} [get]
func (h Handler) GetItemHandler(ctx context.Context, itemID int64) (httptransport.GetItemResponse, error) {
	item, err := h.Service.GetItem(ctx, itemID)
	if err != nil {
		return httptransport.GetItemResponse{}, err
	}
	return httptransport.GetItemResponse{Item: mapItem(item)}, nil
}

// PurchaseItemHandler godoc
// @Summary Purchase an item
// @Description Buys an unsold item at or above its listed price; the operator fee is split off the price.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param item_id path int true "Item id"
// @Param request body httptransport.PurchaseItemRequest true "Payment payload"
// @Success 200 {object} httptransport.PurchaseItemResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/market/items/{item_id}/purchase [post]
func (h Handler) PurchaseItemHandler(
	ctx context.Context,
	caller string,
	itemID int64,
	req httptransport.PurchaseItemRequest,
) (httptransport.PurchaseItemResponse, error) {
	receipt, err := h.Service.PurchaseItem(ctx, caller, itemID, req.AmountPaid)
	if err != nil {
		return httptransport.PurchaseItemResponse{}, err
	}
	return httptransport.PurchaseItemResponse{
		Item:           mapItem(receipt.Item),
		Buyer:          receipt.Buyer,
		Price:          receipt.Price,
		Fee:            receipt.Fee,
		SellerProceeds: receipt.SellerProceeds,
	}, nil
}

// CreateAuctionHandler godoc
// @Summary Create an auction
// @Description Opens a timed ascending-price auction for an unsold item owned by the caller.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param request body httptransport.CreateAuctionRequest true "Auction payload"
// @Success 201 {object} httptransport.CreateAuctionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/market/auctions [post]
func (h Handler) CreateAuctionHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateAuctionRequest,
) (httptransport.CreateAuctionResponse, error) {
	auction, err := h.Service.CreateAuction(
		ctx,
		caller,
		req.ItemID,
		req.StartPrice,
		time.Duration(req.DurationSeconds)*time.Second,
	)
	if err != nil {
		return httptransport.CreateAuctionResponse{}, err
	}
	return httptransport.CreateAuctionResponse{Auction: mapAuction(auction)}, nil
}

// GetAuctionHandler godoc
// @Summary Get auction details
// @Description Returns one auction by id.
// @Tags marketplace-ledger
// @Produce json
// @Param auction_id path int true "Auction id"
// @Success 200 {object} httptransport.GetAuctionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/market/auctions/{auction_id} [get]
func (h Handler) GetAuctionHandler(ctx context.Context, auctionID int64) (httptransport.GetAuctionResponse, error) {
	auction, err := h.Service.GetAuction(ctx, auctionID)
	if err != nil {
		return httptransport.GetAuctionResponse{}, err
	}
	return httptransport.GetAuctionResponse{Auction: mapAuction(auction)}, nil
}

// PlaceBidHandler godoc
// @Summary Place a bid
// @Description Escrows a bid above the current one; the outbid participant is refunded.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param auction_id path int true "Auction id"
// @Param request body httptransport.PlaceBidRequest true "Bid payload"
// @Success 200 {object} httptransport.PlaceBidResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 410 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/market/auctions/{auction_id}/bids [post]
func (h Handler) PlaceBidHandler(
	ctx context.Context,
	caller string,
	auctionID int64,
	req httptransport.PlaceBidRequest,
) (httptransport.PlaceBidResponse, error) {
	auction, err := h.Service.PlaceBid(ctx, caller, auctionID, req.Amount)
	if err != nil {
		return httptransport.PlaceBidResponse{}, err
	}
	return httptransport.PlaceBidResponse{Auction: mapAuction(auction)}, nil
}

// EndAuctionHandler godoc
// @Summary End an auction
// @Description Settles an expired auction; any caller may trigger settlement.
// @Tags marketplace-ledger
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param auction_id path int true "Auction id"
// @Success 200 {object} httptransport.EndAuctionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/market/auctions/{auction_id}/end [post]
func (h Handler) EndAuctionHandler(
	ctx context.Context,
	caller string,
	auctionID int64,
) (httptransport.EndAuctionResponse, error) {
	receipt, err := h.Service.EndAuction(ctx, caller, auctionID)
	if err != nil {
		return httptransport.EndAuctionResponse{}, err
	}
	return httptransport.EndAuctionResponse{
		Auction:  mapAuction(receipt.Auction),
		Winner:   receipt.Winner,
		FinalBid: receipt.FinalBid,
		Fee:      receipt.Fee,
		Settled:  receipt.Winner != entities.NoBidder,
	}, nil
}

// StatsHandler godoc
// @Summary Ledger counters
// @Description Returns the total number of items and auctions ever created.
// @Tags marketplace-ledger
// @Produce json
// @Success 200 {object} httptransport.StatsResponse
// @Router /v1/market/stats [get]
func (h Handler) StatsHandler(ctx context.Context) (httptransport.StatsResponse, error) {
	counts, err := h.Service.Counts(ctx)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	return httptransport.StatsResponse{
		ItemCount:    counts.Items,
		AuctionCount: counts.Auctions,
	}, nil
}

func mapItem(item entities.Item) httptransport.ItemDTO {
	return httptransport.ItemDTO{
		ItemID:       item.ItemID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        item.Price,
		Seller:       item.Seller,
		CurrentOwner: item.CurrentOwner,
		IsSold:       item.IsSold,
		MintedAt:     item.MintedAt.UTC().Format(time.RFC3339),
	}
}

func mapAuction(auction entities.Auction) httptransport.AuctionDTO {
	return httptransport.AuctionDTO{
		AuctionID:     auction.AuctionID,
		ItemID:        auction.ItemID,
		Seller:        auction.Seller,
		StartPrice:    auction.StartPrice,
		CurrentBid:    auction.CurrentBid,
		CurrentBidder: auction.CurrentBidder,
		EndTime:       auction.EndTime.UTC().Format(time.RFC3339),
		IsActive:      auction.IsActive,
	}
}
