package httptransport

type ItemDTO struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Seller       string `json:"seller"`
	CurrentOwner string `json:"current_owner"`
	IsSold       bool   `json:"is_sold"`
	MintedAt     string `json:"minted_at"`
}

type AuctionDTO struct {
	AuctionID     int64  `json:"auction_id"`
	ItemID        int64  `json:"item_id"`
	Seller        string `json:"seller"`
	StartPrice    int64  `json:"start_price"`
	CurrentBid    int64  `json:"current_bid"`
	CurrentBidder string `json:"current_bidder,omitempty"`
	EndTime       string `json:"end_time"`
	IsActive      bool   `json:"is_active"`
}

type MintItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

type MintItemResponse struct {
	Item ItemDTO `json:"item"`
}

type GetItemResponse struct {
	Item ItemDTO `json:"item"`
}

type PurchaseItemRequest struct {
	AmountPaid int64 `json:"amount_paid"`
}

type PurchaseItemResponse struct {
	Item           ItemDTO `json:"item"`
	Buyer          string  `json:"buyer"`
	Price          int64   `json:"price"`
	Fee            int64   `json:"fee"`
	SellerProceeds int64   `json:"seller_proceeds"`
}

type CreateAuctionRequest struct {
	ItemID          int64 `json:"item_id"`
	StartPrice      int64 `json:"start_price"`
	DurationSeconds int64 `json:"duration_seconds"`
}

type CreateAuctionResponse struct {
	Auction AuctionDTO `json:"auction"`
}

type GetAuctionResponse struct {
	Auction AuctionDTO `json:"auction"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount"`
}

type PlaceBidResponse struct {
	Auction AuctionDTO `json:"auction"`
}

type EndAuctionResponse struct {
	Auction  AuctionDTO `json:"auction"`
	Winner   string     `json:"winner,omitempty"`
	FinalBid int64      `json:"final_bid"`
	Fee      int64      `json:"fee"`
	Settled  bool       `json:"settled"`
}

type StatsResponse struct {
	ItemCount    int64 `json:"item_count"`
	AuctionCount int64 `json:"auction_count"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
