package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"

	marketplaceledger "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger"
	marketdomainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
	markethttp "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/transport/http"
	_ "github.com/dionatanalves/croakmarket/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	market marketplaceledger.Module
}

func New(market marketplaceledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		market: market,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/market/items", s.handleMintItem)
	s.mux.HandleFunc("GET /v1/market/items/{item_id}", s.handleGetItem)
	s.mux.HandleFunc("POST /v1/market/items/{item_id}/purchase", s.handlePurchaseItem)
	s.mux.HandleFunc("POST /v1/market/auctions", s.handleCreateAuction)
	s.mux.HandleFunc("GET /v1/market/auctions/{auction_id}", s.handleGetAuction)
	s.mux.HandleFunc("POST /v1/market/auctions/{auction_id}/bids", s.handlePlaceBid)
	s.mux.HandleFunc("POST /v1/market/auctions/{auction_id}/end", s.handleEndAuction)
	s.mux.HandleFunc("GET /v1/market/stats", s.handleStats)
}

func (s *Server) handleMintItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req markethttp.MintItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.MintItemHandler(r.Context(), caller, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(w, r.PathValue("item_id"), "item_id")
	if !ok {
		return
	}

	resp, err := s.market.Handler.GetItemHandler(r.Context(), itemID)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePurchaseItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	itemID, ok := parseID(w, r.PathValue("item_id"), "item_id")
	if !ok {
		return
	}

	var req markethttp.PurchaseItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.PurchaseItemHandler(r.Context(), caller, itemID, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req markethttp.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.CreateAuctionHandler(r.Context(), caller, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := parseID(w, r.PathValue("auction_id"), "auction_id")
	if !ok {
		return
	}

	resp, err := s.market.Handler.GetAuctionHandler(r.Context(), auctionID)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := parseID(w, r.PathValue("auction_id"), "auction_id")
	if !ok {
		return
	}

	var req markethttp.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.PlaceBidHandler(r.Context(), caller, auctionID, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := parseID(w, r.PathValue("auction_id"), "auction_id")
	if !ok {
		return
	}

	resp, err := s.market.Handler.EndAuctionHandler(r.Context(), caller, auctionID)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.market.Handler.StatsHandler(r.Context())
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeMarketError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func parseID(w http.ResponseWriter, raw string, field string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeMarketError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeMarketDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketdomainerrors.ErrInvalidItemInput):
		writeMarketError(w, http.StatusBadRequest, "invalid_item_input", err.Error())
	case errors.Is(err, marketdomainerrors.ErrInvalidAuctionInput):
		writeMarketError(w, http.StatusBadRequest, "invalid_auction_input", err.Error())
	case errors.Is(err, marketdomainerrors.ErrItemNotFound):
		writeMarketError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAuctionNotFound):
		writeMarketError(w, http.StatusNotFound, "auction_not_found", err.Error())
	case errors.Is(err, marketdomainerrors.ErrNotItemOwner):
		writeMarketError(w, http.StatusForbidden, "not_item_owner", err.Error())
	case errors.Is(err, marketdomainerrors.ErrInsufficientPayment):
		writeMarketError(w, http.StatusPaymentRequired, "insufficient_payment", err.Error())
	case errors.Is(err, marketdomainerrors.ErrItemAlreadySold):
		writeMarketError(w, http.StatusConflict, "item_already_sold", err.Error())
	case errors.Is(err, marketdomainerrors.ErrItemOnAuction):
		writeMarketError(w, http.StatusConflict, "item_on_auction", err.Error())
	case errors.Is(err, marketdomainerrors.ErrBidTooLow):
		writeMarketError(w, http.StatusConflict, "bid_too_low", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAuctionInactive):
		writeMarketError(w, http.StatusConflict, "auction_inactive", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAuctionStillOpen):
		writeMarketError(w, http.StatusConflict, "auction_still_open", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAuctionExpired):
		writeMarketError(w, http.StatusGone, "auction_expired", err.Error())
	case errors.Is(err, marketdomainerrors.ErrTransferFailed):
		writeMarketError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	default:
		writeMarketError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeMarketError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, markethttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
