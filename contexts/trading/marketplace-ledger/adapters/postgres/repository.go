package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/domain/errors"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

const (
	eventStatusPending   = "pending"
	eventStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateItem(ctx context.Context, input ports.NewItemInput, now time.Time) (entities.Item, error) {
	row := itemModel{
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Seller:       input.Seller,
		CurrentOwner: input.Seller,
		IsSold:       false,
		MintedAt:     now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.Item{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetItem(ctx context.Context, itemID int64) (entities.Item, error) {
	var row itemModel
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Item{}, domainerrors.ErrItemNotFound
		}
		return entities.Item{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) MarkItemSold(ctx context.Context, itemID int64, newOwner string, soldAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&itemModel{}).
		Where("item_id = ? AND is_sold = ?", itemID, false).
		Updates(map[string]any{
			"current_owner": newOwner,
			"is_sold":       true,
			"updated_at":    soldAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetItem(ctx, itemID); err != nil {
			return err
		}
		return domainerrors.ErrItemAlreadySold
	}
	return nil
}

func (r *Repository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&itemModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) CreateAuction(ctx context.Context, input ports.NewAuctionInput, now time.Time) (entities.Auction, error) {
	row := auctionModel{
		ItemID:        input.ItemID,
		Seller:        input.Seller,
		StartPrice:    input.StartPrice,
		CurrentBid:    0,
		CurrentBidder: entities.NoBidder,
		EndTime:       input.EndTime.UTC(),
		IsActive:      true,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		// auctions_active_item_unique: one active auction per item.
		if isUniqueViolation(err) {
			return entities.Auction{}, domainerrors.ErrItemOnAuction
		}
		return entities.Auction{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetAuction(ctx context.Context, auctionID int64) (entities.Auction, error) {
	var row auctionModel
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Auction{}, domainerrors.ErrAuctionNotFound
		}
		return entities.Auction{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) HasActiveAuctionForItem(ctx context.Context, itemID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&auctionModel{}).
		Where("item_id = ? AND is_active = ?", itemID, true).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) RecordBid(
	ctx context.Context,
	auctionID int64,
	bidder string,
	amount int64,
	at time.Time,
) (entities.Auction, error) {
	result := r.db.WithContext(ctx).
		Model(&auctionModel{}).
		Where("auction_id = ? AND is_active = ? AND current_bid < ?", auctionID, true, amount).
		Updates(map[string]any{
			"current_bid":    amount,
			"current_bidder": bidder,
			"updated_at":     at.UTC(),
		})
	if result.Error != nil {
		return entities.Auction{}, result.Error
	}
	if result.RowsAffected == 0 {
		auction, err := r.GetAuction(ctx, auctionID)
		if err != nil {
			return entities.Auction{}, err
		}
		if !auction.IsActive {
			return entities.Auction{}, domainerrors.ErrAuctionInactive
		}
		return entities.Auction{}, domainerrors.ErrBidTooLow
	}
	return r.GetAuction(ctx, auctionID)
}

func (r *Repository) CloseAuction(ctx context.Context, auctionID int64, closedAt time.Time) (entities.Auction, error) {
	result := r.db.WithContext(ctx).
		Model(&auctionModel{}).
		Where("auction_id = ? AND is_active = ?", auctionID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Auction{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetAuction(ctx, auctionID); err != nil {
			return entities.Auction{}, err
		}
		return entities.Auction{}, domainerrors.ErrAuctionInactive
	}
	return r.GetAuction(ctx, auctionID)
}

func (r *Repository) CountAuctions(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&auctionModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) Transfer(ctx context.Context, account string, amount int64) error {
	if amount < 0 {
		return domainerrors.ErrLedgerInconsistent
	}
	row := accountCreditModel{
		Account: account,
		Balance: amount,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance": gorm.Expr("account_credits.balance + ?", amount),
			}),
		}).
		Create(&row).
		Error
}

func (r *Repository) Append(ctx context.Context, event ports.LedgerEvent) error {
	row := ledgerEventModel{
		EventID:    event.EventID,
		EventType:  event.EventType,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    []byte(event.Data),
		Status:     eventStatusPending,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrLedgerInconsistent
		}
		return err
	}
	return nil
}

func (r *Repository) ListPending(ctx context.Context, limit int) ([]ports.LedgerEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerEventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", eventStatusPending).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	events := make([]ports.LedgerEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toPort())
	}
	return events, nil
}

func (r *Repository) MarkPublished(ctx context.Context, eventID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerEventModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"status":       eventStatusPublished,
			"published_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrLedgerInconsistent
	}
	return nil
}

type itemModel struct {
	ItemID       int64     `gorm:"column:item_id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description"`
	Price        int64     `gorm:"column:price"`
	Seller       string    `gorm:"column:seller"`
	CurrentOwner string    `gorm:"column:current_owner"`
	IsSold       bool      `gorm:"column:is_sold"`
	MintedAt     time.Time `gorm:"column:minted_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (itemModel) TableName() string {
	return "items"
}

func (m itemModel) toEntity() entities.Item {
	return entities.Item{
		ItemID:       m.ItemID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		Seller:       m.Seller,
		CurrentOwner: m.CurrentOwner,
		IsSold:       m.IsSold,
		MintedAt:     m.MintedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type auctionModel struct {
	AuctionID     int64     `gorm:"column:auction_id;primaryKey;autoIncrement"`
	ItemID        int64     `gorm:"column:item_id"`
	Seller        string    `gorm:"column:seller"`
	StartPrice    int64     `gorm:"column:start_price"`
	CurrentBid    int64     `gorm:"column:current_bid"`
	CurrentBidder string    `gorm:"column:current_bidder"`
	EndTime       time.Time `gorm:"column:end_time"`
	IsActive      bool      `gorm:"column:is_active"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (auctionModel) TableName() string {
	return "auctions"
}

func (m auctionModel) toEntity() entities.Auction {
	return entities.Auction{
		AuctionID:     m.AuctionID,
		ItemID:        m.ItemID,
		Seller:        m.Seller,
		StartPrice:    m.StartPrice,
		CurrentBid:    m.CurrentBid,
		CurrentBidder: m.CurrentBidder,
		EndTime:       m.EndTime.UTC(),
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type ledgerEventModel struct {
	EventID     string     `gorm:"column:event_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	EntityType  string     `gorm:"column:entity_type"`
	EntityID    int64      `gorm:"column:entity_id"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	OccurredAt  time.Time  `gorm:"column:occurred_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (ledgerEventModel) TableName() string {
	return "ledger_events"
}

func (m ledgerEventModel) toPort() ports.LedgerEvent {
	return ports.LedgerEvent{
		EventID:    m.EventID,
		EventType:  m.EventType,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		OccurredAt: m.OccurredAt.UTC(),
		Data:       m.Payload,
	}
}

type accountCreditModel struct {
	Account   string    `gorm:"column:account;primaryKey"`
	Balance   int64     `gorm:"column:balance"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (accountCreditModel) TableName() string {
	return "account_credits"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
