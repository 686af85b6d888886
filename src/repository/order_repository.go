// repository/order_repository.go
package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradebot/src/database"
	"tradebot/src/model"
)

// OrderRepository persists the order attempt journal.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance bound to the shared
// database connection.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{db: database.DB}
}

// WithDB allows overriding the underlying *gorm.DB instance. Useful for
// tests or custom sessions/transactions.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// RecordOrder inserts one order attempt row.
func (r *OrderRepository) RecordOrder(ctx context.Context, record *model.OrderRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OrderRepository",
			"op":     "RecordOrder",
			"symbol": record.Symbol,
			"side":   record.Side,
		}).WithError(err).Error("Failed to insert order record")
		return err
	}
	return nil
}

// FindLatest fetches the latest order records, newest first.
func (r *OrderRepository) FindLatest(ctx context.Context, limit int) ([]model.OrderRecord, error) {
	if limit <= 0 {
		limit = 10 // default safety limit
	}

	var records []model.OrderRecord
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "OrderRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest order records")
		return nil, err
	}
	return records, nil
}

// FindBySymbol fetches records for one symbol within a created-at window.
// Either bound may be zero to leave that side open.
func (r *OrderRepository) FindBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]model.OrderRecord, error) {
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at <= ?", to)
	}

	var records []model.OrderRecord
	if err := q.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OrderRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch order records by symbol")
		return nil, err
	}
	return records, nil
}
