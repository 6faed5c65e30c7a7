// Package repo implements the data persistence layer for the delivery log
// and idempotency records, backed by GORM. This file provides repository
// functions for the Delivery model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - When a delivery is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateDelivery appends one dispatch outcome to the delivery log.
// The ID is a random UUID and CreatedAt is set to UTC now.
func CreateDelivery(ctx context.Context, db *gorm.DB, d *domain.Delivery) (*domain.Delivery, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDelivery fetches a single delivery by ID, or ErrNotFound if missing.
func GetDelivery(ctx context.Context, db *gorm.DB, id string) (*domain.Delivery, error) {
	var d domain.Delivery
	if err := db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeliveries returns the most recent deliveries for clientKey, newest
// first, capped at limit rows (limit <= 0 means 50).
func ListDeliveries(ctx context.Context, db *gorm.DB, clientKey string, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Delivery
	err := db.WithContext(ctx).
		Where("client_key = ?", clientKey).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeliveryStats returns per-outcome counts of deliveries created at or after
// since, plus the timestamp of the latest delivery in that range (nil when
// there are none).
func DeliveryStats(ctx context.Context, db *gorm.DB, since time.Time) (counts map[string]int64, latest *time.Time, err error) {
	var rows []struct {
		Outcome string
		N       int64
	}
	q := db.WithContext(ctx).Model(&domain.Delivery{}).Where("created_at >= ?", since).Session(&gorm.Session{})
	if err = q.
		Select("outcome, COUNT(*) AS n").
		Group("outcome").
		Scan(&rows).Error; err != nil {
		return nil, nil, err
	}
	counts = make(map[string]int64, len(rows))
	var total int64
	for _, r := range rows {
		counts[r.Outcome] = r.N
		total += r.N
	}
	if total == 0 {
		return counts, nil, nil
	}

	// Latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return nil, nil, err
	}
	return counts, &row.CreatedAt, nil
}
