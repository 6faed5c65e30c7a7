// Package repo implements the data persistence layer for the delivery log
// and idempotency records, backed by GORM. This file provides repository
// helpers for the Idempotency model used to make contact submissions safe
// to retry.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (client_key, key) pair.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, clientKey, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("client_key = ? AND key = ? AND expires_at > ?", clientKey, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, clientKey, key, fingerprint, deliveryID string, status int, message string, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:          uuid.NewString(),
		ClientKey:   clientKey,
		Key:         key,
		Fingerprint: fingerprint,
		DeliveryID:  deliveryID,
		Status:      status,
		Message:     message,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// ReserveIdempotency claims (clientKey, key) with a pending record before the
// submission is dispatched. An expired record for the same pair is cleared
// first. When a live record exists it returns that record with ErrDuplicate,
// so concurrent requests sharing a key cannot both dispatch.
func ReserveIdempotency(ctx context.Context, db *gorm.DB, clientKey, key, fingerprint string, now time.Time, pendingTTL time.Duration) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	err := db.WithContext(ctx).
		Where("client_key = ? AND key = ? AND expires_at <= ?", clientKey, key, now).
		Delete(&domain.Idempotency{}).Error
	if err != nil {
		return nil, err
	}

	rec := &domain.Idempotency{
		ID:          uuid.NewString(),
		ClientKey:   clientKey,
		Key:         key,
		Fingerprint: fingerprint,
		Status:      domain.IdempotencyPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(pendingTTL),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		existing, gerr := GetIdempotency(ctx, db, clientKey, key, now)
		if gerr != nil {
			return nil, gerr
		}
		return existing, ErrDuplicate
	}
	return rec, nil
}

// CompleteIdempotency turns a pending reservation into a replayable success.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, id, deliveryID string, status int, message string, expiresAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("id = ? AND status = ?", id, domain.IdempotencyPending).
		Updates(map[string]any{
			"delivery_id": deliveryID,
			"status":      status,
			"message":     message,
			"expires_at":  expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseIdempotency drops a pending reservation so the key can be retried.
// Completed records are left alone.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.IdempotencyPending).
		Delete(&domain.Idempotency{}).Error
}

// PurgeExpiredIdempotency deletes records whose expiry is at or before now
// and returns how many rows were removed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
