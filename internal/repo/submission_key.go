// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// SubmissionKey model used to implement safe-retry semantics for the
// public form POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
)

// ErrDuplicate indicates that a submission-key record already exists for the
// given (scope, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetSubmissionKey returns a non-expired record or ErrNotFound.
func GetSubmissionKey(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.SubmissionKey, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.SubmissionKey
	err := db.WithContext(ctx).
		Where("scope = ? AND key = ? AND expires_at > ?", scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateSubmissionKey inserts a record and returns ErrDuplicate on unique violation.
func CreateSubmissionKey(ctx context.Context, db *gorm.DB, scope, key, recordID string, status int, ttl time.Duration) (*domain.SubmissionKey, error) {
	now := time.Now().UTC()
	rec := &domain.SubmissionKey{
		ID:        uuid.NewString(),
		Scope:     scope,
		Key:       key,
		RecordID:  recordID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredSubmissionKeys deletes records whose TTL has elapsed. Invoked
// opportunistically from the admin surface; safe to call at any time.
func PurgeExpiredSubmissionKeys(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.SubmissionKey{})
	return res.RowsAffected, res.Error
}
