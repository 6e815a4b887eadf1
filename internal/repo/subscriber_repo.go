// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Subscriber
// model.
//
// Error semantics:
//   - Duplicate subscribers (same normalized email) rely on the database
//     unique constraint and are returned as a raw DB error. The service
//     layer should translate that into a domain outcome.
//   - When a subscriber is not found, functions return ErrNotFound.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
)

// SubscriberFilter narrows admin list queries. Nil pointers mean "no filter".
type SubscriberFilter struct {
	Active  *bool
	Relayed *bool
}

func (f SubscriberFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Relayed != nil {
		q = q.Where("relayed_to_automation = ?", *f.Relayed)
	}
	return q
}

// GetSubscriberByEmail fetches a subscriber by already-normalized email, or
// ErrNotFound. Normalization (trim + lowercase) is the caller's job so the
// repo never masks a lookup with the wrong case.
func GetSubscriberByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	if err := db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriber inserts a new subscriber row. The caller supplies a fully
// populated row; the unique index on email is the duplicate backstop.
func CreateSubscriber(ctx context.Context, db *gorm.DB, sub *domain.Subscriber) error {
	return db.WithContext(ctx).Create(sub).Error
}

// ReactivateSubscriber flips an inactive subscriber back to active in place,
// preserving the row identity. It refreshes consent and capture metadata and
// clears the unsubscribe timestamp. The name is overwritten only when the
// caller passes a non-empty value.
func ReactivateSubscriber(ctx context.Context, db *gorm.DB, id, name, ip, userAgent, sourcePage string) error {
	updates := map[string]any{
		"is_active":       true,
		"unsubscribed_at": nil,
		"consent_at":      time.Now().UTC(),
		"ip_address":      ip,
		"user_agent":      userAgent,
		"source_page":     sourcePage,
	}
	if name != "" {
		updates["name"] = name
	}
	return db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeactivateSubscriber marks a subscriber unsubscribed, stamping the
// unsubscribe time so the active/unsubscribed invariant holds.
func DeactivateSubscriber(ctx context.Context, db *gorm.DB, id string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":       false,
			"unsubscribed_at": &now,
		}).Error
}

// MarkSubscriberRelayed flips the automation-relay flag after a confirmed
// webhook delivery.
func MarkSubscriberRelayed(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("id = ?", id).
		UpdateColumn("relayed_to_automation", true).Error
}

// CountSubscribers returns the total subscribers matching filter.
func CountSubscribers(ctx context.Context, db *gorm.DB, filter SubscriberFilter) (int64, error) {
	var total int64
	err := filter.apply(db.WithContext(ctx).Model(&domain.Subscriber{})).Count(&total).Error
	return total, err
}

// ListSubscribersPage returns a page of subscribers matching filter, most
// recently subscribed first.
func ListSubscribersPage(ctx context.Context, db *gorm.DB, filter SubscriberFilter, offset, limit int) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	err := filter.apply(db.WithContext(ctx).Model(&domain.Subscriber{})).
		Order("subscribed_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListUnrelayedActiveSubscribers returns active subscribers whose signup was
// never confirmed by the automation webhook. Used by the admin resend
// operation.
func ListUnrelayedActiveSubscribers(ctx context.Context, db *gorm.DB, limit int) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	q := db.WithContext(ctx).
		Where("is_active = ? AND relayed_to_automation = ?", true, false).
		Order("subscribed_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
