// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the two
// lead-capture models (AdvisoryLead, QuoteLead).
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving validation and relay orchestration to the
// services package. Lead rows are insert-then-flag-flip only; nothing here
// deletes them.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
)

// LeadFilter narrows admin list queries. Nil pointers mean "no filter".
type LeadFilter struct {
	Processed *bool
	Relayed   *bool
}

func (f LeadFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Processed != nil {
		q = q.Where("processed = ?", *f.Processed)
	}
	if f.Relayed != nil {
		q = q.Where("relayed = ?", *f.Relayed)
	}
	return q
}

// CreateAdvisoryLead inserts an advisory submission. The caller supplies a
// fully populated row (ID, SubmittedAt included); the repo does not default
// any field so the service layer stays the single place deciding timestamps.
func CreateAdvisoryLead(ctx context.Context, db *gorm.DB, lead *domain.AdvisoryLead) error {
	return db.WithContext(ctx).Create(lead).Error
}

// CreateQuoteLead inserts a quotation submission.
func CreateQuoteLead(ctx context.Context, db *gorm.DB, lead *domain.QuoteLead) error {
	return db.WithContext(ctx).Create(lead).Error
}

// GetAdvisoryLead fetches an advisory submission by ID, or ErrNotFound.
func GetAdvisoryLead(ctx context.Context, db *gorm.DB, id string) (*domain.AdvisoryLead, error) {
	var lead domain.AdvisoryLead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// GetQuoteLead fetches a quotation submission by ID, or ErrNotFound.
func GetQuoteLead(ctx context.Context, db *gorm.DB, id string) (*domain.QuoteLead, error) {
	var lead domain.QuoteLead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// MarkAdvisoryRelayed flips the relayed flag after a confirmed webhook
// delivery. It touches nothing else on the row.
func MarkAdvisoryRelayed(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.AdvisoryLead{}).
		Where("id = ?", id).
		UpdateColumn("relayed", true).Error
}

// MarkQuoteRelayed flips the relayed flag after a confirmed webhook delivery.
func MarkQuoteRelayed(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.QuoteLead{}).
		Where("id = ?", id).
		UpdateColumn("relayed", true).Error
}

// SetAdvisoryProcessed bulk-updates the processed flag for the given IDs.
// ProcessedAt is set when marking processed and cleared when unmarking, so
// the "processed_at set iff processed" invariant holds. Returns the number
// of rows updated.
func SetAdvisoryProcessed(ctx context.Context, db *gorm.DB, ids []string, processed bool) (int64, error) {
	updates := processedUpdates(processed)
	res := db.WithContext(ctx).
		Model(&domain.AdvisoryLead{}).
		Where("id IN ?", ids).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// SetQuoteProcessed bulk-updates the processed flag for the given IDs.
func SetQuoteProcessed(ctx context.Context, db *gorm.DB, ids []string, processed bool) (int64, error) {
	updates := processedUpdates(processed)
	res := db.WithContext(ctx).
		Model(&domain.QuoteLead{}).
		Where("id IN ?", ids).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func processedUpdates(processed bool) map[string]any {
	if processed {
		now := time.Now().UTC()
		return map[string]any{"processed": true, "processed_at": &now}
	}
	return map[string]any{"processed": false, "processed_at": nil}
}

// CountAdvisoryLeads returns the total advisory submissions matching filter.
func CountAdvisoryLeads(ctx context.Context, db *gorm.DB, filter LeadFilter) (int64, error) {
	var total int64
	err := filter.apply(db.WithContext(ctx).Model(&domain.AdvisoryLead{})).Count(&total).Error
	return total, err
}

// ListAdvisoryLeadsPage returns a page of advisory submissions matching
// filter, most recent first.
func ListAdvisoryLeadsPage(ctx context.Context, db *gorm.DB, filter LeadFilter, offset, limit int) ([]domain.AdvisoryLead, error) {
	var out []domain.AdvisoryLead
	err := filter.apply(db.WithContext(ctx).Model(&domain.AdvisoryLead{})).
		Order("submitted_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountQuoteLeads returns the total quotation submissions matching filter.
func CountQuoteLeads(ctx context.Context, db *gorm.DB, filter LeadFilter) (int64, error) {
	var total int64
	err := filter.apply(db.WithContext(ctx).Model(&domain.QuoteLead{})).Count(&total).Error
	return total, err
}

// ListQuoteLeadsPage returns a page of quotation submissions matching
// filter, most recent first.
func ListQuoteLeadsPage(ctx context.Context, db *gorm.DB, filter LeadFilter, offset, limit int) ([]domain.QuoteLead, error) {
	var out []domain.QuoteLead
	err := filter.apply(db.WithContext(ctx).Model(&domain.QuoteLead{})).
		Order("submitted_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListQuoteLeads returns every quotation submission matching filter, most
// recent first. Used by the CSV export, which is unpaginated by design.
func ListQuoteLeads(ctx context.Context, db *gorm.DB, filter LeadFilter) ([]domain.QuoteLead, error) {
	var out []domain.QuoteLead
	err := filter.apply(db.WithContext(ctx).Model(&domain.QuoteLead{})).
		Order("submitted_at desc").
		Find(&out).Error
	return out, err
}
