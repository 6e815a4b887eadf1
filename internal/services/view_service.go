// Package services – ViewService
//
// This file implements the unique-visitor view tracker for blog articles.
// A view counts toward an article's aggregate counter only the first time a
// given IP address opens it; repeated visits from the same IP are recorded
// nowhere and change nothing. The unique index on (post_id, ip_address) is
// the single source of truth: a concurrent insert race is resolved by
// treating the constraint violation as "already seen", never by surfacing
// an error or double-incrementing.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/repo"
)

// maxUserAgentLen caps stored user-agent strings, matching the column width.
const maxUserAgentLen = 500

// ViewResult reports the outcome of recording a view.
type ViewResult struct {
	// IsNewView is true when this was the first recorded visit from the IP.
	IsNewView bool `json:"is_new_view"`
	// TotalViews is the updated aggregate counter. It may exceed
	// UniqueViews because it can include views recorded before per-IP
	// tracking existed.
	TotalViews int64 `json:"total_views"`
	// UniqueViews is the number of distinct IPs that have opened the post.
	UniqueViews int64 `json:"unique_views"`
}

// ViewService implements the per-IP view deduplication use-case.
type ViewService struct {
	// DB is the database handle used for all view operations.
	DB *gorm.DB
}

// RecordView registers a visit from ipAddress to postID and returns the
// updated counters.
//
// Semantics:
//   - First visit from the IP: a PostView row is inserted and the post's
//     aggregate counter is incremented by exactly 1, both inside a single
//     transaction so a crash cannot leave one without the other.
//   - Repeated visit: nothing is written; the current counters are returned
//     with IsNewView=false.
//   - Two concurrent first visits from the same IP: exactly one insert wins;
//     the loser observes the unique-constraint violation and resolves it as
//     a repeated view. The counter moves by 1 in total.
//
// Errors are returned for storage faults only; callers on the page-render
// path are expected to fail open (serve the page with last-known counters).
func (s *ViewService) RecordView(ctx context.Context, postID, ipAddress, userAgent string) (*ViewResult, error) {
	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}

	isNew := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreatePostView(ctx, tx, postID, ipAddress, userAgent); err != nil {
			if isDuplicate(err) {
				// Already seen this IP for this post: repeated view.
				return nil
			}
			return err
		}
		isNew = true
		return repo.IncrementPostViewCount(ctx, tx, postID)
	})
	if err != nil {
		return nil, err
	}

	total, err := repo.GetPostViewCount(ctx, s.DB, postID)
	if err != nil {
		return nil, err
	}
	unique, err := repo.CountUniquePostViews(ctx, s.DB, postID)
	if err != nil {
		return nil, err
	}

	return &ViewResult{IsNewView: isNew, TotalViews: total, UniqueViews: unique}, nil
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
