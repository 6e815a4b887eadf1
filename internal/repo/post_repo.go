// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model
// and its per-IP view tracking.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePost inserts a new Post row. The post ID is a randomly generated
// UUID (string), and CreatedAt is set to UTC.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) (*domain.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPublishedPost fetches a single published post by slug, preloading its
// tags. Returns ErrNotFound when the slug does not exist or the post is a
// draft.
func GetPublishedPost(ctx context.Context, db *gorm.DB, slug string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Preload("Tags").
		Where("slug = ? AND is_published = ?", slug, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPublishedPosts returns the number of published posts, optionally
// restricted to a category ("" matches all).
func CountPublishedPosts(ctx context.Context, db *gorm.DB, category string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Post{}).Where("is_published = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListPublishedPostsPage returns a page of published posts ordered by
// creation time descending (most recent first), optionally restricted to a
// category. It returns an empty slice when the page is beyond the end.
func ListPublishedPostsPage(ctx context.Context, db *gorm.DB, category string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	q := db.WithContext(ctx).
		Preload("Tags").
		Where("is_published = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAllPublishedPosts returns every published post, most recent first.
// Used to (re)build the in-memory search index.
func ListAllPublishedPosts(ctx context.Context, db *gorm.DB) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CreatePostView inserts a view row for (postID, ipAddress). The pair must
// be unique, enforced by the database schema (unique index). If a duplicate
// exists, the database will return an error which should be translated by
// the service layer into a repeated-view outcome.
func CreatePostView(ctx context.Context, db *gorm.DB, postID, ipAddress, userAgent string) error {
	v := &domain.PostView{
		ID:        uuid.NewString(),
		PostID:    postID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ViewedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(v).Error
}

// IncrementPostViewCount atomically adds one to the aggregate counter of the
// given post using a relative UPDATE (no read-modify-write on the row).
func IncrementPostViewCount(ctx context.Context, db *gorm.DB, postID string) error {
	return db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// GetPostViewCount reads the aggregate counter of a post.
func GetPostViewCount(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var row struct {
		ViewCount int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Select("view_count").
		Where("id = ?", postID).
		Scan(&row).Error
	return row.ViewCount, err
}

// CountUniquePostViews returns the number of distinct IPs recorded for a
// post. By construction this is simply the row count of post_views for the
// post, since (post_id, ip_address) is unique.
func CountUniquePostViews(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PostView{}).
		Where("post_id = ?", postID).
		Count(&total).Error
	return total, err
}
