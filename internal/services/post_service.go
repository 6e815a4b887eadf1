// Package services – PostService
//
// This file implements the read side of the blog: fetching a published
// article with its Markdown body rendered to sanitized HTML, listing the
// published catalogue, and keyword search over it. Rendering happens at
// read time so stored content stays canonical Markdown.
package services

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/search"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Article is a published post prepared for display: the raw Markdown plus
// its sanitized HTML rendering and current view counters.
type Article struct {
	domain.Post
	ContentHTML string `json:"content_html"`
	UniqueViews int64  `json:"unique_views"`
}

// PostService implements the public blog read use-cases. The search index
// is rebuilt lazily after the published set changes; Reindex invalidates it.
type PostService struct {
	DB *gorm.DB

	mu  sync.RWMutex
	idx search.Index
}

// GetArticle fetches the published post with the given slug, with its body
// rendered to sanitized HTML. Returns ErrPostNotFound when the slug is
// unknown or the post is a draft.
func (s *PostService) GetArticle(ctx context.Context, slug string) (*Article, error) {
	p, err := repo.GetPublishedPost(ctx, s.DB, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	htmlBody, err := renderMarkdown(p.Content)
	if err != nil {
		return nil, err
	}
	unique, err := repo.CountUniquePostViews(ctx, s.DB, p.ID)
	if err != nil {
		return nil, err
	}

	return &Article{Post: *p, ContentHTML: htmlBody, UniqueViews: unique}, nil
}

// PostPage is one page of the published catalogue.
type PostPage struct {
	Posts   []domain.Post `json:"posts"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Total   int64         `json:"total"`
}

// ListPublished returns a page of published posts, newest first, optionally
// filtered by category. Page numbers are 1-based; out-of-range pages yield
// an empty slice, not an error.
func (s *PostService) ListPublished(ctx context.Context, category string, page, perPage int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	total, err := repo.CountPublishedPosts(ctx, s.DB, category)
	if err != nil {
		return nil, err
	}
	posts, err := repo.ListPublishedPostsPage(ctx, s.DB, category, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}

	return &PostPage{Posts: posts, Page: page, PerPage: perPage, Total: total}, nil
}

// CatalogStats reports the size and latest update time of the published
// catalogue. The HTTP layer derives cache validators from it.
func (s *PostService) CatalogStats(ctx context.Context) (int64, *time.Time, error) {
	return repo.PublishedPostsStats(ctx, s.DB)
}

// Search ranks published posts against the query and returns up to k
// references. The index is built on first use and reused until Reindex.
func (s *PostService) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.TopK(query, k), nil
}

// Reindex drops the cached search index so the next Search rebuilds it from
// the current published set. Call after publishing or unpublishing posts.
func (s *PostService) Reindex() {
	s.mu.Lock()
	s.idx = nil
	s.mu.Unlock()
}

func (s *PostService) index(ctx context.Context) (search.Index, error) {
	s.mu.RLock()
	idx := s.idx
	s.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	posts, err := repo.ListAllPublishedPosts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Document, 0, len(posts))
	for i := range posts {
		docs = append(docs, search.Document{
			Ref:   posts[i].Slug,
			Title: posts[i].Title,
			Body:  search.StripMarkdown(posts[i].Excerpt + "\n" + posts[i].Content),
		})
	}
	idx = search.NewIndexFromDocuments(docs)

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
	return idx, nil
}

func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return sanitizer.Sanitize(buf.String()), nil
}
