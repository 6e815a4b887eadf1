// Blog HTTP handlers.
//
// This file exposes the public blog endpoints:
//   - GET /posts        (published catalogue, paginated, ETag support, search)
//   - GET /posts/{slug} (single article with rendered HTML and view counts)
//
// Opening an article records a unique view keyed by client IP. View tracking
// is fail-open: if storage misbehaves the article is still served with its
// last-known counters, and the fault is logged rather than surfaced.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacunato/go-site-backend/internal/http/middleware"
	"github.com/pacunato/go-site-backend/internal/services"
	"github.com/pacunato/go-site-backend/internal/utils"
)

// ListPostsResponse is the payload of GET /posts.
type ListPostsResponse struct {
	Posts   any   `json:"posts"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List published posts
// @Description Returns a page of published articles, newest first. With ?q= it instead returns search results ranked by relevance. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Blog
// @Produce     json
//
// @Param       page      query  int     false "Page number"        minimum(1) default(1)
// @Param       per_page  query  int     false "Items per page"     minimum(1) maximum(100) default(10)
// @Param       category  query  string  false "Category filter"
// @Param       q         query  string  false "Search query"
//
// @Success     200  {object} handlers.ListPostsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()

	// Search short-circuits pagination: the index returns a ranked top-k.
	if q := c.Query("q"); q != "" {
		k := utils.AtoiDefault(c.Query("per_page"), 10)
		results, err := h.posts.Search(ctx, q, k)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
		ok(c, http.StatusOK, gin.H{"results": results, "query": q})
		return
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	perPage := utils.AtoiDefault(c.Query("per_page"), 10)
	category := c.Query("category")

	// ETag pre-check (best effort; the validator covers the full catalogue,
	// so filtered listings skip it).
	if category == "" {
		count, maxTS, err := h.posts.CatalogStats(ctx)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"posts:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	pageResult, err := h.posts.ListPublished(ctx, category, page, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{
		Posts:   pageResult.Posts,
		Page:    pageResult.Page,
		PerPage: pageResult.PerPage,
		Total:   pageResult.Total,
	})
}

// ArticleResponse is the payload of GET /posts/{slug}.
type ArticleResponse struct {
	Article   *services.Article `json:"article"`
	IsNewView bool              `json:"is_new_view"`
}

// GetPost godoc
// @ID          getPost
// @Summary     Read a published article
// @Description Returns the article with its Markdown body rendered to sanitized HTML, recording a unique view for the caller's IP. View tracking failures never prevent the article from being served.
// @Tags        Blog
// @Produce     json
//
// @Param       slug  path  string  true  "Post slug"  example(international-fair-colon)
//
// @Success     200  {object} handlers.ArticleResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown or unpublished slug"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /posts/{slug} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	article, err := h.posts.GetArticle(ctx, slug)
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	isNew := false
	if res, err := h.views.RecordView(ctx, article.ID, clientIP(c), userAgent(c)); err != nil {
		// Fail open: the page still serves with the counters read above.
		middleware.LoggerFrom(c).Warn().
			Err(err).
			Str("post_id", article.ID).
			Msg("view tracking failed")
	} else {
		isNew = res.IsNewView
		article.ViewCount = res.TotalViews
		article.UniqueViews = res.UniqueViews
	}

	ok(c, http.StatusOK, ArticleResponse{Article: article, IsNewView: isNew})
}
