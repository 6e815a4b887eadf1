// Handler wiring and shared request helpers.
//
// Handlers are transport-thin: they bind and validate input, call application
// services, and translate domain/service outcomes into HTTP responses. All
// capture metadata (client IP, user agent, source page) is resolved here so
// services never touch the transport layer.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pacunato/go-site-backend/internal/search"
	"github.com/pacunato/go-site-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// PostReader defines the blog read operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PostReader interface {
	// GetArticle returns a published article by slug with rendered HTML.
	GetArticle(ctx context.Context, slug string) (*services.Article, error)
	// ListPublished returns one page of the published catalogue.
	ListPublished(ctx context.Context, category string, page, perPage int) (*services.PostPage, error)
	// Search ranks published posts against a query.
	Search(ctx context.Context, query string, k int) ([]search.Result, error)
	// CatalogStats reports the published-post count and latest update time,
	// feeding conditional-request validators.
	CatalogStats(ctx context.Context) (int64, *time.Time, error)
}

// ViewRecorder defines the unique-view tracking operation.
type ViewRecorder interface {
	// RecordView registers a visit and returns the updated counters.
	RecordView(ctx context.Context, postID, ipAddress, userAgent string) (*services.ViewResult, error)
}

// LeadIntake defines the lead-capture operations.
type LeadIntake interface {
	// SubmitAdvisory validates, stores and relays an advisory request.
	SubmitAdvisory(ctx context.Context, in services.AdvisoryInput) (*services.SubmissionReceipt, error)
	// SubmitQuote validates, stores and relays a quotation request.
	SubmitQuote(ctx context.Context, in services.QuoteInput) (*services.SubmissionReceipt, error)
	// ResendAdvisory re-delivers a stored advisory submission.
	ResendAdvisory(ctx context.Context, id string) error
	// ResendQuote re-delivers a stored quotation submission.
	ResendQuote(ctx context.Context, id string) error
}

// NewsletterRegistry defines the subscription operations.
type NewsletterRegistry interface {
	// Subscribe registers an email, reactivating a prior identity if needed.
	Subscribe(ctx context.Context, in services.SubscribeInput) (*services.SubscribeResult, error)
	// Unsubscribe deactivates an active subscriber.
	Unsubscribe(ctx context.Context, email string) error
	// ResendUnrelayed re-delivers unconfirmed active subscribers.
	ResendUnrelayed(ctx context.Context, limit int) (int, error)
}

//
// Handler wiring
//

// Handlers groups the public HTTP endpoints for the blog, lead forms, and
// newsletter. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	posts      PostReader
	views      ViewRecorder
	leads      LeadIntake
	newsletter NewsletterRegistry

	// KeyTTL bounds how long a stored submission key replays its receipt.
	// Zero falls back to defaultSubmissionKeyTTL.
	KeyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(posts PostReader, views ViewRecorder, leads LeadIntake, newsletter NewsletterRegistry) *Handlers {
	return &Handlers{posts: posts, views: views, leads: leads, newsletter: newsletter}
}

// clientIP resolves the caller's IP. Gin already honors X-Forwarded-For /
// X-Real-IP according to the engine's trusted proxy settings, so this is a
// thin wrapper kept for symmetry with userAgent.
func clientIP(c *gin.Context) string {
	return c.ClientIP()
}

// userAgent returns the request's User-Agent header.
func userAgent(c *gin.Context) string {
	return c.Request.UserAgent()
}

// sourcePage resolves the page a form was submitted from: an explicit body
// field wins, then the Referer header.
func sourcePage(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return c.Request.Referer()
}

// failValidation maps a *services.ValidationError to the standard envelope.
// Returns false when err is not a validation error.
func failValidation(c *gin.Context, err error) bool {
	ve, isVE := services.AsValidationError(err)
	if !isVE {
		return false
	}
	failField(c, http.StatusBadRequest, ErrCodeValidationFailed, ve.Field, ve.Error())
	return true
}
