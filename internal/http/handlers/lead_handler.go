// Lead intake HTTP handlers.
//
// Two public submission endpoints back the site's contact forms:
//   - POST /leads/advisory (general advisory requests)
//   - POST /leads/quote    (relocation quotation requests)
//
// Both accept JSON or classic form encoding, validate required fields, and
// return 201 with a submission receipt. Webhook relay is best effort and its
// outcome is reported in the receipt, never as a request failure.
//
// Submissions carrying an Idempotency-Key header are deduplicated: the first
// accepted submission stores a key row, and an identical retry replays the
// stored receipt instead of inserting a second lead.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/http/middleware"
	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/services"
)

// defaultSubmissionKeyTTL bounds replay of stored receipts when no TTL is
// configured.
const defaultSubmissionKeyTTL = 24 * time.Hour

// AdvisoryRequest is the POST /leads/advisory body.
type AdvisoryRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Message string `json:"message" form:"message"`
}

// QuoteRequest is the POST /leads/quote body.
type QuoteRequest struct {
	Name               string `json:"name" form:"name"`
	Email              string `json:"email" form:"email"`
	Phone              string `json:"phone" form:"phone"`
	Company            string `json:"company" form:"company"`
	OriginCountry      string `json:"origin_country" form:"origin_country"`
	DestinationCountry string `json:"destination_country" form:"destination_country"`
	ServiceType        string `json:"service_type" form:"service_type"`
	Message            string `json:"message" form:"message"`
}

// SubmitAdvisory godoc
// @ID          submitAdvisoryLead
// @Summary     Submit an advisory request
// @Description Validates and stores an advisory lead, then relays it to the automation webhook. Relay failures are absorbed; the receipt's relayed flag reports the outcome.
// @Tags        Leads
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       payload  body  handlers.AdvisoryRequest  true  "Advisory form fields"
//
// @Success     201  {object} services.SubmissionReceipt
// @Failure     400  {object} handlers.ErrorResponse "Missing or malformed field"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /leads/advisory [post]
func (h *Handlers) SubmitAdvisory(c *gin.Context) {
	var req AdvisoryRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
		return
	}

	// Replay path: an identical retry answers with the stored receipt.
	if rec := h.replaySubmission(c); rec != nil {
		if prev, err := repo.GetAdvisoryLead(c.Request.Context(), h.leadDB(), rec.RecordID); err == nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, rec.Status, services.SubmissionReceipt{
				ID:          prev.ID,
				SubmittedAt: prev.SubmittedAt,
				Relayed:     prev.Relayed,
			})
			return
		}
	}

	receipt, err := h.leads.SubmitAdvisory(c.Request.Context(), services.AdvisoryInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		IPAddress: clientIP(c),
		UserAgent: userAgent(c),
	})
	if err != nil {
		if failValidation(c, err) {
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "could not store submission")
		return
	}

	h.storeSubmissionKey(c, receipt.ID)
	ok(c, http.StatusCreated, receipt)
}

// SubmitQuote godoc
// @ID          submitQuoteLead
// @Summary     Submit a quotation request
// @Description Validates and stores a quotation lead with its relocation route, then relays it to the automation webhook. Relay failures are absorbed; the receipt's relayed flag reports the outcome.
// @Tags        Leads
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       payload  body  handlers.QuoteRequest  true  "Quotation form fields"
//
// @Success     201  {object} services.SubmissionReceipt
// @Failure     400  {object} handlers.ErrorResponse "Missing or malformed field"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /leads/quote [post]
func (h *Handlers) SubmitQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
		return
	}

	// Replay path mirrors SubmitAdvisory; scope keeps the two forms apart.
	if rec := h.replaySubmission(c); rec != nil {
		if prev, err := repo.GetQuoteLead(c.Request.Context(), h.leadDB(), rec.RecordID); err == nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, rec.Status, services.SubmissionReceipt{
				ID:          prev.ID,
				SubmittedAt: prev.SubmittedAt,
				Relayed:     prev.Relayed,
				Route:       services.RouteDisplay(prev.OriginCountry, prev.DestinationCountry),
			})
			return
		}
	}

	receipt, err := h.leads.SubmitQuote(c.Request.Context(), services.QuoteInput{
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Company:            req.Company,
		OriginCountry:      req.OriginCountry,
		DestinationCountry: req.DestinationCountry,
		ServiceType:        req.ServiceType,
		Message:            req.Message,
		IPAddress:          clientIP(c),
		UserAgent:          userAgent(c),
	})
	if err != nil {
		if failValidation(c, err) {
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "could not store submission")
		return
	}

	h.storeSubmissionKey(c, receipt.ID)
	ok(c, http.StatusCreated, receipt)
}

// leadDB exposes the storage handle of the concrete intake service. Key
// replay is skipped for other LeadIntake implementations.
func (h *Handlers) leadDB() *gorm.DB {
	if svc, isConcrete := h.leads.(*services.LeadService); isConcrete {
		return svc.DB
	}
	return nil
}

func (h *Handlers) submissionKeyTTL() time.Duration {
	if h.KeyTTL > 0 {
		return h.KeyTTL
	}
	return defaultSubmissionKeyTTL
}

// replaySubmission returns the stored key record when this request retries an
// already accepted submission, nil otherwise.
func (h *Handlers) replaySubmission(c *gin.Context) *domain.SubmissionKey {
	key, hasKey := middleware.GetSubmissionKey(c)
	db := h.leadDB()
	if !hasKey || db == nil {
		return nil
	}
	rec, err := repo.GetSubmissionKey(c.Request.Context(), db, middleware.SubmissionScope(c), key, time.Now().UTC())
	if err != nil {
		return nil
	}
	return rec
}

// storeSubmissionKey records a fulfilled submission so an identical retry
// replays the receipt instead of inserting a second row. Best effort: losing
// a race to a concurrent retry resolves through the unique index.
func (h *Handlers) storeSubmissionKey(c *gin.Context, recordID string) {
	key, hasKey := middleware.GetSubmissionKey(c)
	db := h.leadDB()
	if !hasKey || db == nil {
		return
	}
	scope := middleware.SubmissionScope(c)
	if _, err := repo.CreateSubmissionKey(c.Request.Context(), db, scope, key, recordID, http.StatusCreated, h.submissionKeyTTL()); err != nil && err != repo.ErrDuplicate {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("submission key store failed")
	}
}
