// Admin HTTP handlers.
//
// Everything in this file is mounted under /admin behind the bearer-token
// guard. The admin surface operates on stored submissions: filtered listings,
// bulk processed flips, CSV export of quotation leads, and webhook re-delivery
// for records the automation never confirmed.
package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/relay"
	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/services"
	"github.com/pacunato/go-site-backend/internal/utils"
)

// AdminHandlers groups the token-guarded management endpoints. Listing and
// export read storage directly; resend operations go through the services so
// relay bookkeeping stays in one place.
type AdminHandlers struct {
	DB         *gorm.DB
	Leads      LeadIntake
	Newsletter NewsletterRegistry
}

// NewAdmin constructs the admin handler set.
func NewAdmin(db *gorm.DB, leads LeadIntake, newsletter NewsletterRegistry) *AdminHandlers {
	return &AdminHandlers{DB: db, Leads: leads, Newsletter: newsletter}
}

// ListResponse is the generic paginated listing envelope.
type ListResponse struct {
	Items   any   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// BulkProcessedRequest selects leads whose processed flag should be set or
// cleared.
type BulkProcessedRequest struct {
	IDs       []string `json:"ids"`
	Processed bool     `json:"processed"`
}

// boolQuery parses an optional ?name=true|false filter. Absent or
// unparsable values mean "no filter".
func boolQuery(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func leadFilter(c *gin.Context) repo.LeadFilter {
	return repo.LeadFilter{
		Processed: boolQuery(c, "processed"),
		Relayed:   boolQuery(c, "relayed"),
	}
}

func pageParams(c *gin.Context) (page, perPage, offset int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage = utils.AtoiDefault(c.Query("per_page"), 25)
	if perPage < 1 || perPage > 200 {
		perPage = 25
	}
	return page, perPage, (page - 1) * perPage
}

// ListAdvisoryLeads godoc
// @ID          adminListAdvisoryLeads
// @Summary     List advisory leads
// @Description Returns stored advisory submissions, newest first, optionally filtered by processed and relayed state.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Param       page       query int    false "Page number"    minimum(1) default(1)
// @Param       per_page   query int    false "Items per page" minimum(1) maximum(200) default(25)
// @Param       processed  query bool   false "Processed filter"
// @Param       relayed    query bool   false "Relayed filter"
//
// @Success     200  {object} handlers.ListResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/leads/advisory [get]
func (h *AdminHandlers) ListAdvisoryLeads(c *gin.Context) {
	ctx := c.Request.Context()
	filter := leadFilter(c)
	page, perPage, offset := pageParams(c)

	total, err := repo.CountAdvisoryLeads(ctx, h.DB, filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	leads, err := repo.ListAdvisoryLeadsPage(ctx, h.DB, filter, offset, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListResponse{Items: leads, Page: page, PerPage: perPage, Total: total})
}

// ListQuoteLeads godoc
// @ID          adminListQuoteLeads
// @Summary     List quotation leads
// @Description Returns stored quotation submissions, newest first, optionally filtered by processed and relayed state.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Success     200  {object} handlers.ListResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/leads/quote [get]
func (h *AdminHandlers) ListQuoteLeads(c *gin.Context) {
	ctx := c.Request.Context()
	filter := leadFilter(c)
	page, perPage, offset := pageParams(c)

	total, err := repo.CountQuoteLeads(ctx, h.DB, filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	leads, err := repo.ListQuoteLeadsPage(ctx, h.DB, filter, offset, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListResponse{Items: leads, Page: page, PerPage: perPage, Total: total})
}

// SetAdvisoryProcessed godoc
// @ID          adminSetAdvisoryProcessed
// @Summary     Bulk-flip advisory processed state
// @Description Marks the selected advisory leads processed (stamping processed_at) or unprocessed (clearing it). Unknown IDs are skipped; the response reports how many rows changed.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    AdminToken
//
// @Param       payload  body  handlers.BulkProcessedRequest  true  "Lead IDs and target state"
//
// @Success     200  {object} map[string]int64
// @Failure     400  {object} handlers.ErrorResponse "Empty selection"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/leads/advisory/processed [post]
func (h *AdminHandlers) SetAdvisoryProcessed(c *gin.Context) {
	var req BulkProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be a non-empty array")
		return
	}
	updated, err := repo.SetAdvisoryProcessed(c.Request.Context(), h.DB, req.IDs, req.Processed)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": updated})
}

// SetQuoteProcessed godoc
// @ID          adminSetQuoteProcessed
// @Summary     Bulk-flip quotation processed state
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    AdminToken
//
// @Param       payload  body  handlers.BulkProcessedRequest  true  "Lead IDs and target state"
//
// @Success     200  {object} map[string]int64
// @Failure     400  {object} handlers.ErrorResponse "Empty selection"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/leads/quote/processed [post]
func (h *AdminHandlers) SetQuoteProcessed(c *gin.Context) {
	var req BulkProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be a non-empty array")
		return
	}
	updated, err := repo.SetQuoteProcessed(c.Request.Context(), h.DB, req.IDs, req.Processed)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": updated})
}

// ExportQuoteLeads godoc
// @ID          adminExportQuoteLeads
// @Summary     Export quotation leads as CSV
// @Description Streams all quotation leads matching the processed/relayed filters as a CSV attachment.
// @Tags        Admin
// @Produce     text/csv
// @Security    AdminToken
//
// @Success     200  {string} string "CSV document"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Export failure"
// @Router      /admin/leads/quote/export [get]
func (h *AdminHandlers) ExportQuoteLeads(c *gin.Context) {
	leads, err := repo.ListQuoteLeads(c.Request.Context(), h.DB, leadFilter(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	filename := fmt.Sprintf("quote-leads-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{
		"id", "submitted_at", "name", "company", "email", "phone",
		"origin_country", "destination_country", "route", "service_type",
		"message", "processed", "relayed",
	})
	for i := range leads {
		l := &leads[i]
		_ = w.Write([]string{
			l.ID,
			l.SubmittedAt.UTC().Format(time.RFC3339),
			l.Name,
			l.Company,
			l.Email,
			l.Phone,
			l.OriginCountry,
			l.DestinationCountry,
			services.RouteDisplay(l.OriginCountry, l.DestinationCountry),
			l.ServiceType,
			l.Message,
			strconv.FormatBool(l.Processed),
			strconv.FormatBool(l.Relayed),
		})
	}
	w.Flush()
}

// ResendAdvisory godoc
// @ID          adminResendAdvisoryLead
// @Summary     Re-deliver an advisory lead to the webhook
// @Description Pushes the stored submission to the automation webhook again and marks it relayed on success. Unlike intake, delivery failures are surfaced.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Param       id  path  string  true  "Lead ID"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     404  {object} handlers.ErrorResponse "Unknown lead"
// @Failure     502  {object} handlers.ErrorResponse "Webhook delivery failed"
// @Router      /admin/leads/advisory/{id}/resend [post]
func (h *AdminHandlers) ResendAdvisory(c *gin.Context) {
	h.resend(c, h.Leads.ResendAdvisory)
}

// ResendQuote godoc
// @ID          adminResendQuoteLead
// @Summary     Re-deliver a quotation lead to the webhook
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Param       id  path  string  true  "Lead ID"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     404  {object} handlers.ErrorResponse "Unknown lead"
// @Failure     502  {object} handlers.ErrorResponse "Webhook delivery failed"
// @Router      /admin/leads/quote/{id}/resend [post]
func (h *AdminHandlers) ResendQuote(c *gin.Context) {
	h.resend(c, h.Leads.ResendQuote)
}

func (h *AdminHandlers) resend(c *gin.Context, do func(ctx context.Context, id string) error) {
	id := c.Param("id")
	err := do(c.Request.Context(), id)
	if err == nil {
		noContent(c)
		return
	}
	switch {
	case errors.Is(err, services.ErrLeadNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
	case errors.Is(err, relay.ErrDisabled):
		fail(c, http.StatusBadGateway, ErrCodeRelayFailed, "no webhook configured")
	default:
		fail(c, http.StatusBadGateway, ErrCodeRelayFailed, err.Error())
	}
}

// ListSubscribers godoc
// @ID          adminListSubscribers
// @Summary     List newsletter subscribers
// @Description Returns subscribers, newest first, optionally filtered by active and relayed state.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Param       page      query int   false "Page number"    minimum(1) default(1)
// @Param       per_page  query int   false "Items per page" minimum(1) maximum(200) default(25)
// @Param       active    query bool  false "Active filter"
// @Param       relayed   query bool  false "Relayed filter"
//
// @Success     200  {object} handlers.ListResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/subscribers [get]
func (h *AdminHandlers) ListSubscribers(c *gin.Context) {
	ctx := c.Request.Context()
	filter := repo.SubscriberFilter{
		Active:  boolQuery(c, "active"),
		Relayed: boolQuery(c, "relayed"),
	}
	page, perPage, offset := pageParams(c)

	total, err := repo.CountSubscribers(ctx, h.DB, filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	subs, err := repo.ListSubscribersPage(ctx, h.DB, filter, offset, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListResponse{Items: subs, Page: page, PerPage: perPage, Total: total})
}

// ResendSubscribers godoc
// @ID          adminResendSubscribers
// @Summary     Re-deliver unconfirmed subscribers to the webhook
// @Description Pushes active subscribers whose signup never reached the automation webhook, up to ?limit= records, and reports how many deliveries were confirmed.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Param       limit  query int  false "Maximum records to deliver"  minimum(1) maximum(500) default(100)
//
// @Success     200  {object} map[string]int
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/subscribers/resend [post]
func (h *AdminHandlers) ResendSubscribers(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}
	sent, err := h.Newsletter.ResendUnrelayed(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"sent": sent})
}

// PurgeSubmissionKeys godoc
// @ID          adminPurgeSubmissionKeys
// @Summary     Purge expired duplicate-submission keys
// @Description Deletes submission-key rows whose TTL has elapsed and reports how many were removed.
// @Tags        Admin
// @Produce     json
// @Security    AdminToken
//
// @Success     200  {object} map[string]int64
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/maintenance/submission-keys/purge [post]
func (h *AdminHandlers) PurgeSubmissionKeys(c *gin.Context) {
	purged, err := repo.PurgeExpiredSubmissionKeys(c.Request.Context(), h.DB, time.Now().UTC())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"purged": purged})
}
