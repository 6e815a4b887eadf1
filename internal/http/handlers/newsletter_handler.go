// Newsletter HTTP handlers.
//
// POST /newsletter/subscribe is idempotent per normalized email: a fresh
// address creates a subscriber, a lapsed one is reactivated, and an already
// active one yields 409. POST /newsletter/unsubscribe deactivates without
// deleting, preserving the consent trail.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/services"
)

// SubscribeRequest is the POST /newsletter/subscribe body.
type SubscribeRequest struct {
	Email      string `json:"email" form:"email"`
	Name       string `json:"name" form:"name"`
	SourcePage string `json:"source_page" form:"source_page"`
}

// UnsubscribeRequest is the POST /newsletter/unsubscribe body.
type UnsubscribeRequest struct {
	Email string `json:"email" form:"email"`
}

// Subscribe godoc
// @ID          subscribeNewsletter
// @Summary     Subscribe to the newsletter
// @Description Registers an email address, reactivating a previously unsubscribed identity when one exists. The status field distinguishes "new" from "reactivated".
// @Tags        Newsletter
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       payload  body  handlers.SubscribeRequest  true  "Signup fields"
//
// @Success     200  {object} services.SubscribeResult
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid email"
// @Failure     409  {object} handlers.ErrorResponse "Already subscribed"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /newsletter/subscribe [post]
func (h *Handlers) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
		return
	}

	result, err := h.newsletter.Subscribe(c.Request.Context(), services.SubscribeInput{
		Email:      req.Email,
		Name:       req.Name,
		IPAddress:  clientIP(c),
		UserAgent:  userAgent(c),
		SourcePage: sourcePage(c, req.SourcePage),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailRequired):
			failField(c, http.StatusBadRequest, ErrCodeValidationFailed, "email", "email is required")
		case errors.Is(err, services.ErrInvalidEmail):
			failField(c, http.StatusBadRequest, ErrCodeValidationFailed, "email", "email address is invalid")
		case errors.Is(err, services.ErrAlreadySubscribed):
			fail(c, http.StatusConflict, ErrCodeAlreadySubscribed, "email is already subscribed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "could not store subscription")
		}
		return
	}
	ok(c, http.StatusOK, result)
}

// Unsubscribe godoc
// @ID          unsubscribeNewsletter
// @Summary     Unsubscribe from the newsletter
// @Description Deactivates the subscriber for the given email. Unknown or already inactive addresses succeed silently so the endpoint leaks no membership information.
// @Tags        Newsletter
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       payload  body  handlers.UnsubscribeRequest  true  "Email to deactivate"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid email"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /newsletter/unsubscribe [post]
func (h *Handlers) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
		return
	}

	if err := h.newsletter.Unsubscribe(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, services.ErrEmailRequired):
			failField(c, http.StatusBadRequest, ErrCodeValidationFailed, "email", "email is required")
		case errors.Is(err, services.ErrInvalidEmail):
			failField(c, http.StatusBadRequest, ErrCodeValidationFailed, "email", "email address is invalid")
		case errors.Is(err, repo.ErrNotFound):
			// Unknown address: succeed anyway, the endpoint must not leak
			// membership.
			noContent(c)
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update subscription")
		}
		return
	}
	noContent(c)
}
