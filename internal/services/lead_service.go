// Package services – LeadService
//
// This file implements intake for the two lead-capture forms (advisory
// request and quotation request). Both follow the same pattern: validate
// required fields before touching storage, persist the submission with its
// capture metadata, then forward it best-effort to the automation webhook.
// A relay failure never fails the submission — the record is already durable
// and the admin surface can resend it later.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/relay"
	"github.com/pacunato/go-site-backend/internal/repo"
)

// AdvisoryInput carries the advisory form fields plus capture metadata.
type AdvisoryInput struct {
	Name    string
	Email   string
	Phone   string
	Message string

	IPAddress string
	UserAgent string
}

// QuoteInput carries the quotation form fields plus capture metadata.
// Company is the only optional form field.
type QuoteInput struct {
	Name               string
	Company            string
	Email              string
	Phone              string
	OriginCountry      string
	DestinationCountry string
	ServiceType        string
	Message            string

	IPAddress string
	UserAgent string
}

// SubmissionReceipt is returned for an accepted submission. Relayed tells
// the caller whether the automation webhook confirmed delivery, so
// "persisted" and "persisted but relay failed" are distinguishable without
// reading logs.
type SubmissionReceipt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Relayed     bool      `json:"relayed"`
	Route       string    `json:"route,omitempty"` // quotation only
}

// LeadService implements the lead-intake use-cases. Each form type has its
// own relay client since the automation webhooks differ per form; either may
// be a disabled client (no webhook configured), in which case submissions
// are stored with relayed=false and no outbound call is made.
type LeadService struct {
	DB            *gorm.DB
	AdvisoryRelay *relay.Client
	QuoteRelay    *relay.Client
}

// SubmitAdvisory validates and stores an advisory request, then forwards it
// to the automation webhook when one is configured.
//
// Validation: name, email, phone and message are all required; a blank field
// yields a *ValidationError naming it, and nothing is persisted.
func (s *LeadService) SubmitAdvisory(ctx context.Context, in AdvisoryInput) (*SubmissionReceipt, error) {
	lead := &domain.AdvisoryLead{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Message:     strings.TrimSpace(in.Message),
		SubmittedAt: time.Now().UTC(),
		IPAddress:   in.IPAddress,
		UserAgent:   clampUserAgent(in.UserAgent),
	}

	for _, f := range []struct{ name, value string }{
		{"name", lead.Name},
		{"email", lead.Email},
		{"phone", lead.Phone},
		{"message", lead.Message},
	} {
		if f.value == "" {
			return nil, missingField(f.name)
		}
	}

	if err := repo.CreateAdvisoryLead(ctx, s.DB, lead); err != nil {
		return nil, err
	}

	relayed := s.relayAdvisory(ctx, lead)
	return &SubmissionReceipt{ID: lead.ID, SubmittedAt: lead.SubmittedAt, Relayed: relayed}, nil
}

// SubmitQuote validates and stores a quotation request, then forwards it to
// the automation webhook when one is configured.
//
// Validation: everything except company is required. The receipt carries the
// derived display route ("Origin → Destination"), which is formatting only
// and never stored.
func (s *LeadService) SubmitQuote(ctx context.Context, in QuoteInput) (*SubmissionReceipt, error) {
	lead := &domain.QuoteLead{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(in.Name),
		Company:            strings.TrimSpace(in.Company),
		Email:              strings.TrimSpace(in.Email),
		Phone:              strings.TrimSpace(in.Phone),
		OriginCountry:      strings.TrimSpace(in.OriginCountry),
		DestinationCountry: strings.TrimSpace(in.DestinationCountry),
		ServiceType:        strings.TrimSpace(in.ServiceType),
		Message:            strings.TrimSpace(in.Message),
		SubmittedAt:        time.Now().UTC(),
		IPAddress:          in.IPAddress,
		UserAgent:          clampUserAgent(in.UserAgent),
	}

	for _, f := range []struct{ name, value string }{
		{"name", lead.Name},
		{"email", lead.Email},
		{"phone", lead.Phone},
		{"origin_country", lead.OriginCountry},
		{"destination_country", lead.DestinationCountry},
		{"service_type", lead.ServiceType},
		{"message", lead.Message},
	} {
		if f.value == "" {
			return nil, missingField(f.name)
		}
	}

	if err := repo.CreateQuoteLead(ctx, s.DB, lead); err != nil {
		return nil, err
	}

	relayed := s.relayQuote(ctx, lead)
	return &SubmissionReceipt{
		ID:          lead.ID,
		SubmittedAt: lead.SubmittedAt,
		Relayed:     relayed,
		Route:       RouteDisplay(lead.OriginCountry, lead.DestinationCountry),
	}, nil
}

// ResendAdvisory re-delivers a stored advisory submission to the webhook.
// Unlike the intake path, the relay error is surfaced: the admin explicitly
// asked for the delivery and wants to know whether it worked.
func (s *LeadService) ResendAdvisory(ctx context.Context, id string) error {
	lead, err := repo.GetAdvisoryLead(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return ErrLeadNotFound
		}
		return err
	}
	if err := s.AdvisoryRelay.Send(ctx, advisoryPayload(lead)); err != nil {
		return err
	}
	return repo.MarkAdvisoryRelayed(ctx, s.DB, lead.ID)
}

// ResendQuote re-delivers a stored quotation submission to the webhook.
func (s *LeadService) ResendQuote(ctx context.Context, id string) error {
	lead, err := repo.GetQuoteLead(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return ErrLeadNotFound
		}
		return err
	}
	if err := s.QuoteRelay.Send(ctx, quotePayload(lead)); err != nil {
		return err
	}
	return repo.MarkQuoteRelayed(ctx, s.DB, lead.ID)
}

// relayAdvisory forwards a stored advisory lead and flips its relayed flag
// on confirmed delivery. Best-effort: failures are logged and swallowed.
func (s *LeadService) relayAdvisory(ctx context.Context, lead *domain.AdvisoryLead) bool {
	if !s.AdvisoryRelay.Enabled() {
		return false
	}
	if err := s.AdvisoryRelay.Send(ctx, advisoryPayload(lead)); err != nil {
		log.Warn().Err(err).Str("lead_id", lead.ID).Msg("advisory relay failed")
		return false
	}
	if err := repo.MarkAdvisoryRelayed(ctx, s.DB, lead.ID); err != nil {
		log.Error().Err(err).Str("lead_id", lead.ID).Msg("mark relayed failed")
		return false
	}
	return true
}

// relayQuote forwards a stored quote lead and flips its relayed flag on
// confirmed delivery. Best-effort: failures are logged and swallowed.
func (s *LeadService) relayQuote(ctx context.Context, lead *domain.QuoteLead) bool {
	if !s.QuoteRelay.Enabled() {
		return false
	}
	if err := s.QuoteRelay.Send(ctx, quotePayload(lead)); err != nil {
		log.Warn().Err(err).Str("lead_id", lead.ID).Msg("quote relay failed")
		return false
	}
	if err := repo.MarkQuoteRelayed(ctx, s.DB, lead.ID); err != nil {
		log.Error().Err(err).Str("lead_id", lead.ID).Msg("mark relayed failed")
		return false
	}
	return true
}

func advisoryPayload(lead *domain.AdvisoryLead) relay.Payload {
	return relay.Payload{
		Type: "advisory",
		Fields: map[string]any{
			"submission_id": lead.ID,
			"name":          lead.Name,
			"email":         lead.Email,
			"phone":         lead.Phone,
			"message":       lead.Message,
			"date":          lead.SubmittedAt.Format(time.RFC3339),
		},
	}
}

func quotePayload(lead *domain.QuoteLead) relay.Payload {
	return relay.Payload{
		Type: "quote",
		Fields: map[string]any{
			"submission_id":       lead.ID,
			"name":                lead.Name,
			"company":             lead.Company,
			"email":               lead.Email,
			"phone":               lead.Phone,
			"origin_country":      lead.OriginCountry,
			"destination_country": lead.DestinationCountry,
			"route":               RouteDisplay(lead.OriginCountry, lead.DestinationCountry),
			"service_type":        lead.ServiceType,
			"message":             lead.Message,
			"date":                lead.SubmittedAt.Format(time.RFC3339),
		},
	}
}

// routeCaser title-cases country names for display; Und keeps the behavior
// locale-neutral for non-English country names.
var routeCaser = cases.Title(language.Und)

// RouteDisplay renders the human-readable shipping route for a quotation,
// e.g. "Panama → Spain". Pure formatting; never stored.
func RouteDisplay(origin, destination string) string {
	return routeCaser.String(strings.TrimSpace(origin)) + " → " + routeCaser.String(strings.TrimSpace(destination))
}

func clampUserAgent(ua string) string {
	if len(ua) > maxUserAgentLen {
		return ua[:maxUserAgentLen]
	}
	return ua
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}
