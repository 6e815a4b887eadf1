// Package services – NewsletterService
//
// This file implements the newsletter registry: one subscriber row per
// normalized email address, kept across unsubscribe/resubscribe cycles.
// A signup either creates a new row, reactivates an inactive one in place,
// or is declined as a duplicate of an active subscription. Successful
// signups are forwarded best-effort to the automation webhook with the same
// fail-open semantics as lead intake.
package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/relay"
	"github.com/pacunato/go-site-backend/internal/repo"
)

// SubscribeStatus tells a caller which path a successful signup took.
type SubscribeStatus string

const (
	// StatusNew means a fresh subscriber row was created.
	StatusNew SubscribeStatus = "new"
	// StatusReactivated means an inactive row was reactivated in place,
	// preserving the original identity.
	StatusReactivated SubscribeStatus = "reactivated"
)

// emailRE is the local@domain.tld shape check applied after normalization.
var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// SubscribeInput carries the signup fields plus capture metadata.
type SubscribeInput struct {
	Email      string
	Name       string
	IPAddress  string
	UserAgent  string
	SourcePage string
}

// SubscribeResult reports a successful signup. Relayed tells the caller
// whether the automation webhook confirmed delivery.
type SubscribeResult struct {
	Status  SubscribeStatus `json:"status"`
	Relayed bool            `json:"relayed"`
}

// NewsletterService implements the subscription use-cases. Relay may be a
// disabled client, in which case signups are stored unrelayed.
type NewsletterService struct {
	DB    *gorm.DB
	Relay *relay.Client
}

// NormalizeEmail trims surrounding whitespace and lowercases, so the unique
// index on subscribers.email is case-insensitive in effect.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe registers email as a newsletter recipient.
//
// Outcomes:
//   - Unknown email: a new active row is created with consent recorded now;
//     returns StatusNew.
//   - Known and active: ErrAlreadySubscribed (declined duplicate — expected,
//     distinguishable from validation failure).
//   - Known and inactive: the existing row is reactivated in place; the name
//     is overwritten only when a non-empty one is supplied; capture metadata
//     is refreshed; returns StatusReactivated.
//
// Validation errors (ErrEmailRequired, ErrInvalidEmail) are returned before
// any persistence. A concurrent duplicate insert resolves through the unique
// index as ErrAlreadySubscribed rather than a storage fault.
func (s *NewsletterService) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !emailRE.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(in.Name)

	var (
		status SubscribeStatus
		sub    *domain.Subscriber
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.GetSubscriberByEmail(ctx, tx, email)
		switch {
		case err == nil && existing.IsActive:
			return ErrAlreadySubscribed

		case err == nil:
			// Inactive row: reactivate in place, keeping the identity.
			if err := repo.ReactivateSubscriber(ctx, tx, existing.ID, name, in.IPAddress, clampUserAgent(in.UserAgent), in.SourcePage); err != nil {
				return err
			}
			// Mirror the update locally for the relay payload.
			existing.IsActive = true
			existing.UnsubscribedAt = nil
			existing.ConsentAt = time.Now().UTC()
			if name != "" {
				existing.Name = name
			}
			existing.IPAddress = in.IPAddress
			existing.UserAgent = clampUserAgent(in.UserAgent)
			existing.SourcePage = in.SourcePage
			status = StatusReactivated
			sub = existing
			return nil

		case isNotFound(err):
			now := time.Now().UTC()
			created := &domain.Subscriber{
				ID:           uuid.NewString(),
				Email:        email,
				Name:         name,
				SubscribedAt: now,
				IsActive:     true,
				ConsentGiven: true,
				ConsentAt:    now,
				IPAddress:    in.IPAddress,
				UserAgent:    clampUserAgent(in.UserAgent),
				SourcePage:   in.SourcePage,
			}
			if err := repo.CreateSubscriber(ctx, tx, created); err != nil {
				if isDuplicate(err) {
					// Lost a create race to a concurrent signup.
					return ErrAlreadySubscribed
				}
				return err
			}
			status = StatusNew
			sub = created
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	relayed := s.relaySubscriber(ctx, sub, status == StatusNew)
	return &SubscribeResult{Status: status, Relayed: relayed}, nil
}

// Unsubscribe deactivates the subscriber for email, stamping the
// unsubscribe time so the active/unsubscribed invariant holds. Unknown
// emails propagate repo.ErrNotFound; an already-inactive subscriber is a
// no-op so the operation stays idempotent.
func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	sub, err := repo.GetSubscriberByEmail(ctx, s.DB, email)
	if err != nil {
		return err
	}
	if !sub.IsActive {
		return nil // already unsubscribed; idempotent
	}
	return repo.DeactivateSubscriber(ctx, s.DB, sub.ID)
}

// ResendUnrelayed re-delivers active subscribers whose signup never reached
// the automation webhook. Returns how many deliveries were confirmed.
func (s *NewsletterService) ResendUnrelayed(ctx context.Context, limit int) (int, error) {
	subs, err := repo.ListUnrelayedActiveSubscribers(ctx, s.DB, limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range subs {
		if err := s.Relay.Send(ctx, subscriberPayload(&subs[i], false)); err != nil {
			log.Warn().Err(err).Str("subscriber_id", subs[i].ID).Msg("subscriber relay failed")
			continue
		}
		if err := repo.MarkSubscriberRelayed(ctx, s.DB, subs[i].ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// relaySubscriber forwards a stored subscriber and flips the relay flag on
// confirmed delivery. Best-effort: failures are logged and swallowed, and
// are never retried synchronously.
func (s *NewsletterService) relaySubscriber(ctx context.Context, sub *domain.Subscriber, isNew bool) bool {
	if !s.Relay.Enabled() {
		return false
	}
	if err := s.Relay.Send(ctx, subscriberPayload(sub, isNew)); err != nil {
		log.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("subscriber relay failed")
		return false
	}
	if err := repo.MarkSubscriberRelayed(ctx, s.DB, sub.ID); err != nil {
		log.Error().Err(err).Str("subscriber_id", sub.ID).Msg("mark relayed failed")
		return false
	}
	return true
}

func subscriberPayload(sub *domain.Subscriber, isNew bool) relay.Payload {
	return relay.Payload{
		Type: "newsletter",
		Fields: map[string]any{
			"email":      sub.Email,
			"name":       sub.Name,
			"timestamp":  sub.SubscribedAt.Format(time.RFC3339),
			"ip_address": sub.IPAddress,
			"user_agent": sub.UserAgent,
			"source":     sub.SourcePage,
			"is_new":     isNew,
			"consent":    sub.ConsentGiven,
		},
	}
}
