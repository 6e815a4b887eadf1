package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pacunato/go-site-backend/internal/domain"
)

func newSubRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("sub_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Subscriber{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedSubscriber(t *testing.T, db *gorm.DB, email string, active bool, subscribed time.Time) *domain.Subscriber {
	t.Helper()
	sub := &domain.Subscriber{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "N",
		IsActive:     active,
		ConsentGiven: true,
		ConsentAt:    subscribed,
		SubscribedAt: subscribed,
	}
	if !active {
		ts := subscribed.Add(time.Minute)
		sub.UnsubscribedAt = &ts
	}
	if err := CreateSubscriber(context.Background(), db, sub); err != nil {
		t.Fatalf("CreateSubscriber(%s): %v", email, err)
	}
	return sub
}

func TestCreateSubscriber_UniqueEmail(t *testing.T) {
	db := newSubRepoDB(t)
	seedSubscriber(t, db, "a@example.com", true, time.Now().UTC())

	dup := &domain.Subscriber{ID: uuid.NewString(), Email: "a@example.com", SubscribedAt: time.Now().UTC()}
	if err := CreateSubscriber(context.Background(), db, dup); err == nil {
		t.Fatalf("expected unique violation for duplicate email")
	}
}

func TestGetSubscriberByEmail(t *testing.T) {
	db := newSubRepoDB(t)
	ctx := context.Background()

	seedSubscriber(t, db, "b@example.com", true, time.Now().UTC())
	got, err := GetSubscriberByEmail(ctx, db, "b@example.com")
	if err != nil {
		t.Fatalf("GetSubscriberByEmail: %v", err)
	}
	if !got.IsActive {
		t.Fatalf("expected active subscriber, got %+v", got)
	}
	if _, err := GetSubscriberByEmail(ctx, db, "ghost@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReactivateSubscriber_RestoresActiveState(t *testing.T) {
	db := newSubRepoDB(t)
	ctx := context.Background()

	sub := seedSubscriber(t, db, "c@example.com", false, time.Now().UTC().Add(-time.Hour))
	before := sub.ConsentAt

	if err := ReactivateSubscriber(ctx, db, sub.ID, "New Name", "9.9.9.9", "ua2", "/landing"); err != nil {
		t.Fatalf("ReactivateSubscriber: %v", err)
	}

	got, _ := GetSubscriberByEmail(ctx, db, "c@example.com")
	if !got.IsActive || got.UnsubscribedAt != nil {
		t.Fatalf("expected active with cleared unsubscribed_at: %+v", got)
	}
	if got.Name != "New Name" || got.IPAddress != "9.9.9.9" || got.SourcePage != "/landing" {
		t.Fatalf("capture metadata not refreshed: %+v", got)
	}
	if !got.ConsentAt.After(before) {
		t.Fatalf("consent_at should be refreshed: %v -> %v", before, got.ConsentAt)
	}

	// empty name leaves the stored one alone
	if err := ReactivateSubscriber(ctx, db, sub.ID, "", "1.1.1.1", "ua3", ""); err != nil {
		t.Fatalf("ReactivateSubscriber empty name: %v", err)
	}
	got, _ = GetSubscriberByEmail(ctx, db, "c@example.com")
	if got.Name != "New Name" {
		t.Fatalf("empty name must not overwrite, got %q", got.Name)
	}
}

func TestDeactivateSubscriber_StampsUnsubscribedAt(t *testing.T) {
	db := newSubRepoDB(t)
	ctx := context.Background()

	sub := seedSubscriber(t, db, "d@example.com", true, time.Now().UTC())
	if err := DeactivateSubscriber(ctx, db, sub.ID); err != nil {
		t.Fatalf("DeactivateSubscriber: %v", err)
	}
	got, _ := GetSubscriberByEmail(ctx, db, "d@example.com")
	if got.IsActive || got.UnsubscribedAt == nil {
		t.Fatalf("expected inactive with unsubscribed_at set: %+v", got)
	}
}

func TestSubscriberFilter_AndUnrelayedListing(t *testing.T) {
	db := newSubRepoDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	first := seedSubscriber(t, db, "e1@example.com", true, now.Add(-2*time.Hour))
	second := seedSubscriber(t, db, "e2@example.com", true, now.Add(-time.Hour))
	inactive := seedSubscriber(t, db, "e3@example.com", false, now)
	_ = MarkSubscriberRelayed(ctx, db, second.ID)

	yes := true
	active, err := CountSubscribers(ctx, db, SubscriberFilter{Active: &yes})
	if err != nil || active != 2 {
		t.Fatalf("CountSubscribers active = %d, %v", active, err)
	}

	// newest first
	page, err := ListSubscribersPage(ctx, db, SubscriberFilter{}, 0, 10)
	if err != nil || len(page) != 3 {
		t.Fatalf("ListSubscribersPage = %d rows, %v", len(page), err)
	}
	if page[0].ID != inactive.ID {
		t.Fatalf("expected newest first, got %s", page[0].Email)
	}

	// unrelayed active only, oldest first (fair resend order)
	pending, err := ListUnrelayedActiveSubscribers(ctx, db, 10)
	if err != nil {
		t.Fatalf("ListUnrelayedActiveSubscribers: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected only the first unrelayed active row, got %+v", pending)
	}

	// limit 0 means no cap
	if _, err := ListUnrelayedActiveSubscribers(ctx, db, 0); err != nil {
		t.Fatalf("limit 0: %v", err)
	}
}
