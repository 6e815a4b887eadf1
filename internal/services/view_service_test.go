package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/repo"
)

func newServiceDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(migrate...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedPublishedPost(t *testing.T, db *gorm.DB, slug string) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), db, &domain.Post{
		Slug:        slug,
		Title:       "title for " + slug,
		Content:     "# Heading\n\nBody text.",
		Category:    "events",
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func TestRecordView_FirstVisitIncrements(t *testing.T) {
	db := newServiceDB(t, &domain.Post{}, &domain.PostView{})
	post := seedPublishedPost(t, db, "first-visit")
	svc := &ViewService{DB: db}

	res, err := svc.RecordView(context.Background(), post.ID, "203.0.113.1", "agent")
	if err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if !res.IsNewView {
		t.Fatal("expected first visit to be new")
	}
	if res.TotalViews != 1 || res.UniqueViews != 1 {
		t.Fatalf("expected counters 1/1, got %d/%d", res.TotalViews, res.UniqueViews)
	}
}

func TestRecordView_RepeatVisitDoesNotIncrement(t *testing.T) {
	db := newServiceDB(t, &domain.Post{}, &domain.PostView{})
	post := seedPublishedPost(t, db, "repeat-visit")
	svc := &ViewService{DB: db}
	ctx := context.Background()

	if _, err := svc.RecordView(ctx, post.ID, "203.0.113.1", "agent"); err != nil {
		t.Fatalf("first RecordView: %v", err)
	}
	res, err := svc.RecordView(ctx, post.ID, "203.0.113.1", "agent")
	if err != nil {
		t.Fatalf("second RecordView: %v", err)
	}
	if res.IsNewView {
		t.Fatal("expected repeat visit to not be new")
	}
	if res.TotalViews != 1 || res.UniqueViews != 1 {
		t.Fatalf("expected counters to stay 1/1, got %d/%d", res.TotalViews, res.UniqueViews)
	}
}

func TestRecordView_DistinctIPsCountSeparately(t *testing.T) {
	db := newServiceDB(t, &domain.Post{}, &domain.PostView{})
	post := seedPublishedPost(t, db, "distinct-ips")
	svc := &ViewService{DB: db}
	ctx := context.Background()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		res, err := svc.RecordView(ctx, post.ID, ip, "agent")
		if err != nil {
			t.Fatalf("RecordView(%s): %v", ip, err)
		}
		if !res.IsNewView {
			t.Fatalf("expected %s to be a new view", ip)
		}
	}

	res, err := svc.RecordView(ctx, post.ID, "203.0.113.2", "agent")
	if err != nil {
		t.Fatalf("repeat RecordView: %v", err)
	}
	if res.TotalViews != 3 || res.UniqueViews != 3 {
		t.Fatalf("expected counters 3/3, got %d/%d", res.TotalViews, res.UniqueViews)
	}
}

func TestRecordView_TruncatesLongUserAgent(t *testing.T) {
	db := newServiceDB(t, &domain.Post{}, &domain.PostView{})
	post := seedPublishedPost(t, db, "long-agent")
	svc := &ViewService{DB: db}

	long := strings.Repeat("a", maxUserAgentLen+100)
	if _, err := svc.RecordView(context.Background(), post.ID, "203.0.113.9", long); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	var view domain.PostView
	if err := db.Where("post_id = ?", post.ID).First(&view).Error; err != nil {
		t.Fatalf("load view: %v", err)
	}
	if len(view.UserAgent) != maxUserAgentLen {
		t.Fatalf("expected user agent truncated to %d, got %d", maxUserAgentLen, len(view.UserAgent))
	}
}

func TestRecordView_StorageError(t *testing.T) {
	db := newServiceDB(t, &domain.Post{}) // post_views table missing
	post := seedPublishedPost(t, db, "broken")
	svc := &ViewService{DB: db}

	if _, err := svc.RecordView(context.Background(), post.ID, "203.0.113.1", "agent"); err == nil {
		t.Fatal("expected error when view table is absent")
	}
}

func TestIsDuplicate(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{gorm.ErrDuplicatedKey, true},
		{errors.New("UNIQUE constraint failed: post_views.post_id"), true},
		{errors.New("duplicate key value violates unique constraint"), true},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := isDuplicate(tc.err); got != tc.want {
			t.Fatalf("isDuplicate(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
