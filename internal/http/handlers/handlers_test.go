package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pacunato/go-site-backend/internal/domain"
	"github.com/pacunato/go-site-backend/internal/http/middleware"
	"github.com/pacunato/go-site-backend/internal/relay"
	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newTestRouter wires the real services over db; webhookURL may be empty for a
// disabled relay.
func newTestRouter(t *testing.T, db *gorm.DB, webhookURL string) *gin.Engine {
	t.Helper()

	posts := &services.PostService{DB: db}
	views := &services.ViewService{DB: db}
	leads := &services.LeadService{
		DB:            db,
		AdvisoryRelay: relay.New(webhookURL, time.Second),
		QuoteRelay:    relay.New(webhookURL, time.Second),
	}
	newsletter := &services.NewsletterService{DB: db, Relay: relay.New(webhookURL, time.Second)}

	h := New(posts, views, leads, newsletter)
	h.KeyTTL = time.Hour
	admin := NewAdmin(db, leads, newsletter)

	r := gin.New()
	r.Use(middleware.SubmissionKeyValidator(
		middleware.SubmissionKeyOptions{},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetSubmissionKey(ctx, db, scope, key, now)
			return err == nil && rec != nil, nil
		},
	))
	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:slug", h.GetPost)
	r.POST("/leads/advisory", h.SubmitAdvisory)
	r.POST("/leads/quote", h.SubmitQuote)
	r.POST("/newsletter/subscribe", h.Subscribe)
	r.POST("/newsletter/unsubscribe", h.Unsubscribe)

	r.GET("/admin/leads/advisory", admin.ListAdvisoryLeads)
	r.GET("/admin/leads/quote", admin.ListQuoteLeads)
	r.POST("/admin/leads/advisory/processed", admin.SetAdvisoryProcessed)
	r.POST("/admin/leads/quote/processed", admin.SetQuoteProcessed)
	r.GET("/admin/leads/quote/export", admin.ExportQuoteLeads)
	r.POST("/admin/leads/advisory/:id/resend", admin.ResendAdvisory)
	r.POST("/admin/leads/quote/:id/resend", admin.ResendQuote)
	r.GET("/admin/subscribers", admin.ListSubscribers)
	r.POST("/admin/subscribers/resend", admin.ResendSubscribers)
	r.POST("/admin/maintenance/submission-keys/purge", admin.PurgeSubmissionKeys)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func seedArticle(t *testing.T, db *gorm.DB, slug string, published bool) *domain.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), db, &domain.Post{
		Slug:        slug,
		Title:       "Title " + slug,
		Excerpt:     "excerpt",
		Content:     "# Hello\n\nBody for " + slug + ".",
		Category:    "events",
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func TestListPosts_EmptyAndSeeded(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	w := doJSON(t, r, http.MethodGet, "/posts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("empty list: status %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	if resp["total"].(float64) != 0 {
		t.Fatalf("expected total 0, got %v", resp["total"])
	}

	seedArticle(t, db, "one", true)
	seedArticle(t, db, "two", true)
	seedArticle(t, db, "hidden", false)

	w = doJSON(t, r, http.MethodGet, "/posts?per_page=1&page=2", "")
	resp = decode[map[string]any](t, w)
	if resp["total"].(float64) != 2 || resp["page"].(float64) != 2 {
		t.Fatalf("unexpected listing: %v", resp)
	}
}

func TestListPosts_ETag(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	seedArticle(t, db, "etag-post", true)

	w := doJSON(t, r, http.MethodGet, "/posts", "")
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	// A new post invalidates the tag.
	seedArticle(t, db, "fresh-post", true)
	req = httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after change, got %d", w.Code)
	}
}

func TestListPosts_SearchShortCircuit(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	seedArticle(t, db, "container-shipping", true)

	w := doJSON(t, r, http.MethodGet, "/posts?q=container+shipping", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	if resp["query"] != "container shipping" {
		t.Fatalf("expected query echo, got %v", resp)
	}
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %v", results)
	}
}

func TestGetPost_RecordsViewAndFailsOpen(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	seedArticle(t, db, "tracked", true)

	w := doJSON(t, r, http.MethodGet, "/posts/tracked", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	if resp["is_new_view"] != true {
		t.Fatalf("expected first view to be new: %v", resp)
	}
	article := resp["article"].(map[string]any)
	if article["view_count"].(float64) != 1 {
		t.Fatalf("expected view_count 1, got %v", article["view_count"])
	}
	if !strings.Contains(article["content_html"].(string), "<h1") {
		t.Fatalf("expected rendered HTML, got %v", article["content_html"])
	}

	// Same client again: not a new view, counter unchanged.
	w = doJSON(t, r, http.MethodGet, "/posts/tracked", "")
	resp = decode[map[string]any](t, w)
	if resp["is_new_view"] != false {
		t.Fatalf("expected repeat view: %v", resp)
	}
}

type brokenViewRecorder struct{}

func (brokenViewRecorder) RecordView(context.Context, string, string, string) (*services.ViewResult, error) {
	return nil, fmt.Errorf("storage offline")
}

func TestGetPost_ViewTrackingFailsOpen(t *testing.T) {
	db := newHandlerDB(t)
	seedArticle(t, db, "resilient", true)

	posts := &services.PostService{DB: db}
	h := New(posts, brokenViewRecorder{}, nil, nil)
	r := gin.New()
	r.GET("/posts/:slug", h.GetPost)

	w := doJSON(t, r, http.MethodGet, "/posts/resilient", "")
	if w.Code != http.StatusOK {
		t.Fatalf("article must still serve when tracking breaks, got %d", w.Code)
	}
	resp := decode[map[string]any](t, w)
	if resp["is_new_view"] != false {
		t.Fatalf("broken tracking must report is_new_view=false: %v", resp)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	seedArticle(t, db, "draft-only", false)

	for _, slug := range []string{"ghost", "draft-only"} {
		w := doJSON(t, r, http.MethodGet, "/posts/"+slug, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("slug %s: expected 404, got %d", slug, w.Code)
		}
		resp := decode[ErrorResponse](t, w)
		if resp.Code != ErrCodeNotFound {
			t.Fatalf("expected not_found code, got %q", resp.Code)
		}
	}
}

func TestSubmitAdvisory_Endpoint(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	w := doJSON(t, r, http.MethodPost, "/leads/advisory",
		`{"name":"Jane","email":"jane@example.com","phone":"+507 6000 0000","message":"call me"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	receipt := decode[map[string]any](t, w)
	if receipt["id"] == "" || receipt["relayed"] != false {
		t.Fatalf("unexpected receipt: %v", receipt)
	}

	// Missing field: 400 with the offending field named.
	w = doJSON(t, r, http.MethodPost, "/leads/advisory",
		`{"name":"Jane","email":"jane@example.com","message":"call me"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeValidationFailed || resp.Field != "phone" {
		t.Fatalf("unexpected validation envelope: %+v", resp)
	}

	// Malformed body.
	w = doJSON(t, r, http.MethodPost, "/leads/advisory", `{"name":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestSubmitAdvisory_FormEncoded(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	form := "name=Jane&email=jane%40example.com&phone=123&message=hi"
	req := httptest.NewRequest(http.MethodPost, "/leads/advisory", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func doJSONWithKey(t *testing.T, r *gin.Engine, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitAdvisory_IdenticalKeyRetryReplaysReceipt(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	body := `{"name":"Jane","email":"jane@example.com","phone":"123","message":"call me"}`
	w := doJSONWithKey(t, r, http.MethodPost, "/leads/advisory", body, "retry-123")
	if w.Code != http.StatusCreated {
		t.Fatalf("first submit: status %d, body %s", w.Code, w.Body.String())
	}
	first := decode[map[string]any](t, w)

	var keys int64
	if err := db.Model(&domain.SubmissionKey{}).Count(&keys).Error; err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected 1 stored submission key, got %d", keys)
	}

	w = doJSONWithKey(t, r, http.MethodPost, "/leads/advisory", body, "retry-123")
	if w.Code != http.StatusCreated {
		t.Fatalf("retry: status %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("expected replay marker header on retry")
	}
	second := decode[map[string]any](t, w)
	if second["id"] != first["id"] {
		t.Fatalf("retry must replay the original receipt: %v vs %v", second["id"], first["id"])
	}

	var leads int64
	if err := db.Model(&domain.AdvisoryLead{}).Count(&leads).Error; err != nil {
		t.Fatalf("count leads: %v", err)
	}
	if leads != 1 {
		t.Fatalf("identical-key retry must not insert a second row, got %d", leads)
	}

	// A different key is a fresh submission.
	w = doJSONWithKey(t, r, http.MethodPost, "/leads/advisory", body, "retry-456")
	if w.Code != http.StatusCreated {
		t.Fatalf("fresh key: status %d", w.Code)
	}
	if err := db.Model(&domain.AdvisoryLead{}).Count(&leads).Error; err != nil {
		t.Fatalf("count leads: %v", err)
	}
	if leads != 2 {
		t.Fatalf("expected 2 rows after a fresh key, got %d", leads)
	}
}

func TestSubmitQuote_KeyScopedPerRoute(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	advisory := `{"name":"Jane","email":"jane@example.com","phone":"123","message":"call me"}`
	quote := `{"name":"Jane","email":"jane@example.com","phone":"123","origin_country":"panama","destination_country":"spain","service_type":"door-to-door","message":"pallets"}`

	if w := doJSONWithKey(t, r, http.MethodPost, "/leads/advisory", advisory, "shared-key"); w.Code != http.StatusCreated {
		t.Fatalf("advisory: status %d", w.Code)
	}
	// The same key on the quote form is a distinct submission, not a replay.
	w := doJSONWithKey(t, r, http.MethodPost, "/leads/quote", quote, "shared-key")
	if w.Code != http.StatusCreated {
		t.Fatalf("quote: status %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatal("cross-form key must not replay")
	}

	// Retrying the quote replays with its route intact.
	w = doJSONWithKey(t, r, http.MethodPost, "/leads/quote", quote, "shared-key")
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("expected quote retry to replay")
	}
	receipt := decode[map[string]any](t, w)
	if receipt["route"] != "Panama → Spain" {
		t.Fatalf("replayed receipt lost its route: %v", receipt)
	}

	var quotes int64
	if err := db.Model(&domain.QuoteLead{}).Count(&quotes).Error; err != nil {
		t.Fatalf("count quotes: %v", err)
	}
	if quotes != 1 {
		t.Fatalf("expected a single quote row, got %d", quotes)
	}
}

func TestSubmitQuote_Endpoint(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	w := doJSON(t, r, http.MethodPost, "/leads/quote",
		`{"name":"Jane","email":"jane@example.com","phone":"123","origin_country":"panama","destination_country":"spain","service_type":"door-to-door","message":"two pallets"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	receipt := decode[map[string]any](t, w)
	if receipt["route"] != "Panama → Spain" {
		t.Fatalf("unexpected route: %v", receipt["route"])
	}
}

func TestNewsletterEndpoints(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")

	w := doJSON(t, r, http.MethodPost, "/newsletter/subscribe", `{"email":"jane@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("subscribe: status %d, body %s", w.Code, w.Body.String())
	}
	result := decode[map[string]any](t, w)
	if result["status"] != "new" {
		t.Fatalf("expected new, got %v", result)
	}

	w = doJSON(t, r, http.MethodPost, "/newsletter/subscribe", `{"email":"JANE@example.com"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate subscribe: expected 409, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeAlreadySubscribed {
		t.Fatalf("unexpected code %q", resp.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/newsletter/subscribe", `{"email":"nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid email: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/newsletter/unsubscribe", `{"email":"jane@example.com"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unsubscribe: expected 204, got %d", w.Code)
	}

	// Unknown address also yields 204: no membership leak.
	w = doJSON(t, r, http.MethodPost, "/newsletter/unsubscribe", `{"email":"ghost@example.com"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unknown unsubscribe: expected 204, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/newsletter/subscribe", `{"email":"jane@example.com"}`)
	result = decode[map[string]any](t, w)
	if result["status"] != "reactivated" {
		t.Fatalf("expected reactivated, got %v", result)
	}
}

func TestAdminListAndBulkProcessed(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		lead := &domain.AdvisoryLead{
			ID:          fmt.Sprintf("adv-%d", i),
			Name:        "n",
			Email:       "e@example.com",
			Phone:       "p",
			Message:     "m",
			SubmittedAt: time.Now().UTC(),
		}
		if err := repo.CreateAdvisoryLead(ctx, db, lead); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/admin/leads/advisory", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	list := decode[map[string]any](t, w)
	if list["total"].(float64) != 3 {
		t.Fatalf("expected 3 leads, got %v", list["total"])
	}

	w = doJSON(t, r, http.MethodPost, "/admin/leads/advisory/processed",
		`{"ids":["adv-0","adv-2","missing"],"processed":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk: status %d, body %s", w.Code, w.Body.String())
	}
	bulk := decode[map[string]any](t, w)
	if bulk["updated"].(float64) != 2 {
		t.Fatalf("expected 2 updated, got %v", bulk["updated"])
	}

	w = doJSON(t, r, http.MethodGet, "/admin/leads/advisory?processed=true", "")
	list = decode[map[string]any](t, w)
	if list["total"].(float64) != 2 {
		t.Fatalf("expected 2 processed, got %v", list["total"])
	}

	// Empty selection is rejected.
	w = doJSON(t, r, http.MethodPost, "/admin/leads/advisory/processed", `{"ids":[],"processed":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", w.Code)
	}
}

func TestAdminExportQuoteLeadsCSV(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, "")
	ctx := context.Background()

	if err := repo.CreateQuoteLead(ctx, db, &domain.QuoteLead{
		ID: "q-1", Name: "Jane", Email: "jane@example.com", Phone: "123",
		OriginCountry: "panama", DestinationCountry: "spain",
		ServiceType: "door-to-door", Message: "pallets",
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed quote: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/admin/leads/quote/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "quote-leads-") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "q-1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	route := rows[1][8]
	if route != "Panama → Spain" {
		t.Fatalf("unexpected route column: %q", route)
	}
}

func TestAdminResendLead(t *testing.T) {
	db := newHandlerDB(t)
	ctx := context.Background()

	if err := repo.CreateAdvisoryLead(ctx, db, &domain.AdvisoryLead{
		ID: "adv-1", Name: "n", Email: "e@example.com", Phone: "p", Message: "m",
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	// No webhook configured: 502 with a clear message.
	r := newTestRouter(t, db, "")
	w := doJSON(t, r, http.MethodPost, "/admin/leads/advisory/adv-1/resend", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	// Unknown lead: 404.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	r = newTestRouter(t, db, srv.URL)

	w = doJSON(t, r, http.MethodPost, "/admin/leads/advisory/ghost/resend", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// Healthy webhook: 204 and the relayed flag flips.
	w = doJSON(t, r, http.MethodPost, "/admin/leads/advisory/adv-1/resend", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d, body %s", w.Code, w.Body.String())
	}
	lead, err := repo.GetAdvisoryLead(ctx, db, "adv-1")
	if err != nil {
		t.Fatalf("load lead: %v", err)
	}
	if !lead.Relayed {
		t.Fatal("expected relayed flag set")
	}
}

func TestAdminSubscribersAndMaintenance(t *testing.T) {
	db := newHandlerDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	r := newTestRouter(t, db, srv.URL)
	ctx := context.Background()

	// One unrelayed active subscriber and one inactive.
	for i, active := range []bool{true, false} {
		sub := &domain.Subscriber{
			ID:           fmt.Sprintf("sub-%d", i),
			Email:        fmt.Sprintf("s%d@example.com", i),
			SubscribedAt: time.Now().UTC(),
			IsActive:     active,
			ConsentGiven: true,
			ConsentAt:    time.Now().UTC(),
		}
		if err := repo.CreateSubscriber(ctx, db, sub); err != nil {
			t.Fatalf("seed subscriber: %v", err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/admin/subscribers?active=true", "")
	list := decode[map[string]any](t, w)
	if list["total"].(float64) != 1 {
		t.Fatalf("expected 1 active subscriber, got %v", list["total"])
	}

	w = doJSON(t, r, http.MethodPost, "/admin/subscribers/resend", "")
	sent := decode[map[string]any](t, w)
	if sent["sent"].(float64) != 1 {
		t.Fatalf("expected 1 delivery, got %v", sent)
	}

	// Purge reports how many expired keys were removed.
	if _, err := repo.CreateSubmissionKey(ctx, db, "/s", "old", "r", 200, time.Nanosecond); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	time.Sleep(time.Millisecond)
	w = doJSON(t, r, http.MethodPost, "/admin/maintenance/submission-keys/purge", "")
	purged := decode[map[string]any](t, w)
	if purged["purged"].(float64) != 1 {
		t.Fatalf("expected 1 purged, got %v", purged)
	}
}
