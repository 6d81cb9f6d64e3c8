package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pressroom/app/internal/article"
	"pressroom/app/internal/gitstore"
)

type memoryFile struct {
	content  []byte
	revision string
}

// memoryStore is an in-memory gitstore.Store with GitHub-style revision
// conditioned writes.
type memoryStore struct {
	mu       sync.Mutex
	files    map[string]memoryFile
	sequence int
	failPath func(path string) error
	pingErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string]memoryFile{}}
}

func (s *memoryStore) Read(_ context.Context, path string) (*gitstore.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPath != nil {
		if err := s.failPath(path); err != nil {
			return nil, err
		}
	}

	file, ok := s.files[path]
	if !ok {
		return nil, eris.Wrapf(gitstore.ErrNotFound, "reading %s", path)
	}

	content := make([]byte, len(file.content))
	copy(content, file.content)
	return &gitstore.File{Content: content, Revision: file.revision}, nil
}

func (s *memoryStore) Write(_ context.Context, path string, content []byte, _, revision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPath != nil {
		if err := s.failPath(path); err != nil {
			return err
		}
	}

	existing, exists := s.files[path]
	if exists && existing.revision != revision {
		return eris.Wrapf(gitstore.ErrConflict, "writing %s", path)
	}
	if !exists && revision != "" {
		return eris.Wrapf(gitstore.ErrConflict, "writing %s", path)
	}

	s.sequence++
	stored := make([]byte, len(content))
	copy(stored, content)
	s.files[path] = memoryFile{content: stored, revision: fmt.Sprintf("rev-%d", s.sequence)}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, path, _, revision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPath != nil {
		if err := s.failPath(path); err != nil {
			return err
		}
	}

	existing, ok := s.files[path]
	if !ok {
		return eris.Wrapf(gitstore.ErrNotFound, "deleting %s", path)
	}
	if existing.revision != revision {
		return eris.Wrapf(gitstore.ErrConflict, "deleting %s", path)
	}

	delete(s.files, path)
	return nil
}

func (s *memoryStore) Ping(context.Context) error {
	return s.pingErr
}

func (s *memoryStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T, store *memoryStore, limiter RateLimiterSettings) *Server {
	t.Helper()

	documents, err := article.NewDocumentStore(store, "articles.json", discardLogger())
	if err != nil {
		t.Fatalf("NewDocumentStore returned error: %v", err)
	}

	service, err := article.NewService(article.ServiceOptions{
		Documents: documents,
		Artifacts: store,
		Layout:    testLayout(),
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	srv, err := NewServer(Options{
		Articles:    service,
		Store:       store,
		Logger:      discardLogger(),
		RateLimiter: limiter,
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	return srv
}

// testLayout keeps the layout used across the server tests in one place.
func testLayout() article.SiteLayout {
	return article.SiteLayout{
		BaseURL:  "https://news.example.com",
		SiteName: "Pressroom",
		PagesDir: "article",
		ShareDir: "share",
	}
}

func generousLimits() RateLimiterSettings {
	return RateLimiterSettings{RequestsPerSecond: 100, Burst: 100, ClientTTL: time.Minute}
}

func postJSON(srv *Server, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

const validArticlePayload = `{
	"title": "Breaking News",
	"category": "Politics",
	"coverImage": "http://cdn.example.com/cover.jpg",
	"excerpt": "Short summary",
	"body": "Full body",
	"author": "R. Castro"
}`

func TestPublishRouteCreatesArticle(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/articles", validArticlePayload)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success true, got %v", body)
	}

	articleID, _ := body["articleId"].(string)
	if !strings.HasPrefix(articleID, "art_") {
		t.Fatalf("unexpected article id %q", articleID)
	}
	if body["slug"] != "breaking-news" {
		t.Fatalf("expected slug breaking-news, got %v", body["slug"])
	}
	if body["articleUrl"] != "https://news.example.com/article/"+articleID+".html" {
		t.Fatalf("unexpected article URL %v", body["articleUrl"])
	}

	shareURLs, ok := body["shareUrls"].(map[string]any)
	if !ok || shareURLs["whatsapp"] == "" || shareURLs["facebook"] == "" || shareURLs["twitter"] == "" {
		t.Fatalf("expected share links, got %v", body["shareUrls"])
	}

	if !store.has("articles.json") {
		t.Fatal("expected document to be written")
	}
	if !store.has("article/" + articleID + ".html") {
		t.Fatal("expected article page artifact to be written")
	}

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", origin)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestPublishRouteRejectsIncompletePayload(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/articles", `{"title": "Only a title"}`)

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message")
	}

	fields, ok := body["fields"].([]any)
	if !ok || len(fields) == 0 {
		t.Fatalf("expected offending fields to be listed, got %v", body["fields"])
	}

	if store.has("articles.json") {
		t.Fatal("expected no document write for invalid payload")
	}
}

func TestPublishRouteRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/articles", `{"title": `)

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected envelope with success false, got %s", rec.Body.String())
	}
}

func TestPublishRouteReportsConflictAfterRetries(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	// Each cycle hits failPath twice: the read passes, the write conflicts.
	calls := 0
	store.failPath = func(path string) error {
		if path != "articles.json" {
			return nil
		}
		calls++
		if calls%2 == 0 {
			return eris.Wrapf(gitstore.ErrConflict, "writing %s", path)
		}
		return nil
	}

	rec := postJSON(srv, "/api/articles", validArticlePayload)

	if rec.Code != 409 {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body)
	}
}

func TestPublishRouteReportsStoreOutage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	store.failPath = func(path string) error {
		return eris.Wrapf(gitstore.ErrUnavailable, "reading %s", path)
	}

	rec := postJSON(srv, "/api/articles", validArticlePayload)

	if rec.Code != 502 {
		t.Fatalf("expected status 502, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body)
	}
}

func TestUpdateRouteReplacesFields(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	created := decodeBody(t, postJSON(srv, "/api/articles", validArticlePayload))
	articleID := created["articleId"].(string)

	rec := postJSON(srv, "/api/articles/update", fmt.Sprintf(`{"id": %q, "title": "Corrected Headline"}`, articleID))

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true || body["articleId"] != articleID {
		t.Fatalf("unexpected update response %v", body)
	}

	file, err := store.Read(context.Background(), "articles.json")
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	if !strings.Contains(string(file.Content), "Corrected Headline") {
		t.Fatal("expected document to carry the new title")
	}
}

func TestUpdateRouteUnknownArticleReturns404(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/articles/update", `{"id": "art_0_missing00", "title": "New"}`)

	if rec.Code != 404 {
		t.Fatalf("expected status 404, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body)
	}
}

func TestDeleteRouteRemovesArticleAndPage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	created := decodeBody(t, postJSON(srv, "/api/articles", validArticlePayload))
	articleID := created["articleId"].(string)

	rec := postJSON(srv, "/api/articles/delete", fmt.Sprintf(`{"id": %q}`, articleID))

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if store.has("article/" + articleID + ".html") {
		t.Fatal("expected article page artifact to be removed")
	}

	rec = postJSON(srv, "/api/articles/delete", fmt.Sprintf(`{"id": %q}`, articleID))
	if rec.Code != 404 {
		t.Fatalf("expected status 404 on second delete, got %d", rec.Code)
	}
}

func TestDeleteRouteRequiresID(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/articles/delete", `{}`)

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestShareRouteWritesPage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/share", `{
		"title": "Breaking News",
		"excerpt": "Short summary",
		"image": "http://cdn.example.com/cover.jpg"
	}`)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	shareURL, _ := body["shareUrl"].(string)
	if !strings.HasPrefix(shareURL, "https://news.example.com/share/breaking-news-") {
		t.Fatalf("unexpected share URL %q", shareURL)
	}

	path := strings.TrimPrefix(shareURL, "https://news.example.com/")
	if !store.has(path) {
		t.Fatalf("expected share page at %s", path)
	}
}

func TestShareRouteRequiresImage(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	rec := postJSON(srv, "/api/share", `{"title": "Breaking News"}`)

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPreflightRequestsAreAnswered(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	req := httptest.NewRequest("OPTIONS", "/api/articles", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", origin)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "POST") {
		t.Fatalf("expected POST in allowed methods, got %q", methods)
	}
}

func TestHealthRouteReportsStoreState(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, generousLimits())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	store.pingErr = eris.Wrap(gitstore.ErrUnavailable, "pinging repository")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestRateLimiterRejectsExcessiveRequests(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	srv := newTestServer(t, store, RateLimiterSettings{
		RequestsPerSecond: 0.001,
		Burst:             1,
		ClientTTL:         time.Minute,
	})

	first := postJSON(srv, "/api/articles", validArticlePayload)
	if first.Code != 200 {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := postJSON(srv, "/api/articles", validArticlePayload)
	if second.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", second.Code)
	}

	body := decodeBody(t, second)
	if body["success"] != false {
		t.Fatalf("expected envelope with success false, got %s", second.Body.String())
	}
}

func TestNewServerValidatesDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Options{Store: newMemoryStore(), RateLimiter: generousLimits()}); err == nil {
		t.Fatal("expected error for missing article service")
	}

	store := newMemoryStore()
	documents, err := article.NewDocumentStore(store, "articles.json", discardLogger())
	if err != nil {
		t.Fatalf("NewDocumentStore returned error: %v", err)
	}
	service, err := article.NewService(article.ServiceOptions{
		Documents: documents,
		Artifacts: store,
		Layout:    testLayout(),
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	if _, err := NewServer(Options{Articles: service, RateLimiter: generousLimits()}); err == nil {
		t.Fatal("expected error for missing store")
	}

	if _, err := NewServer(Options{Articles: service, Store: store}); err == nil {
		t.Fatal("expected error for zero rate limiter settings")
	}
}
