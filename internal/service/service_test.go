package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/autolink/autolink/internal/config"
	"github.com/autolink/autolink/internal/logging"
	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/scanner"
	"github.com/gorilla/websocket"
)

func newTestService(t *testing.T, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return svc
}

func postScan(t *testing.T, svc http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://example.com/v1/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)
	return rec
}

func TestScanEndpoint(t *testing.T) {
	svc := newTestService(t, nil)

	rec := postScan(t, svc, `{"text":"#abc @def","categories":["hashtag","mention"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatal("expected request id")
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", resp.Items)
	}
	if resp.Items[0].Category != patterns.CategoryHashtag || resp.Items[1].Category != patterns.CategoryMention {
		t.Fatalf("unexpected order %+v", resp.Items)
	}
}

func TestScanEndpointEmptyCategories(t *testing.T) {
	svc := newTestService(t, nil)

	rec := postScan(t, svc, `{"text":"#abc @def","categories":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 || len(resp.Diagnostics) != 0 {
		t.Fatalf("expected empty result for explicit empty list, got %+v", resp)
	}

	resp = ScanResponse{}
	if err := json.Unmarshal(postScan(t, svc, `{"text":"#abc @def"}`).Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected configured categories when field is missing, got %+v", resp.Items)
	}
}

func TestScanEndpointUsesConfiguredDefaults(t *testing.T) {
	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Scan.Categories = []string{"custom"}
		cfg.Scan.CustomPattern = `JIRA-\d+`
	})

	rec := postScan(t, svc, `{"text":"see JIRA-7 and #tag"}`)
	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Text != "JIRA-7" {
		t.Fatalf("expected configured custom match, got %+v", resp.Items)
	}

	rec = postScan(t, svc, `{"text":"see JIRA-7 and BUG-9","custom_pattern":"BUG-\\d+"}`)
	resp = ScanResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Text != "BUG-9" {
		t.Fatalf("expected request pattern to win, got %+v", resp.Items)
	}
}

func TestScanEndpointReportsDiagnostics(t *testing.T) {
	svc := newTestService(t, nil)

	rec := postScan(t, svc, `{"text":"#a (","categories":["custom","hashtag"],"custom_pattern":"("}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with diagnostics, got %d", rec.Code)
	}
	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected hashtag item, got %+v", resp.Items)
	}
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Code != scanner.CodeInvalidCustomPattern {
		t.Fatalf("expected invalid pattern diagnostic, got %+v", resp.Diagnostics)
	}
}

func TestScanEndpointRejects(t *testing.T) {
	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Scan.MaxTextBytes = 8
	})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"text":`, http.StatusBadRequest},
		{"unknown field", `{"txt":"x"}`, http.StatusBadRequest},
		{"unknown category", `{"text":"x","categories":["nope"]}`, http.StatusBadRequest},
		{"too long", `{"text":"0123456789"}`, http.StatusRequestEntityTooLarge},
		{"body too large", `{"text":"` + strings.Repeat("a", 8192) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		rec := postScan(t, svc, tt.body)
		if rec.Code != tt.code {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.code, rec.Code)
		}
	}
}

func TestScanEndpointRateLimit(t *testing.T) {
	var buf bytes.Buffer
	svc := newTestService(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})
	svc.SetScanLogger(logging.NewScanLogger(&buf))

	if rec := postScan(t, svc, `{"text":"#a"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rec.Code)
	}
	if rec := postScan(t, svc, `{"text":"#a"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 scan records, got %d", len(lines))
	}
	var last logging.ScanRecord
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if last.Outcome != logging.OutcomeRateLimited {
		t.Fatalf("expected rate_limited outcome, got %q", last.Outcome)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]scanner.Result
}

func (m *memoryStore) Get(_ context.Context, key string) (scanner.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	return r, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, r scanner.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = r
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestScanEndpointCache(t *testing.T) {
	svc := newTestService(t, nil)
	svc.SetCache(&memoryStore{data: map[string]scanner.Result{}})

	var first, second ScanResponse
	if err := json.Unmarshal(postScan(t, svc, `{"text":"#a"}`).Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(postScan(t, svc, `{"text":"#a"}`).Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Cached || !second.Cached {
		t.Fatalf("expected miss then hit, got %v then %v", first.Cached, second.Cached)
	}
	if len(second.Items) != len(first.Items) {
		t.Fatalf("expected cached items to match")
	}
}

func TestCachedDiagnosticsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "warn", Format: "json", Output: &logs})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc, err := New(config.Default(), logger)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	svc.SetCache(&memoryStore{data: map[string]scanner.Result{}})

	body := `{"text":"#a","categories":["custom"],"custom_pattern":"("}`
	var ids []string
	for i := 0; i < 2; i++ {
		var resp ScanResponse
		if err := json.Unmarshal(postScan(t, svc, body).Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if i == 1 && !resp.Cached {
			t.Fatal("expected second scan served from cache")
		}
		ids = append(ids, resp.RequestID)
	}

	out := logs.String()
	if n := strings.Count(out, scanner.CodeInvalidCustomPattern); n != 2 {
		t.Fatalf("expected diagnostic logged for both scans, got %d in %s", n, out)
	}
	for _, id := range ids {
		if !strings.Contains(out, `"request_id":"`+id+`"`) {
			t.Fatalf("expected request id %s in log %s", id, out)
		}
	}
}

func TestReload(t *testing.T) {
	svc := newTestService(t, nil)

	cfg := config.Default()
	cfg.Scan.Categories = []string{"mention"}
	if err := svc.Reload(cfg); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	var resp ScanResponse
	if err := json.Unmarshal(postScan(t, svc, `{"text":"#a @b"}`).Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Category != patterns.CategoryMention {
		t.Fatalf("expected reloaded categories, got %+v", resp.Items)
	}

	bad := config.Default()
	bad.Scan.Categories = []string{"nope"}
	if err := svc.Reload(bad); err == nil {
		t.Fatal("expected reload error")
	}
	if svc.Settings().Categories[0] != patterns.CategoryMention {
		t.Fatal("expected previous settings kept after failed reload")
	}
}

func TestCategoriesAndHealth(t *testing.T) {
	svc := newTestService(t, nil)

	for _, path := range []string{"/healthz", "/v1/categories"} {
		rec := httptest.NewRecorder()
		svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestWebsocketScan(t *testing.T) {
	svc := newTestService(t, nil)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	categories := []string{"hashtag", "mention"}
	if err := conn.WriteJSON(ScanRequest{Text: "@b #a", Categories: &categories}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp ScanResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Text != "#a" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errResp errorResponse
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if errResp.Error == "" {
		t.Fatal("expected error reply")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"txt":"#a"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	errResp = errorResponse{}
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(errResp.Error, "unknown field") {
		t.Fatalf("expected unknown field error, got %q", errResp.Error)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"#abc @def","categories":[]}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp = ScanResponse{}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Fatalf("expected empty items for empty category list, got %+v", resp.Items)
	}
}
