package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zapponejosh/panchang-api/internal/config"
	"github.com/zapponejosh/panchang-api/internal/database"
	"github.com/zapponejosh/panchang-api/internal/panchang"
	"github.com/zapponejosh/panchang-api/internal/timeline"
	"github.com/zapponejosh/panchang-api/internal/view"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

const dayJSON = `{
  "date": "2025-01-14",
  "location": "Hyderabad, Telangana",
  "basicDetails": {"sunrise": "6:45 AM", "sunset": "5:58 PM", "tithi": "Purnima", "nakshatra": "Punarvasu",
    "yoga": "Vishkambha", "karana": "Bava", "maasam": "Pushya", "samvat": "Krodhi", "rahu": "3:00 PM - 4:30 PM"},
  "inauspiciousTimings": [
    {"nameEn": "Rahu Kalam", "nameLocal": "రాహు కాలం", "time": "3:00 PM - 4:30 PM", "status": "inauspicious"},
    {"nameEn": "Varjyam", "nameLocal": "వర్జ్యం", "time": "none today", "status": "inauspicious"}
  ],
  "auspiciousTimings": [
    {"nameEn": "Abhijit Muhurta", "nameLocal": "అభిజిత్", "time": "11:59 AM - 12:45 PM", "status": "auspicious"}
  ],
  "spiritualSummary": "Steady progress.",
  "horoscope": "",
  "gitaVerse": "BG 2.47",
  "luckyColor": "White",
  "sources": [{"uri": "https://example.org/panchang", "title": "Example"}]
}`

const monthJSON = `{"days": [
  {"date": "2025-01-13", "highlight": "auspicious"},
  {"date": "2025-01-20", "highlight": "inauspicious"},
  {"date": "2025-02-01", "highlight": "auspicious"}
]}`

// fakeGenerator answers day and month requests with canned JSON.
type fakeGenerator struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, req panchang.Request) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	if req.Kind == panchang.KindMonth {
		return monthJSON, nil
	}
	return dayJSON, nil
}

func (g *fakeGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// hold makes every call wait until the returned release func runs.
func (g *fakeGenerator) hold() (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.block = ch
	g.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// testEnv sets up a complete test environment with database, service, and handlers
type testEnv struct {
	db       *database.DB
	cfg      *config.Config
	gen      *fakeGenerator
	handlers *Handlers
	router   http.Handler
}

// fixedNow is noon on 2025-01-14 in India.
var fixedNow = time.Date(2025, 1, 14, 6, 30, 0, 0, time.UTC)

// setupTest creates a fresh test environment
func setupTest(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))

	db, err := database.Open(database.DefaultConfig(database.MemoryPath), logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	cfg := &config.Config{
		Port:            8080,
		Env:             config.EnvDevelopment,
		CachePath:       database.MemoryPath,
		CacheTTL:        time.Hour,
		DefaultLocation: "Hyderabad, Telangana",
		DefaultLanguage: "telugu",
		DefaultRegion:   "andhra",
		DefaultTheme:    "executive",
		Timezone:        "Asia/Kolkata",
		LogLevel:        "error",
		LogFormat:       "text",
	}

	gen := &fakeGenerator{}
	svc := panchang.NewService(gen, database.NewResponseCache(db), panchang.Options{
		CacheTTL: cfg.CacheTTL,
		Location: time.FixedZone("IST", 5*3600+1800),
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})

	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	handlers := NewHandlers(svc, db, renderer, cfg, logger)
	return &testEnv{
		db:       db,
		cfg:      cfg,
		gen:      gen,
		handlers: handlers,
		router:   SetupRoutes(handlers, logger),
	}
}

// do sends a GET through the full router.
func (env *testEnv) do(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// envelope mirrors Response with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

// parseResponse decodes the envelope and, when dst is non-nil, its data.
func parseResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if dst != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var data struct {
		Status string               `json:"status"`
		Cache  *database.CacheStats `json:"cache"`
	}
	resp := parseResponse(t, w, &data)
	if !resp.Success || data.Status != "healthy" {
		t.Errorf("response = %+v, data = %+v", resp, data)
	}
	if data.Cache == nil {
		t.Error("health response has no cache stats")
	}
}

func TestHealthCheck_ClosedDatabase(t *testing.T) {
	env := setupTest(t)
	env.db.Close()

	w := env.do(t, "/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if resp := parseResponse(t, w, nil); resp.Error == nil || resp.Error.Code != CodeUnhealthy {
		t.Errorf("error = %+v", resp.Error)
	}
}

// =============================================================================
// DAY
// =============================================================================

func TestGetPanchang(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/api/v1/panchang?date=2025-01-14&location=Hyderabad&lang=english&region=andhra")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var data DayResponse
	parseResponse(t, w, &data)

	if data.Panchang == nil || data.Panchang.Date != "2025-01-14" {
		t.Fatalf("panchang = %+v", data.Panchang)
	}
	if data.Panchang.BasicDetails.Tithi != "Purnima" {
		t.Errorf("tithi = %q", data.Panchang.BasicDetails.Tithi)
	}
	if len(data.Timeline.Segments) != 2 {
		t.Fatalf("segments = %+v, want 2", data.Timeline.Segments)
	}
	if data.Timeline.Segments[0].Label != "Abhijit Muhurta" {
		t.Errorf("first segment = %q, want the English name", data.Timeline.Segments[0].Label)
	}
	if got := data.Timeline.Segments[1].Range; got != (timeline.Range{Start: 900, End: 990}) {
		t.Errorf("Rahu Kalam range = %+v", got)
	}
	if len(data.Timeline.Omitted) != 1 || data.Timeline.Omitted[0].Raw != "none today" {
		t.Errorf("omitted = %+v", data.Timeline.Omitted)
	}

	// A second identical request is served from the cache.
	env.do(t, "/api/v1/panchang?date=2025-01-14&location=Hyderabad&lang=english&region=andhra")
	if n := env.gen.calls.Load(); n != 1 {
		t.Errorf("generator calls = %d, want 1", n)
	}
}

func TestGetPanchang_Defaults(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/api/v1/panchang")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var data DayResponse
	parseResponse(t, w, &data)
	if data.Panchang.Location != "Hyderabad, Telangana" {
		t.Errorf("location = %q", data.Panchang.Location)
	}
	if len(data.Timeline.Segments) == 0 || data.Timeline.Segments[0].Label != "అభిజిత్" {
		t.Errorf("default language should label segments in Telugu: %+v", data.Timeline.Segments)
	}
}

func TestGetPanchang_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad date", "date=14-01-2025"},
		{"unknown language", "lang=klingon"},
		{"unknown region", "region=mars"},
		{"lat without lng", "lat=17.3"},
		{"non-numeric lng", "lat=17.3&lng=east"},
		{"latitude out of range", "lat=91&lng=78"},
		{"long location", "location=" + strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t)

			w := env.do(t, "/api/v1/panchang?"+tt.query)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := parseResponse(t, w, nil)
			if resp.Success || resp.Error == nil || resp.Error.Code != CodeInvalidQuery {
				t.Errorf("response = %+v", resp)
			}
			if n := env.gen.calls.Load(); n != 0 {
				t.Errorf("generator called %d times for an invalid query", n)
			}
		})
	}
}

func TestGetPanchang_Unavailable(t *testing.T) {
	env := setupTest(t)
	env.gen.fail(errors.New("upstream 500: sk-secret"))

	w := env.do(t, "/api/v1/panchang?date=2025-01-14")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	resp := parseResponse(t, w, nil)
	if resp.Error == nil || resp.Error.Code != CodeUnavailable {
		t.Fatalf("error = %+v", resp.Error)
	}
	if resp.Error.Message != "Failed to compute Vedic timings." {
		t.Errorf("message = %q", resp.Error.Message)
	}
	if strings.Contains(w.Body.String(), "sk-secret") {
		t.Error("upstream error details leaked to the client")
	}
}

func TestGetToday(t *testing.T) {
	env := setupTest(t)

	// The date parameter is ignored.
	w := env.do(t, "/api/v1/panchang/today?date=1999-01-01")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var data DayResponse
	parseResponse(t, w, &data)
	if data.Panchang.Date != "2025-01-14" {
		t.Errorf("date = %q, want 2025-01-14", data.Panchang.Date)
	}

	entries, err := env.db.RecentFetches(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentFetches: %v", err)
	}
	if len(entries) != 1 || !strings.Contains(entries[0].CacheKey, "2025-01-14") {
		t.Errorf("fetch log = %+v", entries)
	}
}

// =============================================================================
// MONTH
// =============================================================================

func TestGetMonth(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/api/v1/panchang/month?year=2025&month=1&location=Chennai&region=tamilnadu")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var data MonthResponse
	parseResponse(t, w, &data)

	if data.Year != 2025 || data.Month != 1 || data.Region != panchang.RegionTamilNadu || data.Location != "Chennai" {
		t.Errorf("month response = %+v", data)
	}
	if data.Highlights["2025-01-13"] != panchang.HighlightAuspicious {
		t.Errorf("2025-01-13 = %q", data.Highlights["2025-01-13"])
	}
	if data.Highlights["2025-01-20"] != panchang.HighlightInauspicious {
		t.Errorf("2025-01-20 = %q", data.Highlights["2025-01-20"])
	}
	if _, ok := data.Highlights["2025-02-01"]; ok {
		t.Error("highlight outside the requested month was kept")
	}
}

func TestGetMonth_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{"non-numeric year", "year=soon", CodeBadRequest},
		{"month out of range", "year=2025&month=13", CodeInvalidQuery},
		{"unknown region", "region=mars", CodeInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t)

			w := env.do(t, "/api/v1/panchang/month?"+tt.query)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if resp := parseResponse(t, w, nil); resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestGetMonth_GeneratorFailureDegrades(t *testing.T) {
	env := setupTest(t)
	env.gen.fail(errors.New("quota exceeded"))

	w := env.do(t, "/api/v1/panchang/month?year=2025&month=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var data MonthResponse
	parseResponse(t, w, &data)
	if len(data.Highlights) != 0 {
		t.Errorf("highlights = %+v, want empty", data.Highlights)
	}
}

// =============================================================================
// TIMELINE
// =============================================================================

func TestParseTimeline(t *testing.T) {
	tests := []struct {
		name       string
		rng        string
		wantStatus int
		wantRange  timeline.Range
		wantCross  bool
	}{
		{"dash", "6:00 AM - 7:30 AM", http.StatusOK, timeline.Range{Start: 360, End: 450}, false},
		{"word to", "11:59 AM to 12:45 PM", http.StatusOK, timeline.Range{Start: 719, End: 765}, false},
		{"crosses midnight", "11:30 PM - 1:00 AM", http.StatusOK, timeline.Range{Start: 1410, End: 60}, true},
		{"unparseable", "whenever", http.StatusUnprocessableEntity, timeline.Range{}, false},
		{"single time", "6:00 AM", http.StatusUnprocessableEntity, timeline.Range{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil)
			q := req.URL.Query()
			q.Set("range", tt.rng)
			req.URL.RawQuery = q.Encode()
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var data RangeResponse
			resp := parseResponse(t, w, &data)
			if tt.wantStatus != http.StatusOK {
				if resp.Error == nil || resp.Error.Code != CodeUnparseable {
					t.Errorf("error = %+v", resp.Error)
				}
				return
			}
			if data.Segment.Range != tt.wantRange {
				t.Errorf("range = %+v, want %+v", data.Segment.Range, tt.wantRange)
			}
			if data.Segment.CrossesMidnight != tt.wantCross {
				t.Errorf("crosses_midnight = %v", data.Segment.CrossesMidnight)
			}
			if tt.wantCross && data.Segment.Width != 0 {
				t.Errorf("width = %v, want 0 for a midnight crossing", data.Segment.Width)
			}
			if data.Input != tt.rng {
				t.Errorf("input = %q", data.Input)
			}
		})
	}
}

func TestParseTimeline_MissingRange(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/api/v1/timeline")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// =============================================================================
// CATALOGS AND FETCH LOG
// =============================================================================

func TestListThemes(t *testing.T) {
	env := setupTest(t)

	var data []struct {
		ID     string `json:"id"`
		Accent string `json:"accent"`
	}
	parseResponse(t, env.do(t, "/api/v1/themes"), &data)
	if len(data) != 6 {
		t.Fatalf("themes = %d, want 6", len(data))
	}
	if data[0].ID == "" || data[0].Accent == "" {
		t.Errorf("first theme = %+v", data[0])
	}
}

func TestListLanguages(t *testing.T) {
	env := setupTest(t)

	var data []LanguageInfo
	parseResponse(t, env.do(t, "/api/v1/languages"), &data)
	if len(data) != 4 {
		t.Fatalf("languages = %+v", data)
	}
	for _, l := range data {
		if l.Name == "" || l.AppName == "" {
			t.Errorf("language %+v is missing names", l)
		}
	}
}

func TestListFetches(t *testing.T) {
	env := setupTest(t)

	env.do(t, "/api/v1/panchang?date=2025-01-14")
	env.gen.fail(errors.New("boom"))
	env.do(t, "/api/v1/panchang?date=2025-01-15")

	var data []database.FetchLogEntry
	w := env.do(t, "/api/v1/fetches?limit=500")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	parseResponse(t, w, &data)
	if len(data) != 2 {
		t.Fatalf("fetches = %+v, want 2", data)
	}

	var failures int
	for _, e := range data {
		if !e.Success {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}

	for _, bad := range []string{"abc", "0", "-3"} {
		if w := env.do(t, "/api/v1/fetches?limit="+bad); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, w.Code)
		}
	}
}

// =============================================================================
// PAGE
// =============================================================================

func TestPage(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, "/?date=2025-01-14&theme=temple")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		`data-theme="temple"`,
		"Rahu Kalam",
		"3:00 PM - 4:30 PM",
		"January 2025",
		`class="now"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, `role="alert"`) {
		t.Error("healthy page shows an alert")
	}
}

func TestPage_ErrorsRenderAlert(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		setup func(*testEnv)
	}{
		{"generator failure", "/?date=2025-01-14", func(env *testEnv) { env.gen.fail(errors.New("boom")) }},
		{"invalid query", "/?date=not-a-date", func(env *testEnv) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t)
			tt.setup(env)

			w := env.do(t, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if !strings.Contains(w.Body.String(), `role="alert"`) {
				t.Error("page has no alert")
			}
			if strings.Contains(w.Body.String(), "boom") {
				t.Error("error details leaked to the page")
			}
		})
	}
}

func TestPage_SlowGeneratorStillRenders(t *testing.T) {
	env := setupTest(t)
	env.cfg.LLMTimeout = 100 * time.Millisecond
	env.cfg.LLMMaxRetries = 1
	release := env.gen.hold()
	t.Cleanup(release)

	start := time.Now()
	w := env.do(t, "/?date=2025-01-14")
	elapsed := time.Since(start)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `role="alert"`) {
		t.Error("page has no alert after the generator stalled")
	}
	if elapsed > 2*time.Second {
		t.Errorf("page took %s, want it cut off near %s", elapsed, env.cfg.GeneratorBudget())
	}
	if got := env.gen.calls.Load(); got != 2 {
		t.Errorf("generator calls = %d, want day and month", got)
	}
}
