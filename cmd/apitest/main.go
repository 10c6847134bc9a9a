package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// DayResponse is the response for /panchang and /panchang/today
type DayResponse struct {
	Panchang struct {
		Date         string `json:"date"`
		Location     string `json:"location"`
		BasicDetails struct {
			Sunrise   string `json:"sunrise"`
			Sunset    string `json:"sunset"`
			Tithi     string `json:"tithi"`
			Nakshatra string `json:"nakshatra"`
		} `json:"basicDetails"`
	} `json:"panchang"`
	Timeline struct {
		Segments []struct {
			Label string  `json:"label"`
			Raw   string  `json:"raw"`
			Left  float64 `json:"left"`
			Width float64 `json:"width"`
		} `json:"segments"`
		Omitted []struct {
			Label string `json:"label"`
			Raw   string `json:"raw"`
		} `json:"omitted"`
	} `json:"timeline"`
}

// MonthResponse is the response for /panchang/month
type MonthResponse struct {
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Highlights map[string]string `json:"highlights"`
}

// RangeResponse is the response for /timeline
type RangeResponse struct {
	Segment struct {
		Range struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"range"`
		CrossesMidnight bool `json:"crosses_midnight"`
	} `json:"segment"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	client       *http.Client
	verbose      bool
	live         bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, verbose, live bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			// Generator calls are slow.
			Timeout: 3 * time.Minute,
		},
		verbose: verbose,
		live:    live,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("Panchang API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testCatalogs()
	tr.testTimelineParser()
	tr.testValidation()
	tr.testPage()
	if tr.live {
		tr.testToday()
		tr.testMonth()
	} else {
		fmt.Println()
		fmt.Println("(skipping generator-backed tests; pass -live to run them)")
	}

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	resp, err := tr.get("/health")
	if err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	var health HealthResponse
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testCatalogs() {
	tr.printSection("Catalogs")

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/api/v1/themes", 6},
		{"/api/v1/languages", 4},
	} {
		resp, err := tr.get(tc.path)
		if err != nil {
			tr.recordError(tc.path, err.Error())
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			tr.recordError(tc.path, err.Error())
			continue
		}
		if len(items) == tc.want {
			tr.recordSuccess(fmt.Sprintf("%s lists %d entries", tc.path, len(items)))
		} else {
			tr.recordError(tc.path, fmt.Sprintf("Expected %d entries, got %d", tc.want, len(items)))
		}
	}
}

func (tr *TestRunner) testTimelineParser() {
	tr.printSection("Timeline Parser")

	testCases := []struct {
		input     string
		start     int
		end       int
		crossing  bool
		wantError bool
	}{
		{"6:00 AM - 7:30 AM", 360, 450, false, false},
		{"11:59 AM to 12:45 PM", 719, 765, false, false},
		{"18.30 – 19.15", 1110, 1155, false, false},
		{"11:30 PM - 1:00 AM", 1410, 60, true, false},
		{"none today", 0, 0, false, true},
	}

	for _, tc := range testCases {
		path := "/api/v1/timeline?range=" + url.QueryEscape(tc.input)
		if tc.wantError {
			raw, err := tr.getRaw(path)
			if err != nil {
				tr.recordError(tc.input, err.Error())
				continue
			}
			raw.Body.Close()
			if raw.StatusCode == http.StatusUnprocessableEntity {
				tr.recordSuccess(fmt.Sprintf("%q rejected with 422", tc.input))
			} else {
				tr.recordError(tc.input, fmt.Sprintf("Expected 422, got %d", raw.StatusCode))
			}
			continue
		}

		resp, err := tr.get(path)
		if err != nil {
			tr.recordError(tc.input, err.Error())
			continue
		}
		var data RangeResponse
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			tr.recordError(tc.input, err.Error())
			continue
		}
		r := data.Segment.Range
		if r.Start == tc.start && r.End == tc.end && data.Segment.CrossesMidnight == tc.crossing {
			tr.recordSuccess(fmt.Sprintf("%q -> [%d, %d)", tc.input, r.Start, r.End))
		} else {
			tr.recordError(tc.input, fmt.Sprintf("Expected [%d, %d) crossing=%v, got [%d, %d) crossing=%v",
				tc.start, tc.end, tc.crossing, r.Start, r.End, data.Segment.CrossesMidnight))
		}
	}
}

func (tr *TestRunner) testValidation() {
	tr.printSection("Validation")

	for _, tc := range []struct {
		path   string
		status int
	}{
		{"/api/v1/panchang?date=14-01-2025", http.StatusBadRequest},
		{"/api/v1/panchang?lang=klingon", http.StatusBadRequest},
		{"/api/v1/panchang?region=mars", http.StatusBadRequest},
		{"/api/v1/panchang?lat=17.3", http.StatusBadRequest},
		{"/api/v1/panchang/month?month=13", http.StatusBadRequest},
		{"/api/v1/timeline", http.StatusBadRequest},
		{"/api/v1/fetches?limit=abc", http.StatusBadRequest},
		{"/api/v1/unknown", http.StatusNotFound},
	} {
		resp, err := tr.getRaw(tc.path)
		if err != nil {
			tr.recordError(tc.path, err.Error())
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == tc.status {
			tr.recordSuccess(fmt.Sprintf("%s -> %d", tc.path, resp.StatusCode))
		} else {
			tr.recordError(tc.path, fmt.Sprintf("Expected %d, got %d", tc.status, resp.StatusCode))
		}
	}
}

func (tr *TestRunner) testPage() {
	tr.printSection("HTML Page")

	// An invalid date must still render the page, with an alert.
	resp, err := tr.getRaw("/?date=not-a-date")
	if err != nil {
		tr.recordError("Page", err.Error())
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK && strings.Contains(string(body), `role="alert"`) {
		tr.recordSuccess("Invalid query renders the page with an alert")
	} else {
		tr.recordError("Page", fmt.Sprintf("HTTP %d, alert present: %v",
			resp.StatusCode, strings.Contains(string(body), `role="alert"`)))
	}
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today's Panchang (live generator)")

	resp, err := tr.get("/api/v1/panchang/today?lang=english")
	if err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	var data DayResponse
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	d := data.Panchang
	tr.recordSuccess(fmt.Sprintf("Today (%s, %s): %s / %s, %d segments, %d omitted",
		d.Date, d.Location, d.BasicDetails.Tithi, d.BasicDetails.Nakshatra,
		len(data.Timeline.Segments), len(data.Timeline.Omitted)))
	tr.printDayDetail(&data)
}

func (tr *TestRunner) testMonth() {
	tr.printSection("Month Highlights (live generator)")

	resp, err := tr.get("/api/v1/panchang/month")
	if err != nil {
		tr.recordError("Month", err.Error())
		return
	}

	var data MonthResponse
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		tr.recordError("Month", err.Error())
		return
	}

	prefix := fmt.Sprintf("%04d-%02d-", data.Year, data.Month)
	for date := range data.Highlights {
		if !strings.HasPrefix(date, prefix) {
			tr.recordError("Month", fmt.Sprintf("Highlight %s outside %04d-%02d", date, data.Year, data.Month))
			return
		}
	}
	tr.recordSuccess(fmt.Sprintf("%04d-%02d: %d highlighted days", data.Year, data.Month, len(data.Highlights)))
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) get(path string) (*APIResponse, error) {
	resp, err := tr.getRaw(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error: %s", errMsg)
	}

	return &apiResp, nil
}

func (tr *TestRunner) getRaw(path string) (*http.Response, error) {
	return tr.client.Get(tr.baseURL + path)
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) printDayDetail(d *DayResponse) {
	if !tr.verbose || d == nil {
		return
	}
	fmt.Printf("    Sunrise: %s  Sunset: %s\n", d.Panchang.BasicDetails.Sunrise, d.Panchang.BasicDetails.Sunset)
	for _, s := range d.Timeline.Segments {
		fmt.Printf("      - %s: %s (%.1f%% +%.1f%%)\n", s.Label, s.Raw, s.Left, s.Width)
	}
	for _, o := range d.Timeline.Omitted {
		fmt.Printf("      ! %s: %s (not placed)\n", o.Label, o.Raw)
	}
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	verbose := flag.Bool("v", false, "Verbose output (show timeline details)")
	live := flag.Bool("live", false, "Also run tests that call the generator")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *verbose, *live)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
