package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zapponejosh/panchang-api/internal/calendar"
	"github.com/zapponejosh/panchang-api/internal/config"
	"github.com/zapponejosh/panchang-api/internal/database"
	"github.com/zapponejosh/panchang-api/internal/i18n"
	"github.com/zapponejosh/panchang-api/internal/logger"
	"github.com/zapponejosh/panchang-api/internal/panchang"
	"github.com/zapponejosh/panchang-api/internal/theme"
	"github.com/zapponejosh/panchang-api/internal/timeline"
	"github.com/zapponejosh/panchang-api/internal/view"
)

const (
	defaultFetchLimit = 20
	maxFetchLimit     = 100
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	svc      *panchang.Service
	db       *database.DB
	renderer *view.Renderer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *panchang.Service, db *database.DB, renderer *view.Renderer, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:      svc,
		db:       db,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// DayResponse is the payload of the day endpoints.
type DayResponse struct {
	Panchang *panchang.PanchangData `json:"panchang"`
	Timeline timeline.Timeline      `json:"timeline"`
}

// MonthResponse is the payload of the month endpoint.
type MonthResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	Location   string                   `json:"location"`
	Region     panchang.Region          `json:"region"`
	Highlights panchang.MonthHighlights `json:"highlights"`
}

// RangeResponse is the payload of the timeline endpoint.
type RangeResponse struct {
	Input   string           `json:"input"`
	Segment timeline.Segment `json:"segment"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check database health
	if err := h.db.Health(ctx); err != nil {
		logger.FromContext(ctx, h.logger).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", CodeUnhealthy)
		return
	}

	resp := map[string]any{"status": "healthy"}
	if stats, err := h.db.CacheStats(ctx); err == nil {
		resp["cache"] = stats
	}
	WriteSuccess(w, resp)
}

// Page handles GET / and always answers with HTML. Query or generator
// failures show up as an alert on the page.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)
	params := r.URL.Query()

	in := view.Input{
		Now: h.svc.Now(),
		Options: view.Options{
			Theme:     h.parseTheme(params.Get("theme")),
			WeekStart: time.Sunday,
		},
	}

	q, err := h.parseQuery(params)
	if err != nil {
		log.Info("invalid page query", slog.Any("error", err))
		q = h.defaultQuery()
		in.Err = err
	}
	in.Query = q
	in.Options.Language = q.Language

	// Both fetches may miss the cache. They run side by side under one
	// deadline so the page is written before the server's write timeout.
	fetchCtx := ctx
	if budget := h.cfg.GeneratorBudget(); budget > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var g errgroup.Group
	if in.Err == nil {
		g.Go(func() error {
			data, err := h.svc.Day(fetchCtx, q)
			if err != nil {
				log.Error("failed to get panchang for page",
					slog.String("date", calendar.FormatDate(q.Date)),
					slog.Any("error", err))
			}
			in.Data = data
			return err
		})
	}
	g.Go(func() error {
		highlights, err := h.svc.Month(fetchCtx, panchang.MonthQuery{
			Year:     q.Date.Year(),
			Month:    q.Date.Month(),
			Location: q.Location,
			Region:   q.Region,
		})
		if err != nil {
			log.Warn("failed to get month highlights", slog.Any("error", err))
		}
		in.Highlights = highlights
		return nil
	})
	if err := g.Wait(); err != nil {
		in.Err = err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, view.Build(in)); err != nil {
		log.Error("failed to render page", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetPanchang handles GET /api/v1/panchang?date=&location=&lang=&region=&lat=&lng=
func (h *Handlers) GetPanchang(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidQuery)
		return
	}

	data, err := h.svc.Day(r.Context(), q)
	h.writeDay(w, r, q, data, err)
}

// GetToday handles GET /api/v1/panchang/today. Any date parameter is ignored.
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	params.Del("date")

	q, err := h.parseQuery(params)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidQuery)
		return
	}

	data, err := h.svc.Today(r.Context(), q)
	h.writeDay(w, r, q, data, err)
}

func (h *Handlers) writeDay(w http.ResponseWriter, r *http.Request, q panchang.Query, data *panchang.PanchangData, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, DayResponse{
		Panchang: data,
		Timeline: data.Timeline(q.Language != panchang.LanguageEnglish),
	})
}

// GetMonth handles GET /api/v1/panchang/month?year=&month=&location=&region=
func (h *Handlers) GetMonth(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	now := h.svc.Now()

	year, err := intParam(params, "year", now.Year())
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	month, err := intParam(params, "month", int(now.Month()))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	region, err := h.parseRegion(params.Get("region"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidQuery)
		return
	}

	mq := panchang.MonthQuery{
		Year:     year,
		Month:    time.Month(month),
		Location: h.parseLocation(params.Get("location")),
		Region:   region,
	}
	highlights, err := h.svc.Month(r.Context(), mq)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteSuccess(w, MonthResponse{
		Year:       mq.Year,
		Month:      int(mq.Month),
		Location:   mq.Location,
		Region:     mq.Region,
		Highlights: highlights,
	})
}

// ParseTimeline handles GET /api/v1/timeline?range=6:00 AM - 7:30 AM
func (h *Handlers) ParseTimeline(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("range")
	if strings.TrimSpace(raw) == "" {
		WriteBadRequest(w, "range parameter is required")
		return
	}

	rng, ok := timeline.ParseRange(raw)
	if !ok {
		WriteUnprocessable(w, fmt.Sprintf("Cannot parse time range %q", raw))
		return
	}

	WriteSuccess(w, RangeResponse{
		Input:   raw,
		Segment: timeline.NewSegment(r.URL.Query().Get("label"), "", raw, rng),
	})
}

// ListThemes handles GET /api/v1/themes
func (h *Handlers) ListThemes(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, theme.Records())
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Code    panchang.Language `json:"code"`
	Name    string            `json:"name"`
	AppName string            `json:"app_title"`
}

// ListLanguages handles GET /api/v1/languages
func (h *Handlers) ListLanguages(w http.ResponseWriter, r *http.Request) {
	langs := panchang.Languages()
	out := make([]LanguageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, LanguageInfo{
			Code:    l,
			Name:    l.DisplayName(),
			AppName: i18n.Label(l, i18n.AppTitle),
		})
	}
	WriteSuccess(w, out)
}

// ListFetches handles GET /api/v1/fetches?limit=N
func (h *Handlers) ListFetches(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", defaultFetchLimit)
	if err != nil || limit < 1 {
		WriteBadRequest(w, "limit must be a positive integer")
		return
	}
	if limit > maxFetchLimit {
		limit = maxFetchLimit
	}

	entries, err := h.db.RecentFetches(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to list fetches", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve fetch log")
		return
	}
	WriteSuccess(w, entries)
}

// writeServiceError maps service errors onto envelope codes. Generator
// details stay in the log.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), h.logger)
	switch {
	case errors.Is(err, panchang.ErrInvalidQuery):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidQuery)
	case errors.Is(err, panchang.ErrUnavailable):
		log.Error("generator unavailable", slog.Any("error", err))
		WriteBadGateway(w, "Failed to compute Vedic timings.")
	default:
		log.Error("unexpected service error", slog.Any("error", err))
		WriteInternalError(w, "Internal server error")
	}
}

// =============================================================================
// Query parsing
// =============================================================================

// parseQuery builds a day query from request parameters, filling anything
// missing from configuration. The date defaults to today in the display zone.
func (h *Handlers) parseQuery(params url.Values) (panchang.Query, error) {
	q := h.defaultQuery()

	if s := params.Get("date"); s != "" {
		date, err := calendar.ParseDateIn(s, h.svc.Location())
		if err != nil {
			return q, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", panchang.ErrInvalidQuery, s)
		}
		q.Date = date
	}
	q.Location = h.parseLocation(params.Get("location"))

	if s := params.Get("lang"); s != "" {
		lang, err := panchang.ParseLanguage(s)
		if err != nil {
			return q, err
		}
		q.Language = lang
	}

	region, err := h.parseRegion(params.Get("region"))
	if err != nil {
		return q, err
	}
	q.Region = region

	coords, err := parseCoords(params.Get("lat"), params.Get("lng"))
	if err != nil {
		return q, err
	}
	q.Coords = coords

	return q, q.Validate()
}

func (h *Handlers) defaultQuery() panchang.Query {
	lang, err := panchang.ParseLanguage(h.cfg.DefaultLanguage)
	if err != nil {
		lang = panchang.LanguageTelugu
	}
	region, err := panchang.ParseRegion(h.cfg.DefaultRegion)
	if err != nil {
		region = panchang.RegionAndhra
	}
	return panchang.Query{
		Date:     calendar.StartOfDay(h.svc.Now()),
		Location: h.cfg.DefaultLocation,
		Language: lang,
		Region:   region,
	}
}

func (h *Handlers) parseLocation(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return h.cfg.DefaultLocation
}

func (h *Handlers) parseRegion(s string) (panchang.Region, error) {
	if s == "" {
		s = h.cfg.DefaultRegion
	}
	return panchang.ParseRegion(s)
}

func (h *Handlers) parseTheme(s string) theme.Theme {
	if t, err := theme.Parse(s); err == nil {
		return t
	}
	if t, err := theme.Parse(h.cfg.DefaultTheme); err == nil {
		return t
	}
	return theme.Default
}

// parseCoords requires lat and lng together.
func parseCoords(lat, lng string) (*panchang.Coordinates, error) {
	if lat == "" && lng == "" {
		return nil, nil
	}
	if lat == "" || lng == "" {
		return nil, fmt.Errorf("%w: lat and lng must be given together", panchang.ErrInvalidQuery)
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid lat %q", panchang.ErrInvalidQuery, lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid lng %q", panchang.ErrInvalidQuery, lng)
	}
	return &panchang.Coordinates{Lat: la, Lng: ln}, nil
}

func intParam(params url.Values, name string, def int) (int, error) {
	s := params.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}
