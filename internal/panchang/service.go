package panchang

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zapponejosh/panchang-api/internal/calendar"
	"github.com/zapponejosh/panchang-api/internal/metrics"
)

// Kind distinguishes the two request shapes sent to the generator.
type Kind string

const (
	KindDay   Kind = "day"
	KindMonth Kind = "month"
)

// Request is one structured-output call.
type Request struct {
	Kind       Kind
	System     string
	Prompt     string
	SchemaName string
	Schema     *Schema
}

// Generator produces the raw JSON text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// FetchRecord describes one generator round trip.
type FetchRecord struct {
	CacheKey string
	Kind     Kind
	Success  bool
	Error    string
	Duration time.Duration
}

// Cache stores decoded answers by cache key and keeps a log of fetches.
type Cache interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Put(ctx context.Context, key string, kind Kind, payload []byte, ttl time.Duration) error
	LogFetch(ctx context.Context, rec FetchRecord) error
}

// Options configures a Service. Zero values pick sensible defaults.
type Options struct {
	CacheTTL time.Duration
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service answers almanac queries from the cache or the generator.
// Concurrent requests for the same key share one generator call.
type Service struct {
	gen   Generator
	cache Cache
	ttl   time.Duration
	loc   *time.Location
	log   *slog.Logger
	now   func() time.Time
	group singleflight.Group
}

// NewService wires a generator and an optional cache (nil disables caching).
func NewService(gen Generator, cache Cache, opts Options) *Service {
	s := &Service{
		gen:   gen,
		cache: cache,
		ttl:   opts.CacheTTL,
		loc:   opts.Location,
		log:   opts.Logger,
		now:   opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Now returns the current time in the display time zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location returns the display time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Day returns the almanac for q.
func (s *Service) Day(ctx context.Context, q Query) (*PanchangData, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := q.CacheKey()

	var cached PanchangData
	if s.lookup(ctx, key, KindDay, &cached) {
		return &cached, nil
	}

	v, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		v, err := s.fetch(ctx, key, Request{
			Kind:       KindDay,
			System:     SystemPrompt,
			Prompt:     DayPrompt(q),
			SchemaName: DaySchemaName,
			Schema:     DaySchema(),
		}, func(raw string) (any, error) {
			return DecodeDay(raw, q)
		})
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, KindDay, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PanchangData), nil
}

// Today returns the almanac for the current date in the display time zone.
// q.Date is ignored.
func (s *Service) Today(ctx context.Context, q Query) (*PanchangData, error) {
	q.Date = calendar.StartOfDay(s.Now())
	return s.Day(ctx, q)
}

// Month returns per-day highlights for mq. Generator failures degrade to an
// empty map; only an invalid query is reported as an error.
func (s *Service) Month(ctx context.Context, mq MonthQuery) (MonthHighlights, error) {
	if err := mq.Validate(); err != nil {
		return nil, err
	}
	key := mq.CacheKey()

	var cached MonthHighlights
	if s.lookup(ctx, key, KindMonth, &cached) {
		return cached, nil
	}

	v, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		v, err := s.fetch(ctx, key, Request{
			Kind:       KindMonth,
			System:     SystemPrompt,
			Prompt:     MonthPrompt(mq),
			SchemaName: MonthSchemaName,
			Schema:     MonthSchema(),
		}, func(raw string) (any, error) {
			return DecodeMonth(raw, mq)
		})
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, KindMonth, v)
		return v, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("month highlights unavailable", "key", key, "error", err)
		return MonthHighlights{}, nil
	}
	return v.(MonthHighlights), nil
}

// do runs fn once per key across concurrent callers. The shared call is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own context ends.
func (s *Service) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch calls the generator, decodes the answer and records the attempt in
// the fetch log. An answer that does not decode is logged as a failed fetch.
func (s *Service) fetch(ctx context.Context, key string, req Request, decode func(raw string) (any, error)) (any, error) {
	start := time.Now()
	raw, err := s.gen.Generate(ctx, req)
	var v any
	if err == nil {
		if v, err = decode(raw); err != nil {
			err = fmt.Errorf("undecodable %s response: %w", req.Kind, err)
		}
	}

	rec := FetchRecord{
		CacheKey: key,
		Kind:     req.Kind,
		Success:  err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if s.cache != nil {
		if logErr := s.cache.LogFetch(ctx, rec); logErr != nil {
			s.log.Warn("failed to record fetch", "key", key, "error", logErr)
		}
	}
	if err != nil {
		s.log.Error("generator request failed", "kind", req.Kind, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.log.Debug("generator request completed", "kind", req.Kind, "key", key,
		"duration_ms", rec.Duration.Milliseconds())
	return v, nil
}

func (s *Service) lookup(ctx context.Context, key string, kind Kind, dst any) bool {
	if s.cache == nil {
		return false
	}
	payload, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues(string(kind), "error").Inc()
		s.log.Warn("cache lookup failed", "key", key, "error", err)
		return false
	case !ok:
		metrics.CacheLookupsTotal.WithLabelValues(string(kind), "miss").Inc()
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(string(kind), "error").Inc()
		s.log.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	metrics.CacheLookupsTotal.WithLabelValues(string(kind), "hit").Inc()
	return true
}

func (s *Service) store(ctx context.Context, key string, kind Kind, v any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Put(ctx, key, kind, payload, s.ttl); err != nil {
		s.log.Warn("failed to store cache entry", "key", key, "error", err)
	}
}
