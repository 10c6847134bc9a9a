// Package scheduler runs the background cache jobs: warming today's almanac
// shortly after midnight and purging expired cache rows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zapponejosh/panchang-api/internal/panchang"
)

// Warmer pre-fetches almanacs. *panchang.Service satisfies it.
type Warmer interface {
	Now() time.Time
	Today(ctx context.Context, q panchang.Query) (*panchang.PanchangData, error)
	Month(ctx context.Context, mq panchang.MonthQuery) (panchang.MonthHighlights, error)
}

// Purger removes expired cache rows. *database.DB satisfies it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Config holds the job schedules. An empty spec disables that job.
type Config struct {
	WarmSpec   string
	PurgeSpec  string
	Location   *time.Location
	Query      panchang.Query // default query to warm; its date is ignored
	JobTimeout time.Duration
}

// Scheduler wraps a cron runner with the two cache jobs.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	warmer  Warmer
	purger  Purger
	logger  *slog.Logger
	entries int
}

// New validates the schedules and registers the jobs. Nothing runs until
// Start is called.
func New(cfg Config, warmer Warmer, purger Purger, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:    cfg,
		warmer: warmer,
		purger: purger,
		logger: logger,
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"warm", cfg.WarmSpec, s.Warm},
		{"purge", cfg.PurgeSpec, func(ctx context.Context) error {
			_, err := s.Purge(ctx)
			return err
		}},
	}
	for _, job := range jobs {
		if job.spec == "" {
			logger.Info("scheduled job disabled", slog.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("schedule %s job %q: %w", job.name, job.spec, err)
		}
		s.entries++
	}

	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", slog.Int("jobs", s.entries))
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return s.entries
}

// Warm fetches today's almanac and the current month's highlights for the
// default query, filling the cache ahead of the first visitor.
func (s *Scheduler) Warm(ctx context.Context) error {
	if _, err := s.warmer.Today(ctx, s.cfg.Query); err != nil {
		return fmt.Errorf("warm today: %w", err)
	}

	now := s.warmer.Now()
	if _, err := s.warmer.Month(ctx, panchang.MonthQuery{
		Year:     now.Year(),
		Month:    now.Month(),
		Location: s.cfg.Query.Location,
		Region:   s.cfg.Query.Region,
	}); err != nil {
		return fmt.Errorf("warm month: %w", err)
	}
	return nil
}

// Purge deletes expired cache rows.
func (s *Scheduler) Purge(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	s.logger.Info("purged expired cache entries", slog.Int64("removed", n))
	return n, nil
}

// wrap gives each run a timeout and logs failures; jobs never return
// errors to the cron runner.
func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err))
			return
		}
		s.logger.Debug("scheduled job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
