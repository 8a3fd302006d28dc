// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// jobTimeout bounds a single job run.
const jobTimeout = time.Minute

// Config selects job schedules.
type Config struct {
	RestockSchedule  string
	PurgeSchedule    string
	RestockThreshold int
}

// Scheduler wraps a cron runner with the service's jobs registered.
type Scheduler struct {
	cron *cron.Cron
	db   *sql.DB
	cfg  Config
}

// New registers the jobs. It does not start them.
func New(db *sql.DB, cfg Config) (*Scheduler, error) {
	if cfg.RestockThreshold <= 0 {
		cfg.RestockThreshold = model.DefaultRestockThreshold
	}

	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		db:   db,
		cfg:  cfg,
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{"restock-check", cfg.RestockSchedule, s.CheckRestock},
		{"purge-tokens", cfg.PurgeSchedule, s.PurgeTokens},
	}
	for _, j := range jobs {
		if j.schedule == "" {
			continue
		}
		name, run := j.name, j.run
		if _, err := s.cron.AddFunc(j.schedule, func() { s.runJob(name, run) }); err != nil {
			return nil, fmt.Errorf("registering job %s: %w", name, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("job scheduler stopped")
	case <-ctx.Done():
		slog.Warn("job scheduler stop timed out")
	}
}

func (s *Scheduler) runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		slog.Error("job failed", "job", name, "error", err)
		return
	}
	slog.Debug("job finished", "job", name, "duration", time.Since(start).Round(time.Millisecond))
}

// CheckRestock logs every section below the restock threshold. Critical
// sections are logged as warnings.
func (s *Scheduler) CheckRestock(ctx context.Context) error {
	recs, err := store.RestockRecommendations(ctx, s.db, s.cfg.RestockThreshold)
	if err != nil {
		return fmt.Errorf("checking restock: %w", err)
	}

	for _, rec := range recs {
		attrs := []any{
			"location", rec.Location,
			"available", rec.AvailableCount,
			"top_categories", rec.TopCategories,
		}
		if rec.Severity == model.SeverityCritical {
			slog.Warn("section critically low", attrs...)
		} else {
			slog.Info("section low", attrs...)
		}
	}
	slog.Info("restock check done", "threshold", s.cfg.RestockThreshold, "sections", len(recs))
	return nil
}

// PurgeTokens removes revoked tokens that have expired anyway.
func (s *Scheduler) PurgeTokens(ctx context.Context) error {
	n, err := store.PurgeExpiredTokens(ctx, s.db)
	if err != nil {
		return fmt.Errorf("purging tokens: %w", err)
	}
	if n > 0 {
		slog.Info("purged expired revoked tokens", "count", n)
	}
	return nil
}
