// Package sweeper removes expired shares and repairs rows whose content is gone.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sharelink/internal/metrics"
	"sharelink/internal/model"
	"sharelink/internal/storage"
)

const defaultBatchSize = 500

// Records is the slice of the share store the sweeper needs.
type Records interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ShareRecord, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ShareRecord, error)
	Delete(ctx context.Context, id int64) error
}

// Options configures a Sweeper. Zero values pick sensible defaults; an empty
// ReconcileSchedule disables reconciliation.
type Options struct {
	Schedule          string
	ReconcileSchedule string
	BatchSize         int
	// StorageRPS caps content calls per second. Zero means unlimited.
	StorageRPS float64
	Location          *time.Location
	Clock             clockwork.Clock
	Logger            zerolog.Logger
	Metrics           *metrics.Metrics
}

// Result summarises one pass.
type Result struct {
	Scanned int
	Removed int
	Failed  int
}

// Sweeper runs retention passes on a cron schedule. Passes never overlap.
type Sweeper struct {
	records Records
	content storage.Storage
	opts    Options
	log     zerolog.Logger
	pace    *rate.Limiter

	running sync.Mutex

	mu   sync.Mutex
	cron *cron.Cron
}

func New(records Records, content storage.Storage, opts Options) *Sweeper {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	pace := rate.NewLimiter(rate.Inf, 1)
	if opts.StorageRPS > 0 {
		pace = rate.NewLimiter(rate.Limit(opts.StorageRPS), 1)
	}
	return &Sweeper{
		records: records,
		content: content,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "sweeper").Logger(),
		pace:    pace,
	}
}

// RunOnce deletes every record whose expiresAt is strictly before now.
// Content goes first, then the row: a crash in between leaves a row pointing
// at nothing, which the gate reports as not found and Reconcile later removes.
// Records that fail are logged, counted and retried on the next pass.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	s.running.Lock()
	defer s.running.Unlock()

	start := s.opts.Clock.Now()
	now := start
	var res Result

	// Rows that fail stay expired and come back first in every listing, so
	// the limit grows by the number skipped to keep paging past them.
	failed := make(map[int64]struct{})
	for {
		limit := s.opts.BatchSize + len(failed)
		batch, err := s.records.ListExpired(ctx, now, limit)
		if err != nil {
			return res, fmt.Errorf("list expired: %w", err)
		}
		fresh := 0
		for i := range batch {
			if _, skip := failed[batch[i].ID]; skip {
				continue
			}
			if err := s.pace.Wait(ctx); err != nil {
				return res, err
			}
			fresh++
			res.Scanned++
			if s.remove(ctx, &batch[i], "expired") {
				res.Removed++
			} else {
				res.Failed++
				failed[batch[i].ID] = struct{}{}
			}
		}
		if len(batch) < limit || fresh == 0 {
			break
		}
	}

	s.opts.Metrics.SweepRemoved(metrics.JobExpire, res.Removed)
	s.opts.Metrics.SweepFailed(metrics.JobExpire, res.Failed)
	s.log.Info().
		Str("event", "sweep_complete").
		Int("scanned", res.Scanned).
		Int("removed", res.Removed).
		Int("failed", res.Failed).
		Int64("duration_ms", s.opts.Clock.Now().Sub(start).Milliseconds()).
		Msg("retention sweep finished")
	return res, nil
}

// Reconcile walks every record and deletes rows whose content no longer exists.
func (s *Sweeper) Reconcile(ctx context.Context) (Result, error) {
	s.running.Lock()
	defer s.running.Unlock()

	var (
		res     Result
		afterID int64
	)
	for {
		batch, err := s.records.ListAfter(ctx, afterID, s.opts.BatchSize)
		if err != nil {
			return res, fmt.Errorf("list records: %w", err)
		}
		for i := range batch {
			rec := &batch[i]
			if err := s.pace.Wait(ctx); err != nil {
				return res, err
			}
			afterID = rec.ID
			res.Scanned++

			ok, err := s.content.Exists(ctx, rec.StorageLocation)
			if err != nil {
				res.Failed++
				s.log.Warn().Err(err).Int64("share_id", rec.ID).Msg("content check failed")
				continue
			}
			if ok {
				continue
			}
			if err := s.records.Delete(ctx, rec.ID); err != nil {
				res.Failed++
				s.log.Error().Err(err).Int64("share_id", rec.ID).Msg("failed to delete dangling record")
				continue
			}
			res.Removed++
			s.log.Info().
				Int64("share_id", rec.ID).
				Str("short_link", rec.ShortLink).
				Msg("removed record with missing content")
		}
		if len(batch) < s.opts.BatchSize {
			break
		}
	}

	s.opts.Metrics.SweepRemoved(metrics.JobReconcile, res.Removed)
	s.opts.Metrics.SweepFailed(metrics.JobReconcile, res.Failed)
	s.log.Info().
		Str("event", "reconcile_complete").
		Int("scanned", res.Scanned).
		Int("removed", res.Removed).
		Int("failed", res.Failed).
		Msg("reconciliation finished")
	return res, nil
}

func (s *Sweeper) remove(ctx context.Context, rec *model.ShareRecord, why string) bool {
	if err := s.content.Delete(ctx, rec.StorageLocation); err != nil {
		s.log.Error().Err(err).Int64("share_id", rec.ID).Msg("failed to delete content")
		return false
	}
	if err := s.records.Delete(ctx, rec.ID); err != nil {
		s.log.Error().Err(err).Int64("share_id", rec.ID).Msg("failed to delete record")
		return false
	}
	ev := s.log.Info().Int64("share_id", rec.ID).Str("short_link", rec.ShortLink).Str("reason", why)
	if rec.ExpiresAt != nil {
		ev = ev.Time("expired_at", *rec.ExpiresAt)
	}
	ev.Msg("removed share")
	return true
}

// Start schedules the sweep (and reconciliation, when configured). Jobs run
// with ctx; cancelling it aborts an in-flight pass.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New(cron.WithLocation(s.opts.Location))
	if _, err := c.AddFunc(s.opts.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.opts.Schedule, err)
	}
	if s.opts.ReconcileSchedule != "" {
		if _, err := c.AddFunc(s.opts.ReconcileSchedule, func() {
			if _, err := s.Reconcile(ctx); err != nil {
				s.log.Error().Err(err).Msg("reconciliation failed")
			}
		}); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", s.opts.ReconcileSchedule, err)
		}
	}

	c.Start()
	s.cron = c
	s.log.Info().
		Str("schedule", s.opts.Schedule).
		Str("reconcile_schedule", s.opts.ReconcileSchedule).
		Msg("sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running job to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info().Msg("sweeper stopped")
}
