package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/crawler"
	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/pipeline"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

// Supervisor drives the worker modes: one-shot discovery or processing
// batches, the full pass, and the continuous loop. It owns run
// bookkeeping; the discoverer and processor own the actual work.
type Supervisor struct {
	discoverer *crawler.Discoverer
	processor  *pipeline.Processor
	store      *sqlite.Manager
	cfg        *common.Config
	logger     arbor.ILogger
	schedule   cron.Schedule
}

// NewSupervisor wires the worker loop. An invalid cron schedule in the
// configuration is a construction error.
func NewSupervisor(discoverer *crawler.Discoverer, processor *pipeline.Processor, store *sqlite.Manager, cfg *common.Config, logger arbor.ILogger) (*Supervisor, error) {
	s := &Supervisor{
		discoverer: discoverer,
		processor:  processor,
		store:      store,
		cfg:        cfg,
		logger:     logger,
	}
	if spec := cfg.Worker.Schedule; spec != "" {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid worker schedule %q: %w", spec, err)
		}
		s.schedule = sched
	}
	return s, nil
}

// RunOptions carries per-invocation overrides of the configured worker
// defaults. Zero values defer to the configuration.
type RunOptions struct {
	Types            []string      // regulation type codes to discover
	Source           string        // claim jobs from one source only
	MaxPages         int           // per-type listing page cap
	BatchSize        int           // jobs per processing batch
	MaxRuntime       time.Duration // runtime budget for the invocation
	Sleep            time.Duration // pause between continuous batches
	DiscoverInterval int           // re-discover every N batches
	Freshness        time.Duration // discovery re-crawl window
	IgnoreFreshness  bool          // force discovery past the window
	NoDiscover       bool          // continuous mode without discovery
	DiscoveryFirst   bool          // fill the queue before processing
	DryRun           bool          // discovery without writes
}

func (o RunOptions) discoverOptions(cfg *common.Config) crawler.DiscoverOptions {
	return crawler.DiscoverOptions{
		Types:     o.Types,
		Force:     o.IgnoreFreshness,
		MaxJobs:   cfg.Worker.DiscoverBatch,
		MaxPages:  o.MaxPages,
		Freshness: o.Freshness,
		DryRun:    o.DryRun,
	}
}

func (o RunOptions) batchSize(fallback int) int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return fallback
}

func (o RunOptions) runtime(fallback time.Duration) time.Duration {
	if o.MaxRuntime > 0 {
		return o.MaxRuntime
	}
	return fallback
}

// RunDiscover walks the source listings once and enqueues jobs
func (s *Supervisor) RunDiscover(ctx context.Context, opts RunOptions) error {
	run := s.startRun(ctx, "discover")
	defer s.finishRun(ctx, run)

	n, err := s.discoverer.DiscoverAll(ctx, opts.discoverOptions(s.cfg))
	run.Discovered = n
	return err
}

// RunProcess claims and processes one batch of pending jobs
func (s *Supervisor) RunProcess(ctx context.Context, opts RunOptions) error {
	run := s.startRun(ctx, "process")
	defer s.finishRun(ctx, run)

	deadline := time.Now().Add(opts.runtime(s.cfg.Worker.MaxRuntime))
	result, err := s.processor.ProcessBatch(ctx, run.ID, opts.Source,
		opts.batchSize(s.cfg.Worker.ProcessBatch), deadline)
	if result != nil {
		run.Processed = result.Claimed
		run.Loaded = result.Loaded
		run.Failed = result.Failed
	}
	return err
}

// RunFull discovers then processes until the queue or the runtime is
// exhausted
func (s *Supervisor) RunFull(ctx context.Context, opts RunOptions) error {
	run := s.startRun(ctx, "full")
	defer s.finishRun(ctx, run)

	deadline := time.Now().Add(opts.runtime(s.cfg.Worker.MaxRuntime))

	n, err := s.discoverer.DiscoverAll(ctx, opts.discoverOptions(s.cfg))
	run.Discovered = n
	if err != nil {
		return err
	}

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.processor.ProcessBatch(ctx, run.ID, opts.Source,
			opts.batchSize(s.cfg.Worker.ProcessBatch), deadline)
		if err != nil {
			return err
		}
		run.Processed += result.Claimed
		run.Loaded += result.Loaded
		run.Failed += result.Failed
		if result.Claimed == 0 {
			break
		}
	}
	return nil
}

// RunReprocess re-runs extraction over already-downloaded jobs behind
// the current extraction version
func (s *Supervisor) RunReprocess(ctx context.Context, force bool, opts RunOptions) error {
	run := s.startRun(ctx, "reprocess")
	defer s.finishRun(ctx, run)

	deadline := time.Now().Add(opts.runtime(s.cfg.Worker.MaxRuntime))
	result, err := s.processor.ReprocessBatch(ctx, run.ID,
		opts.batchSize(s.cfg.Worker.ReprocessBatch), force, deadline)
	if result != nil {
		run.Reprocessed = result.Claimed
		run.Loaded = result.Loaded
		run.Failed = result.Failed
	}
	return err
}

// RunRetryFailed resets retryable failed jobs to pending. An explicit
// errorLike pattern also reaches jobs the junk-PDF guard would skip; a
// dry run only counts.
func (s *Supervisor) RunRetryFailed(ctx context.Context, errorLike string, limit int, dryRun bool) (int64, error) {
	count, err := s.store.Jobs.RetryFailed(ctx, errorLike, limit, dryRun)
	if err != nil {
		return 0, err
	}
	if dryRun {
		s.logger.Info().Int64("count", count).Msg("Failed jobs matching retry filter (dry run)")
	} else {
		s.logger.Info().Int64("count", count).Msg("Failed jobs reset to pending")
	}
	return count, nil
}

// RunContinuous loops discover and process batches until the runtime
// budget or the context ends. With DiscoveryFirst the first iteration
// is discovery only so a fresh deployment fills its queue before
// processing; discovery then repeats every DiscoverInterval batches
// unless NoDiscover is set. Idle batches fall back to reprocessing,
// then to a long sleep.
func (s *Supervisor) RunContinuous(ctx context.Context, opts RunOptions) error {
	run := s.startRun(ctx, "continuous")
	defer s.finishRun(ctx, run)

	deadline := time.Now().Add(opts.runtime(s.cfg.Worker.ContinuousRuntime))
	sleep := opts.Sleep
	if sleep <= 0 {
		sleep = s.cfg.Worker.Sleep
	}
	discoverInterval := opts.DiscoverInterval
	if discoverInterval <= 0 {
		discoverInterval = s.cfg.Worker.DiscoverInterval
	}
	batchSize := opts.batchSize(s.cfg.Worker.ProcessBatch)
	batchCount := 0

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.waitForSchedule(ctx, deadline) {
			break
		}

		batchCount++
		if batchCount == 1 && opts.DiscoveryFirst && !opts.NoDiscover {
			// Fill the queue before any processing
			forced := opts.discoverOptions(s.cfg)
			forced.Force = true
			n, err := s.discoverer.DiscoverAll(ctx, forced)
			run.Discovered += n
			if err != nil {
				s.logger.Warn().Err(err).Msg("Initial discovery failed")
			}
			if !sleepCtx(ctx, sleep) {
				return ctx.Err()
			}
			continue
		}
		if !opts.NoDiscover && discoverInterval > 0 && batchCount%discoverInterval == 0 {
			n, err := s.discoverer.DiscoverAll(ctx, opts.discoverOptions(s.cfg))
			run.Discovered += n
			if err != nil {
				s.logger.Warn().Err(err).Msg("Discovery iteration failed")
			}
		}

		result, err := s.processor.ProcessBatch(ctx, run.ID, opts.Source, batchSize, deadline)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Processing iteration failed")
			if !sleepCtx(ctx, 2*sleep) {
				return ctx.Err()
			}
			continue
		}
		run.Processed += result.Claimed
		run.Loaded += result.Loaded
		run.Failed += result.Failed

		if result.Claimed == 0 {
			reResult, err := s.processor.ReprocessBatch(ctx, run.ID, s.cfg.Worker.ReprocessBatch, false, deadline)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Reprocess iteration failed")
			} else {
				run.Reprocessed += reResult.Claimed
				run.Loaded += reResult.Loaded
				run.Failed += reResult.Failed
			}
			if reResult == nil || reResult.Claimed == 0 {
				// Queue fully drained; back off before polling again
				if !sleepCtx(ctx, 5*sleep) {
					return ctx.Err()
				}
				continue
			}
		}

		if !sleepCtx(ctx, sleep) {
			return ctx.Err()
		}
	}

	s.logger.Info().
		Int("discovered", run.Discovered).
		Int("processed", run.Processed).
		Int("loaded", run.Loaded).
		Int("failed", run.Failed).
		Int("reprocessed", run.Reprocessed).
		Msg("Continuous run finished")
	return nil
}

// waitForSchedule blocks until the configured cron schedule fires, or
// returns immediately when no schedule is set. Returns false when the
// wait would pass the deadline or the context ends.
func (s *Supervisor) waitForSchedule(ctx context.Context, deadline time.Time) bool {
	if s.schedule == nil {
		return true
	}
	next := s.schedule.Next(time.Now())
	if next.After(deadline) {
		return false
	}
	return sleepCtx(ctx, time.Until(next))
}

// Stats prints queue totals
func (s *Supervisor) Stats(ctx context.Context) (*sqlite.JobStats, error) {
	return s.store.Jobs.Stats(ctx)
}

func (s *Supervisor) startRun(ctx context.Context, mode string) *models.PipelineRun {
	run := &models.PipelineRun{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
	if err := s.store.Runs.Start(ctx, run); err != nil {
		s.logger.Warn().Str("mode", mode).Err(err).Msg("Failed to record run start")
	}
	return run
}

func (s *Supervisor) finishRun(ctx context.Context, run *models.PipelineRun) {
	if err := s.store.Runs.Finish(ctx, run); err != nil {
		s.logger.Warn().Str("run_id", run.ID).Err(err).Msg("Failed to record run totals")
	}
}

// sleepCtx sleeps unless the context ends first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
