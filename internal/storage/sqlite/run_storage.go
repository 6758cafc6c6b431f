package sqlite

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/models"
)

// RunStorage persists worker invocation totals
type RunStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	retry  *common.RetryPolicy
}

// NewRunStorage creates a new pipeline run storage service
func NewRunStorage(db *SQLiteDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
		retry:  common.NewStoreRetryPolicy(),
	}
}

// Start records the beginning of a run
func (s *RunStorage) Start(ctx context.Context, run *models.PipelineRun) error {
	return s.retry.Execute(ctx, s.logger, "start_run", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			INSERT INTO pipeline_runs (id, mode, started_at)
			VALUES (?, ?, strftime('%s','now'))`,
			run.ID, run.Mode)
		return err
	})
}

// Finish stamps the end of a run and its totals
func (s *RunStorage) Finish(ctx context.Context, run *models.PipelineRun) error {
	return s.retry.Execute(ctx, s.logger, "finish_run", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE pipeline_runs
			SET finished_at = strftime('%s','now'), discovered = ?, processed = ?,
				loaded = ?, failed = ?, reprocessed = ?
			WHERE id = ?`,
			run.Discovered, run.Processed, run.Loaded, run.Failed, run.Reprocessed, run.ID)
		return err
	})
}
