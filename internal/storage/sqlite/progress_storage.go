package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/models"
)

// ProgressStorage tracks per-type discovery progress
type ProgressStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	retry  *common.RetryPolicy
}

// NewProgressStorage creates a new discovery progress storage service
func NewProgressStorage(db *SQLiteDB, logger arbor.ILogger) *ProgressStorage {
	return &ProgressStorage{
		db:     db,
		logger: logger,
		retry:  common.NewStoreRetryPolicy(),
	}
}

// Get returns the progress row for a (source, reg_type) pair, or nil
// when discovery has never run for it
func (s *ProgressStorage) Get(ctx context.Context, source, regType string) (*models.DiscoveryProgress, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT source, reg_type, total_known, total_pages, pages_crawled,
			last_discovered_at, updated_at
		FROM discovery_progress WHERE source = ? AND reg_type = ?`, source, regType)

	var p models.DiscoveryProgress
	var lastDiscovered sql.NullInt64
	var updatedAt int64
	err := row.Scan(&p.Source, &p.RegType, &p.TotalKnown, &p.TotalPages,
		&p.PagesCrawled, &lastDiscovered, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastDiscovered.Valid {
		t := time.Unix(lastDiscovered.Int64, 0)
		p.LastDiscoveredAt = &t
	}
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// Upsert writes a progress row, stamping last_discovered_at and
// updated_at
func (s *ProgressStorage) Upsert(ctx context.Context, p *models.DiscoveryProgress) error {
	return s.retry.Execute(ctx, s.logger, "upsert_progress", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			INSERT INTO discovery_progress (source, reg_type, total_known,
				total_pages, pages_crawled, last_discovered_at, updated_at)
			VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now'))
			ON CONFLICT(source, reg_type) DO UPDATE SET
				total_known = excluded.total_known,
				total_pages = excluded.total_pages,
				pages_crawled = excluded.pages_crawled,
				last_discovered_at = excluded.last_discovered_at,
				updated_at = excluded.updated_at`,
			p.Source, p.RegType, p.TotalKnown, p.TotalPages, p.PagesCrawled)
		return err
	})
}
