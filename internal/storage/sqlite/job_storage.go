package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/models"
)

// FailureJunkPDF prefixes failure messages for PDFs that are portal
// error pages rather than regulations. retry-failed skips these unless
// an operator targets them explicitly; the other permanent conditions
// (no PDF link, image-only scans) carry their own terminal statuses.
const FailureJunkPDF = "junk_pdf"

const maxFailureLen = 1000

const jobColumns = `id, source_id, url, reg_type, slug, title, number, year,
	status, priority, pdf_url, pdf_hash, pdf_size, pdf_local_path,
	pdf_storage_url, pdf_downloaded_at, work_id, run_id, extraction_version,
	failure, created_at, updated_at, last_claimed_at, last_crawled_at,
	completed_at`

// JobStorage handles crawl job persistence and the claim queue
type JobStorage struct {
	db           *SQLiteDB
	logger       arbor.ILogger
	retry        *common.RetryPolicy
	claimTimeout time.Duration
}

// NewJobStorage creates a new job storage service
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger, claimTimeout time.Duration) *JobStorage {
	if claimTimeout <= 0 {
		claimTimeout = 15 * time.Minute
	}
	return &JobStorage{
		db:           db,
		logger:       logger,
		retry:        common.NewStoreRetryPolicy(),
		claimTimeout: claimTimeout,
	}
}

// TruncateFailure limits a failure message to the persisted maximum
func TruncateFailure(msg string) string {
	if len(msg) > maxFailureLen {
		return msg[:maxFailureLen]
	}
	return msg
}

// UpsertJob inserts a discovered job or refreshes its discovery
// metadata. The status of an existing row is never changed here.
func (s *JobStorage) UpsertJob(ctx context.Context, job *models.CrawlJob) error {
	return s.retry.Execute(ctx, s.logger, "upsert_job", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			INSERT INTO crawl_jobs (source_id, url, reg_type, slug, title, number, year,
				status, priority, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?, strftime('%s','now'), strftime('%s','now'))
			ON CONFLICT(source_id, url) DO UPDATE SET
				reg_type = excluded.reg_type,
				slug = excluded.slug,
				title = excluded.title,
				number = excluded.number,
				year = excluded.year,
				priority = excluded.priority,
				updated_at = excluded.updated_at`,
			job.SourceID, job.URL, job.RegType, job.Slug, job.Title, job.Number, job.Year, job.Priority)
		return err
	})
}

// ClaimFilter selects which jobs a claim may take
type ClaimFilter struct {
	Statuses []models.JobStatus
	// MaxExtractionVersion, when > 0, restricts the claim to jobs whose
	// extraction_version is below it. Used by reprocess.
	MaxExtractionVersion int
	// Source restricts the claim to one source id when set
	Source string
	// RunID, when set, is stamped on every claimed row so the job is
	// linked to the supervisor run that took it
	RunID string
	Limit int
}

// ClaimJobs atomically moves up to filter.Limit matching jobs to
// processing and returns them. The update-with-subselect runs as a
// single statement, so concurrent claimants never receive overlapping
// rows. Jobs stuck in processing longer than the claim timeout are
// returned to their pre-claim status first.
func (s *JobStorage) ClaimJobs(ctx context.Context, filter ClaimFilter) ([]*models.CrawlJob, error) {
	if len(filter.Statuses) == 0 || filter.Limit <= 0 {
		return nil, nil
	}

	if err := s.reclaimStuck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to reclaim stuck jobs")
	}

	placeholders := make([]string, len(filter.Statuses))
	args := make([]interface{}, 0, len(filter.Statuses)+2)
	for i, st := range filter.Statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	where := fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", "))
	if filter.MaxExtractionVersion > 0 {
		where += " AND extraction_version < ?"
		args = append(args, filter.MaxExtractionVersion)
	}
	if filter.Source != "" {
		where += " AND source_id = ?"
		args = append(args, filter.Source)
	}
	setRunID := ""
	if filter.RunID != "" {
		setRunID = "run_id = ?,"
		args = append([]interface{}{filter.RunID}, args...)
	}
	args = append(args, filter.Limit)

	query := fmt.Sprintf(`
		UPDATE crawl_jobs
		SET %s
			prev_status = status,
			status = 'processing',
			last_claimed_at = strftime('%%s','now'),
			last_crawled_at = strftime('%%s','now'),
			updated_at = strftime('%%s','now')
		WHERE id IN (
			SELECT id FROM crawl_jobs
			WHERE %s
			ORDER BY priority DESC, created_at ASC
			LIMIT ?
		)
		RETURNING %s`, setRunID, where, jobColumns)

	var jobs []*models.CrawlJob
	err := s.retry.Execute(ctx, s.logger, "claim_jobs", func() error {
		rows, err := s.db.DB().QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		jobs = jobs[:0]
		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// reclaimStuck returns jobs abandoned mid-claim to their previous status
func (s *JobStorage) reclaimStuck(ctx context.Context) error {
	res, err := s.db.DB().ExecContext(ctx, `
		UPDATE crawl_jobs
		SET status = COALESCE(prev_status, 'pending'),
			prev_status = NULL,
			last_claimed_at = NULL,
			updated_at = strftime('%s','now')
		WHERE status = 'processing'
		  AND last_claimed_at IS NOT NULL
		  AND last_claimed_at < strftime('%s','now') - ?`,
		int64(s.claimTimeout.Seconds()))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Warn().Int64("count", n).Msg("Reclaimed stuck jobs")
	}
	return nil
}

// UpdateStatus transitions a job. Terminal statuses stamp completed_at;
// failure messages are truncated before persisting.
func (s *JobStorage) UpdateStatus(ctx context.Context, id int64, status models.JobStatus, failure string) error {
	failure = TruncateFailure(failure)
	return s.retry.Execute(ctx, s.logger, "update_job_status", func() error {
		var err error
		if status.IsTerminal() {
			_, err = s.db.DB().ExecContext(ctx, `
				UPDATE crawl_jobs
				SET status = ?, failure = NULLIF(?, ''), prev_status = NULL,
					updated_at = strftime('%s','now'),
					completed_at = strftime('%s','now')
				WHERE id = ?`, string(status), failure, id)
		} else {
			_, err = s.db.DB().ExecContext(ctx, `
				UPDATE crawl_jobs
				SET status = ?, failure = NULLIF(?, ''),
					updated_at = strftime('%s','now')
				WHERE id = ?`, string(status), failure, id)
		}
		return err
	})
}

// MarkDownloaded records the fetched PDF's fingerprint and location
func (s *JobStorage) MarkDownloaded(ctx context.Context, id int64, pdfURL, hash string, size int64, localPath string) error {
	return s.retry.Execute(ctx, s.logger, "mark_downloaded", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE crawl_jobs
			SET status = 'downloaded', pdf_url = ?, pdf_hash = ?, pdf_size = ?,
				pdf_local_path = ?, pdf_downloaded_at = strftime('%s','now'),
				failure = NULL, updated_at = strftime('%s','now')
			WHERE id = ?`, pdfURL, hash, size, localPath, id)
		return err
	})
}

// UpdatePDFFingerprint adopts a new hash and size for a job's PDF,
// used when reprocessing finds the cached file has changed
func (s *JobStorage) UpdatePDFFingerprint(ctx context.Context, id int64, hash string, size int64) error {
	return s.retry.Execute(ctx, s.logger, "update_pdf_fingerprint", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE crawl_jobs
			SET pdf_hash = ?, pdf_size = ?, updated_at = strftime('%s','now')
			WHERE id = ?`, hash, size, id)
		return err
	})
}

// MarkLoaded finishes a job after its work, nodes and chunks are stored
func (s *JobStorage) MarkLoaded(ctx context.Context, id int64, workID string, extractionVersion int, storageURL string) error {
	return s.retry.Execute(ctx, s.logger, "mark_loaded", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE crawl_jobs
			SET status = 'loaded', work_id = ?, extraction_version = ?,
				pdf_storage_url = NULLIF(?, ''), failure = NULL, prev_status = NULL,
				updated_at = strftime('%s','now'),
				completed_at = strftime('%s','now')
			WHERE id = ?`, workID, extractionVersion, storageURL, id)
		return err
	})
}

// RetryFailed requeues failed jobs. Without a filter, junk-PDF failures
// are left alone since retrying cannot change the source material; an
// explicit errorLike match overrides that guard. limit caps the reset
// (0 means all), dryRun only counts the rows the reset would touch.
func (s *JobStorage) RetryFailed(ctx context.Context, errorLike string, limit int, dryRun bool) (int64, error) {
	where := `status = 'failed'`
	args := []interface{}{}
	if errorLike != "" {
		where += ` AND failure LIKE ?`
		args = append(args, "%"+errorLike+"%")
	} else {
		where += ` AND (failure IS NULL OR failure NOT LIKE ?)`
		args = append(args, FailureJunkPDF+"%")
	}
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	var count int64
	err := s.retry.Execute(ctx, s.logger, "retry_failed", func() error {
		if dryRun {
			return s.db.DB().QueryRowContext(ctx, `
				SELECT COUNT(*) FROM (
					SELECT id FROM crawl_jobs WHERE `+where+`
					ORDER BY updated_at LIMIT ?)`, args...).Scan(&count)
		}
		res, err := s.db.DB().ExecContext(ctx, `
			UPDATE crawl_jobs
			SET status = 'pending', failure = NULL, prev_status = NULL,
				completed_at = NULL, updated_at = strftime('%s','now')
			WHERE id IN (
				SELECT id FROM crawl_jobs WHERE `+where+`
				ORDER BY updated_at LIMIT ?)`, args...)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	return count, err
}

// GetJob fetches one job by id
func (s *JobStorage) GetJob(ctx context.Context, id int64) (*models.CrawlJob, error) {
	row := s.db.DB().QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM crawl_jobs WHERE id = ?`, jobColumns), id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %d not found", id)
	}
	return job, err
}

// JobStats summarizes the queue
type JobStats struct {
	ByStatus  map[string]int `json:"by_status"`
	ByRegType map[string]int `json:"by_reg_type"`
	Works     int            `json:"works"`
	Chunks    int            `json:"chunks"`
}

// Stats returns queue counts by status and regulation type plus loaded
// work and chunk totals
func (s *JobStorage) Stats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{
		ByStatus:  make(map[string]int),
		ByRegType: make(map[string]int),
	}

	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT status, COUNT(*) FROM crawl_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := s.db.DB().QueryContext(ctx,
		`SELECT reg_type, COUNT(*) FROM crawl_jobs GROUP BY reg_type`)
	if err != nil {
		return nil, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var regType string
		var count int
		if err := typeRows.Scan(&regType, &count); err != nil {
			return nil, err
		}
		stats.ByRegType[regType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM works`).Scan(&stats.Works); err != nil {
		return nil, err
	}
	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM legal_chunks`).Scan(&stats.Chunks); err != nil {
		return nil, err
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.CrawlJob, error) {
	var job models.CrawlJob
	var slug, title, number, pdfURL, pdfHash, pdfLocalPath, pdfStorageURL, workID, runID, failure sql.NullString
	var year, pdfSize, pdfDownloadedAt, lastClaimedAt, lastCrawledAt, completedAt sql.NullInt64
	var extractionVersion sql.NullInt64
	var createdAt, updatedAt int64
	var status string

	err := row.Scan(&job.ID, &job.SourceID, &job.URL, &job.RegType, &slug, &title,
		&number, &year, &status, &job.Priority, &pdfURL, &pdfHash, &pdfSize,
		&pdfLocalPath, &pdfStorageURL, &pdfDownloadedAt, &workID, &runID,
		&extractionVersion, &failure, &createdAt, &updatedAt, &lastClaimedAt,
		&lastCrawledAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Slug = slug.String
	job.Title = title.String
	job.Number = number.String
	job.Year = int(year.Int64)
	job.Status = models.JobStatus(status)
	job.PDFURL = pdfURL.String
	job.PDFHash = pdfHash.String
	job.PDFSize = pdfSize.Int64
	job.PDFLocalPath = pdfLocalPath.String
	job.PDFStorageURL = pdfStorageURL.String
	job.WorkID = workID.String
	job.RunID = runID.String
	job.ExtractionVersion = int(extractionVersion.Int64)
	job.Failure = failure.String
	job.CreatedAt = time.Unix(createdAt, 0)
	job.UpdatedAt = time.Unix(updatedAt, 0)

	if pdfDownloadedAt.Valid {
		t := time.Unix(pdfDownloadedAt.Int64, 0)
		job.PDFDownloadedAt = &t
	}
	if lastClaimedAt.Valid {
		t := time.Unix(lastClaimedAt.Int64, 0)
		job.LastClaimedAt = &t
	}
	if lastCrawledAt.Valid {
		t := time.Unix(lastCrawledAt.Int64, 0)
		job.LastCrawledAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		job.CompletedAt = &t
	}

	return &job, nil
}
