package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

const reprocessFailPrefix = "reprocess: "

// ReprocessBatch re-runs extraction and parsing over already-downloaded
// jobs whose extraction version is behind the current one. PDFs come
// from local disk, falling back to object storage. With force set, the
// version gate is dropped and everything downloaded or later is redone.
func (p *Processor) ReprocessBatch(ctx context.Context, runID string, limit int, force bool, deadline time.Time) (*BatchResult, error) {
	maxVersion := ExtractionVersion
	if force {
		maxVersion = 0
	}

	jobs, err := p.store.Jobs.ClaimJobs(ctx, sqlite.ClaimFilter{
		Statuses: []models.JobStatus{
			models.JobStatusLoaded,
			models.JobStatusParsed,
			models.JobStatusDownloaded,
		},
		MaxExtractionVersion: maxVersion,
		RunID:                runID,
		Limit:                limit,
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Claimed: len(jobs)}
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			p.logger.Info().Int("remaining", len(jobs)-i).Msg("Max runtime reached, stopping reprocess batch")
			break
		}

		if err := p.reprocess(ctx, job); err != nil {
			result.Failed++
			p.logger.Warn().Int64("job_id", job.ID).Str("slug", job.Slug).Err(err).Msg("Reprocess failed")
		} else {
			result.Loaded++
		}
	}
	return result, nil
}

func (p *Processor) reprocess(ctx context.Context, job *models.CrawlJob) error {
	content, err := p.loadPDF(ctx, job)
	if err != nil {
		return p.failPrefixed(ctx, job, "", err, reprocessFailPrefix)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	if job.PDFHash != "" && hash != job.PDFHash {
		p.logger.Warn().Int64("job_id", job.ID).Str("slug", job.Slug).
			Msg("Stored PDF hash does not match current content, refreshing fingerprint")
		if err := p.store.Jobs.UpdatePDFFingerprint(ctx, job.ID, hash, int64(len(content))); err != nil {
			p.logger.Warn().Int64("job_id", job.ID).Err(err).Msg("Failed to refresh PDF fingerprint")
		}
	}

	return p.extractAndLoad(ctx, job, content, hash, job.PDFStorageURL, "", nil, reprocessFailPrefix)
}

// loadPDF reads the job's PDF from its local path, falling back to the
// object store archive when the file is gone
func (p *Processor) loadPDF(ctx context.Context, job *models.CrawlJob) ([]byte, error) {
	if job.PDFLocalPath != "" {
		content, err := os.ReadFile(job.PDFLocalPath)
		if err == nil {
			return content, nil
		}
		p.logger.Debug().Int64("job_id", job.ID).Str("path", job.PDFLocalPath).Err(err).
			Msg("Local PDF unavailable, trying object storage")
	}
	if p.objects != nil {
		return p.objects.Download(ctx, job.Slug+".pdf")
	}
	return nil, fmt.Errorf("no pdf available for %s", job.Slug)
}
