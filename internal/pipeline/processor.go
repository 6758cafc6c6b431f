package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/crawler"
	"github.com/ternarybob/pasal/internal/httpclient"
	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/parser"
	"github.com/ternarybob/pasal/internal/pdf"
	"github.com/ternarybob/pasal/internal/storage/objects"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

// ExtractionVersion marks the current extract+parse+chunk semantics.
// Bump it when those change; reprocess picks up works loaded under an
// older version.
const ExtractionVersion = 4

const (
	minPDFBytes      = 1000
	minExtractedLen  = 100
	maxReprocessFail = 400
)

// BatchResult summarizes one processing batch
type BatchResult struct {
	Claimed int
	Loaded  int
	Failed  int
}

// Processor runs claimed jobs through the full pipeline: resolve the
// PDF link, download, fingerprint, extract, classify, correct, parse
// and load.
type Processor struct {
	client    *httpclient.Client
	resolver  *crawler.DetailResolver
	extractor *pdf.Extractor
	store     *sqlite.Manager
	objects   *objects.SupabaseStore
	loader    *Loader
	cfg       *common.Config
	logger    arbor.ILogger
}

// NewProcessor wires the processing pipeline
func NewProcessor(client *httpclient.Client, resolver *crawler.DetailResolver, extractor *pdf.Extractor, store *sqlite.Manager, objectStore *objects.SupabaseStore, cfg *common.Config, logger arbor.ILogger) *Processor {
	return &Processor{
		client:    client,
		resolver:  resolver,
		extractor: extractor,
		store:     store,
		objects:   objectStore,
		loader:    NewLoader(store.Works, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessBatch claims up to limit pending jobs and processes them
// sequentially, pausing between jobs and stopping at the deadline.
// Claimed jobs are stamped with the run id; source narrows the claim
// to one source when set.
func (p *Processor) ProcessBatch(ctx context.Context, runID, source string, limit int, deadline time.Time) (*BatchResult, error) {
	jobs, err := p.store.Jobs.ClaimJobs(ctx, sqlite.ClaimFilter{
		Statuses: []models.JobStatus{models.JobStatusPending},
		Source:   source,
		RunID:    runID,
		Limit:    limit,
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
			p.logger.Info().Int("remaining", len(jobs)-i).Msg("Max runtime reached, stopping batch")
			break
		}

		if err := p.Process(ctx, job); err != nil {
			result.Failed++
			p.logger.Warn().Int64("job_id", job.ID).Str("slug", job.Slug).Err(err).Msg("Job failed")
		} else {
			result.Loaded++
		}

		time.Sleep(p.cfg.Source.RequestDelay)
	}
	return result, nil
}

// Process runs one claimed job end to end. A detail page with no PDF
// link and no previously stored URL parks the job as no_pdf; a resolver
// failure still falls back to the stored URL from an earlier run. The
// download is skipped entirely when the local copy's hash matches the
// job's fingerprint.
func (p *Processor) Process(ctx context.Context, job *models.CrawlJob) error {
	page, resolveErr := p.resolver.Resolve(ctx, job.URL)
	if resolveErr != nil && job.PDFURL == "" {
		return p.fail(ctx, job, "", resolveErr)
	}

	resolvedURL := ""
	status := models.WorkStatus("")
	var metadata map[string]string
	if page != nil {
		resolvedURL = page.PDFURL
		status = page.Status
		metadata = page.Metadata
	}

	if resolvedURL == "" && job.PDFURL == "" {
		return p.terminal(ctx, job, models.JobStatusNoPDF,
			fmt.Errorf("detail_page(%s): no pdf link found", job.URL))
	}

	time.Sleep(p.cfg.Source.RequestDelay)

	content, pdfURL := p.cachedPDF(job)
	if content == nil {
		var err error
		content, pdfURL, err = p.fetchPDF(ctx, pdfCandidates(resolvedURL, job.PDFURL))
		if err != nil {
			return p.fail(ctx, job, "", err)
		}
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	localPath, err := p.saveLocal(job.Slug, content)
	if err != nil {
		return p.fail(ctx, job, "", err)
	}

	if err := p.store.Jobs.MarkDownloaded(ctx, job.ID, pdfURL, hash, int64(len(content)), localPath); err != nil {
		return p.fail(ctx, job, "", err)
	}

	storageURL := job.PDFStorageURL
	if storageURL == "" {
		storageURL = p.uploadBestEffort(ctx, job.Slug, content)
	}

	return p.extractAndLoad(ctx, job, content, hash, storageURL, status, metadata, "")
}

// cachedPDF returns the job's local PDF copy when it still matches the
// recorded fingerprint, avoiding a re-download on reclaimed jobs.
func (p *Processor) cachedPDF(job *models.CrawlJob) ([]byte, string) {
	if job.PDFLocalPath == "" || job.PDFHash == "" {
		return nil, ""
	}
	content, err := os.ReadFile(job.PDFLocalPath)
	if err != nil {
		return nil, ""
	}
	sum := sha256.Sum256(content)
	if hex.EncodeToString(sum[:]) != job.PDFHash {
		return nil, ""
	}
	return content, job.PDFURL
}

// pdfCandidates orders the freshly resolved URL before the stored one,
// dropping blanks and duplicates
func pdfCandidates(resolved, stored string) []string {
	candidates := make([]string, 0, 2)
	for _, u := range []string{resolved, stored} {
		if u == "" || (len(candidates) > 0 && candidates[0] == u) {
			continue
		}
		candidates = append(candidates, u)
	}
	return candidates
}

// fetchPDF tries each candidate URL in order and reports every failure
// when all of them miss
func (p *Processor) fetchPDF(ctx context.Context, candidates []string) ([]byte, string, error) {
	var reasons []string
	for _, u := range candidates {
		content, err := p.download(ctx, u)
		if err == nil {
			return content, u, nil
		}
		reasons = append(reasons, err.Error())
	}
	return nil, "", fmt.Errorf("download failed: %s", strings.Join(reasons, "; "))
}

// extractAndLoad is shared between first-time processing and
// reprocessing. failPrefix tags failure messages (reprocess uses
// "reprocess: ").
func (p *Processor) extractAndLoad(ctx context.Context, job *models.CrawlJob, content []byte, hash, storageURL string, status models.WorkStatus, metadata map[string]string, failPrefix string) error {
	text, stats, err := p.extractor.ExtractText(ctx, content)
	if err != nil {
		return p.failPrefixed(ctx, job, "", fmt.Errorf("extraction failed: %w", err), failPrefix)
	}

	if pdf.IsJunk(text) {
		return p.failPrefixed(ctx, job, sqlite.FailureJunkPDF,
			fmt.Errorf("document is a portal error page, not a regulation"), failPrefix)
	}
	if len(strings.TrimSpace(text)) < minExtractedLen {
		return p.failPrefixed(ctx, job, "",
			fmt.Errorf("extracted text too short (%d chars)", len(strings.TrimSpace(text))), failPrefix)
	}

	verdict := pdf.Classify(stats)
	if verdict.NeedsOCR {
		return p.terminal(ctx, job, models.JobStatusNeedsOCR,
			fmt.Errorf("image-only scan (%d of %d pages without text)", stats.EmptyPages, stats.PageCount))
	}

	corrected := parser.CorrectOCR(text)
	nodes := parser.Parse(corrected)

	work, err := p.buildWork(job, status, metadata)
	if err != nil {
		return p.failPrefixed(ctx, job, "", err, failPrefix)
	}

	workID, _, err := p.loader.Load(ctx, work, nodes, ExtractionVersion, hash)
	if err != nil {
		return p.failPrefixed(ctx, job, "", err, failPrefix)
	}

	confidence, method := parseQuality(nodes)
	if err := p.store.Works.UpdateParseMeta(ctx, workID, verdict.Quality, method, confidence, ""); err != nil {
		p.logger.Warn().Str("work_id", workID).Err(err).Msg("Failed to update parse metadata")
	}
	if status != "" && status != models.WorkStatusBerlaku {
		if err := p.store.Works.SetWorkStatus(ctx, workID, status); err != nil {
			p.logger.Warn().Str("work_id", workID).Err(err).Msg("Failed to update work status")
		}
	}

	return p.store.Jobs.MarkLoaded(ctx, job.ID, workID, ExtractionVersion, storageURL)
}

// buildWork derives the work identity from the job's canonical slug
// and attaches the detail-page metadata
func (p *Processor) buildWork(job *models.CrawlJob, status models.WorkStatus, metadata map[string]string) (*models.Work, error) {
	info, ok := crawler.ParseSlug(job.Slug)
	if !ok {
		return nil, fmt.Errorf("cannot derive work identity from slug %q", job.Slug)
	}
	return &models.Work{
		FRBRUri:  crawler.FRBRUri(info.Prefix, info.Year, info.Number),
		RegType:  job.RegType,
		Number:   job.Number,
		Year:     job.Year,
		Title:    job.Title,
		Slug:     job.Slug,
		Status:   status,
		Metadata: metadata,
	}, nil
}

// parseQuality scores how much structure the parser recovered
func parseQuality(nodes []*parser.Node) (float64, string) {
	if parser.CountPasals(nodes) > 0 {
		return 0.9, "structure"
	}
	return 0.3, "fallback"
}

// download fetches the PDF, rejecting wrong content types and
// implausibly small bodies
func (p *Processor) download(ctx context.Context, pdfURL string) ([]byte, error) {
	resp, err := p.client.Get(ctx, pdfURL, p.cfg.Source.DownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%s: HTTP %d", pdfURL, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "pdf") && !strings.Contains(contentType, "octet-stream") {
		return nil, fmt.Errorf("%s: unexpected content type %s", pdfURL, contentType)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pdfURL, err)
	}
	if len(content) < minPDFBytes {
		return nil, fmt.Errorf("%s: too small (%d bytes)", pdfURL, len(content))
	}
	return content, nil
}

func (p *Processor) saveLocal(slug string, content []byte) (string, error) {
	if err := os.MkdirAll(p.cfg.Storage.PDFDir, 0755); err != nil {
		return "", err
	}
	localPath := filepath.Join(p.cfg.Storage.PDFDir, slug+".pdf")
	if err := os.WriteFile(localPath, content, 0644); err != nil {
		return "", err
	}
	return localPath, nil
}

// uploadBestEffort archives the PDF to object storage; failures only
// log
func (p *Processor) uploadBestEffort(ctx context.Context, slug string, content []byte) string {
	if p.objects == nil {
		return ""
	}
	storageURL, err := p.objects.Upload(ctx, slug+".pdf", "application/pdf", content)
	if err != nil {
		p.logger.Warn().Str("slug", slug).Err(err).Msg("Storage upload failed")
		return ""
	}
	return storageURL
}

func (p *Processor) fail(ctx context.Context, job *models.CrawlJob, category string, cause error) error {
	return p.failPrefixed(ctx, job, category, cause, "")
}

// terminal parks a job in a permanent status that no retry will touch
func (p *Processor) terminal(ctx context.Context, job *models.CrawlJob, status models.JobStatus, cause error) error {
	if err := p.store.Jobs.UpdateStatus(ctx, job.ID, status, cause.Error()); err != nil {
		p.logger.Error().Int64("job_id", job.ID).Err(err).Msg("Failed to park job")
	}
	return cause
}

func (p *Processor) failPrefixed(ctx context.Context, job *models.CrawlJob, category string, cause error, prefix string) error {
	msg := cause.Error()
	if prefix != "" {
		if len(msg) > maxReprocessFail {
			msg = msg[:maxReprocessFail]
		}
		msg = prefix + msg
	}
	if category != "" {
		msg = category + ": " + msg
	}
	if err := p.store.Jobs.UpdateStatus(ctx, job.ID, models.JobStatusFailed, msg); err != nil {
		p.logger.Error().Int64("job_id", job.ID).Err(err).Msg("Failed to record job failure")
	}
	return cause
}
