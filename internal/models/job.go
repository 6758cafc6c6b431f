package models

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a crawl job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDownloaded JobStatus = "downloaded"
	JobStatusParsed     JobStatus = "parsed"
	JobStatusLoaded     JobStatus = "loaded"
	JobStatusFailed     JobStatus = "failed"
	// Terminal states for source material that cannot improve on retry:
	// detail pages without any PDF link, and image-only scans.
	JobStatusNoPDF    JobStatus = "no_pdf"
	JobStatusNeedsOCR JobStatus = "needs_ocr"
)

// IsTerminal returns true for states that end the pipeline for a job
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusLoaded || s == JobStatusFailed ||
		s == JobStatusNoPDF || s == JobStatusNeedsOCR
}

// CrawlJob represents one regulation queued for download and extraction.
// Jobs are keyed by (source_id, url); discovery upserts never regress the
// status of a row already in flight.
type CrawlJob struct {
	ID                int64      `json:"id"`
	SourceID          string     `json:"source_id"`
	URL               string     `json:"url"`
	RegType           string     `json:"reg_type"`
	Slug              string     `json:"slug"`
	Title             string     `json:"title"`
	Number            string     `json:"number"`
	Year              int        `json:"year"`
	Status            JobStatus  `json:"status"`
	Priority          int        `json:"priority"`
	PDFURL            string     `json:"pdf_url,omitempty"`
	PDFHash           string     `json:"pdf_hash,omitempty"`
	PDFSize           int64      `json:"pdf_size,omitempty"`
	PDFLocalPath      string     `json:"pdf_local_path,omitempty"`
	PDFStorageURL     string     `json:"pdf_storage_url,omitempty"`
	PDFDownloadedAt   *time.Time `json:"pdf_downloaded_at,omitempty"`
	WorkID            string     `json:"work_id,omitempty"`
	RunID             string     `json:"run_id,omitempty"`
	ExtractionVersion int        `json:"extraction_version"`
	Failure           string     `json:"failure,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastClaimedAt     *time.Time `json:"last_claimed_at,omitempty"`
	LastCrawledAt     *time.Time `json:"last_crawled_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// ToJSON serializes the job to JSON
func (j *CrawlJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// CrawlJobFromJSON deserializes a job from JSON
func CrawlJobFromJSON(data []byte) (*CrawlJob, error) {
	var job CrawlJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
