package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		CacheSizeKB:   2000,
		BusyTimeoutMS: 5000,
	}
	m, err := NewManager(common.GetLogger(), cfg, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func seedJob(t *testing.T, m *Manager, n int) *models.CrawlJob {
	t.Helper()
	ctx := context.Background()
	job := &models.CrawlJob{
		SourceID: "peraturan.go.id",
		URL:      fmt.Sprintf("https://peraturan.go.id/id/uu-no-%d-tahun-2020", n),
		RegType:  "UU",
		Slug:     fmt.Sprintf("uu-no-%d-tahun-2020", n),
		Title:    fmt.Sprintf("Undang-Undang Nomor %d Tahun 2020", n),
		Number:   fmt.Sprintf("%d", n),
		Year:     2020,
	}
	require.NoError(t, m.Jobs.UpsertJob(ctx, job))
	return job
}

func claimOne(t *testing.T, m *Manager, statuses ...models.JobStatus) *models.CrawlJob {
	t.Helper()
	if len(statuses) == 0 {
		statuses = []models.JobStatus{models.JobStatusPending}
	}
	jobs, err := m.Jobs.ClaimJobs(context.Background(), ClaimFilter{Statuses: statuses, Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func backdateClaim(t *testing.T, m *Manager, jobID int64, age time.Duration) {
	t.Helper()
	_, err := m.DB().DB().Exec(
		`UPDATE crawl_jobs SET last_claimed_at = strftime('%s','now') - ? WHERE id = ?`,
		int64(age.Seconds()), jobID)
	require.NoError(t, err)
}
