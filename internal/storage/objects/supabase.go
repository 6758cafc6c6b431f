package objects

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
)

// SupabaseStore uploads and retrieves PDFs from a Supabase Storage
// bucket over its REST API. The relational data never goes here; the
// bucket is an archive of source documents.
type SupabaseStore struct {
	baseURL string
	key     string
	bucket  string
	http    *http.Client
	logger  arbor.ILogger
}

// NewSupabaseStore builds the object store client, or nil when no
// credentials are configured. Callers treat a nil store as disabled.
func NewSupabaseStore(cfg *common.SupabaseConfig, logger arbor.ILogger) *SupabaseStore {
	if cfg.URL == "" || cfg.Key == "" {
		return nil
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.Key,
		bucket:  cfg.Bucket,
		http:    &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

// Upload stores an object, overwriting any previous version, and
// returns its public URL
func (s *SupabaseStore) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage upload failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	return s.PublicURL(objectPath), nil
}

// Download retrieves an object's bytes
func (s *SupabaseStore) Download(ctx context.Context, objectPath string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("storage download failed: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PublicURL returns the unauthenticated URL for an object
func (s *SupabaseStore) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath)
}
