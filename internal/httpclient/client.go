package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/pasal/internal/common"
)

// Client wraps http.Client with the source site's required headers and
// a per-process rate limit on top of the fixed inter-request delays.
type Client struct {
	http           *http.Client
	limiter        *rate.Limiter
	logger         arbor.ILogger
	userAgent      string
	acceptLanguage string
}

// New builds the rate-limited client for the source site
func New(cfg *common.SourceConfig, logger arbor.ILogger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AllowInsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 2
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
		},
		limiter:        rate.NewLimiter(rate.Limit(limit), 1),
		logger:         logger,
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
	}
}

// Get fetches a URL with the configured headers, honoring the rate
// limit and the given timeout. The caller owns the response body.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	if cancel != nil {
		// Tie the timeout to body consumption
		resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
