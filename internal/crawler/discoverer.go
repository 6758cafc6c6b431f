package crawler

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/httpclient"
	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

// SourceName identifies the crawled site in stored rows
const SourceName = "peraturan.go.id"

const (
	listingPageSize  = 20
	defaultFreshness = 24 * time.Hour
	minAnchorTextLen = 3
)

var totalCountRe = regexp.MustCompile(`([\d.]+)\s+Peraturan`)

// Discoverer walks the source site's paginated listings and enqueues
// crawl jobs for every regulation it finds
type Discoverer struct {
	client   *httpclient.Client
	jobs     *sqlite.JobStorage
	progress *sqlite.ProgressStorage
	cfg      *common.Config
	logger   arbor.ILogger
}

// NewDiscoverer creates a new listing discoverer
func NewDiscoverer(client *httpclient.Client, jobs *sqlite.JobStorage, progress *sqlite.ProgressStorage, cfg *common.Config, logger arbor.ILogger) *Discoverer {
	return &Discoverer{
		client:   client,
		jobs:     jobs,
		progress: progress,
		cfg:      cfg,
		logger:   logger,
	}
}

// DiscoverOptions tunes a discovery pass. Zero values mean every type,
// no page cap and the default 24h freshness window.
type DiscoverOptions struct {
	Types     []string      // regulation type codes, empty for all
	Force     bool          // ignore the freshness window
	MaxJobs   int           // stop after this many enqueued jobs
	MaxPages  int           // per-type listing page cap, 0 for all
	Freshness time.Duration // re-discovery window, 0 for the default
	DryRun    bool          // count what would be enqueued, write nothing
}

// DiscoverAll runs discovery across the selected regulation types,
// stopping once opts.MaxJobs new or refreshed jobs have been enqueued
func (d *Discoverer) DiscoverAll(ctx context.Context, opts DiscoverOptions) (int, error) {
	total := 0
	for _, rt := range selectTypes(opts.Types) {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		remaining := opts.MaxJobs - total
		if remaining <= 0 {
			break
		}
		n, err := d.DiscoverType(ctx, rt, opts, remaining)
		if err != nil {
			d.logger.Warn().Str("reg_type", rt.Code).Err(err).Msg("Discovery failed for type")
			continue
		}
		total += n
	}
	return total, nil
}

// selectTypes filters the registry down to the requested codes,
// case-insensitively. Unknown codes are ignored.
func selectTypes(codes []string) []models.RegulationType {
	all := models.DefaultRegulationTypes()
	if len(codes) == 0 {
		return all
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	var out []models.RegulationType
	for _, rt := range all {
		if want[rt.Code] {
			out = append(out, rt)
		}
	}
	return out
}

// DiscoverType crawls one regulation type's listing. Discovery younger
// than the freshness window is skipped unless forced; a listing whose
// total count is unchanged with all pages already crawled is skipped
// after a single page fetch.
func (d *Discoverer) DiscoverType(ctx context.Context, rt models.RegulationType, opts DiscoverOptions, maxJobs int) (int, error) {
	force := opts.Force
	freshness := opts.Freshness
	if freshness <= 0 {
		freshness = defaultFreshness
	}

	prog, err := d.progress.Get(ctx, SourceName, rt.Code)
	if err != nil {
		return 0, err
	}
	if !force && prog.IsFresh(freshness) {
		d.logger.Debug().Str("reg_type", rt.Code).Msg("Discovery still fresh, skipping")
		return 0, nil
	}

	doc, err := d.fetchListing(ctx, rt.SitePath, 1)
	if err != nil {
		return 0, err
	}

	total := parseTotal(doc.Text())
	totalPages := (total + listingPageSize - 1) / listingPageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if !force && prog != nil && prog.TotalKnown == total && prog.Complete() {
		// Nothing new on the site; just refresh the timestamp
		prog.TotalKnown = total
		prog.TotalPages = totalPages
		return 0, d.progress.Upsert(ctx, prog)
	}

	startPage := 1
	if prog != nil && prog.TotalKnown == total && prog.PagesCrawled > 0 {
		startPage = prog.PagesCrawled + 1
	}

	lastPage := totalPages
	if opts.MaxPages > 0 && startPage+opts.MaxPages-1 < lastPage {
		lastPage = startPage + opts.MaxPages - 1
	}

	discovered := 0
	pagesCrawled := startPage - 1

	for page := startPage; page <= lastPage; page++ {
		if err := ctx.Err(); err != nil {
			break
		}

		pageDoc := doc
		if page != 1 {
			time.Sleep(d.cfg.Source.PageDelay)
			pageDoc, err = d.fetchListing(ctx, rt.SitePath, page)
			if err != nil {
				d.logger.Warn().Str("reg_type", rt.Code).Int("page", page).Err(err).Msg("Listing page fetch failed")
				break
			}
		}

		n, err := d.enqueuePage(ctx, pageDoc, opts.DryRun)
		if err != nil {
			return discovered, err
		}
		discovered += n
		pagesCrawled = page

		if discovered >= maxJobs {
			break
		}
	}

	if opts.DryRun {
		d.logger.Info().Str("reg_type", rt.Code).Int("would_enqueue", discovered).Msg("Discovery dry run complete")
		return discovered, nil
	}

	upErr := d.progress.Upsert(ctx, &models.DiscoveryProgress{
		Source:       SourceName,
		RegType:      rt.Code,
		TotalKnown:   total,
		TotalPages:   totalPages,
		PagesCrawled: pagesCrawled,
	})
	if upErr != nil {
		return discovered, upErr
	}

	d.logger.Info().
		Str("reg_type", rt.Code).
		Int("total_known", total).
		Int("pages_crawled", pagesCrawled).
		Int("discovered", discovered).
		Msg("Discovery pass complete")

	return discovered, nil
}

func (d *Discoverer) fetchListing(ctx context.Context, sitePath string, page int) (*goquery.Document, error) {
	listingURL := fmt.Sprintf("%s/%s?page=%d", strings.TrimRight(d.cfg.Source.BaseURL, "/"), sitePath, page)
	resp, err := d.client.Get(ctx, listingURL, d.cfg.Source.DetailTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%s: HTTP %d", listingURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// parseTotal reads the listing's regulation count, tolerating thousand
// separators ("12.345 Peraturan")
func parseTotal(text string) int {
	m := totalCountRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.ReplaceAll(m[1], ".", ""))
	return n
}

// enqueuePage extracts regulation links from one listing page and
// upserts a job for each. Only /id/ detail links with a meaningful
// anchor text qualify; duplicates within the page are collapsed. A dry
// run counts qualifying links without writing.
func (d *Discoverer) enqueuePage(ctx context.Context, doc *goquery.Document, dryRun bool) (int, error) {
	base, _ := url.Parse(d.cfg.Source.BaseURL)
	seen := make(map[string]bool)
	count := 0
	var firstErr error

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if len(text) < minAnchorTextLen {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if !strings.HasPrefix(abs.Path, "/id/") {
			return true
		}
		if seen[abs.String()] {
			return true
		}
		seen[abs.String()] = true

		slug := path.Base(abs.Path)
		info, ok := ParseSlug(slug)
		if !ok {
			return true
		}

		job := &models.CrawlJob{
			SourceID: SourceName,
			URL:      abs.String(),
			RegType:  info.RegType,
			Slug:     CanonicalSlug(info.Prefix, info.Number, info.Year),
			Title:    BuildTitle(info, text),
			Number:   info.Number,
			Year:     info.Year,
		}
		if !dryRun {
			if err := d.jobs.UpsertJob(ctx, job); err != nil {
				firstErr = err
				return false
			}
		}
		count++
		return true
	})

	return count, firstErr
}
