package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/httpclient"
	"github.com/ternarybob/pasal/internal/models"
)

// DetailPage is what the resolver extracts from a regulation's detail
// page: the document PDF link, the legal status when present, and the
// metadata table fields (pemrakarsa, tanggal_penetapan, ...). PDFURL is
// empty when the page carries no document link at all.
type DetailPage struct {
	PDFURL   string
	Status   models.WorkStatus
	Metadata map[string]string
}

// metadataFields maps lowercase detail-table label fragments to the
// metadata keys stored on the work. Date-valued fields are normalised
// to ISO form.
var metadataFields = []struct {
	label  string
	key    string
	isDate bool
}{
	{"pemrakarsa", "pemrakarsa", false},
	{"tempat penetapan", "tempat_penetapan", false},
	{"tanggal penetapan", "tanggal_penetapan", true},
	{"menetapkan", "pejabat_penetap", false},
	{"nomor pengundangan", "nomor_pengundangan", false},
	{"nomor tambahan", "nomor_tambahan", false},
	{"tanggal pengundangan", "tanggal_pengundangan", true},
	{"pejabat pengundangan", "pejabat_pengundangan", false},
	{"tentang", "tentang", false},
}

// DetailResolver fetches regulation detail pages and locates their PDFs
type DetailResolver struct {
	client *httpclient.Client
	cfg    *common.Config
	logger arbor.ILogger
}

// NewDetailResolver creates a new detail page resolver
func NewDetailResolver(client *httpclient.Client, cfg *common.Config, logger arbor.ILogger) *DetailResolver {
	return &DetailResolver{client: client, cfg: cfg, logger: logger}
}

// Resolve fetches a detail page and finds the regulation's PDF URL.
// The document table row labeled "dokumen" is preferred; failing that,
// any anchor ending in .pdf or pointing into /files/ is taken. A page
// without any document link returns with an empty PDFURL; errors carry
// the detail page URL for the job's failure message.
func (r *DetailResolver) Resolve(ctx context.Context, detailURL string) (*DetailPage, error) {
	resp, err := r.client.Get(ctx, detailURL, r.cfg.Source.DetailTimeout)
	if err != nil {
		return nil, fmt.Errorf("detail_page(%s): %w", detailURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("detail_page(%s): HTTP %d", detailURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("detail_page(%s): %w", detailURL, err)
	}

	page := &DetailPage{
		Status:   extractStatus(doc),
		Metadata: extractMetadata(doc),
	}

	pdfURL := findDocumentRowPDF(doc)
	if pdfURL == "" {
		pdfURL = findAnyPDFLink(doc)
	}
	if pdfURL == "" {
		return page, nil
	}

	base, err := url.Parse(detailURL)
	if err == nil {
		if ref, err := url.Parse(pdfURL); err == nil {
			pdfURL = base.ResolveReference(ref).String()
		}
	}
	page.PDFURL = pdfURL
	return page, nil
}

// findDocumentRowPDF looks for the table row labeled "dokumen" and
// returns the first PDF link inside it
func findDocumentRowPDF(doc *goquery.Document) string {
	found := ""
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(row.Find("th, td").First().Text())
		if !strings.Contains(label, "dokumen") {
			return true
		}
		row.Find(`a[href*=".pdf"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if href, ok := a.Attr("href"); ok {
				found = href
				return false
			}
			return true
		})
		return found == ""
	})
	return found
}

// findAnyPDFLink falls back to any anchor that looks like a document
// download
func findAnyPDFLink(doc *goquery.Document) string {
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/files/") {
			found = href
			return false
		}
		return true
	})
	return found
}

// extractMetadata collects the labeled rows of the detail table. The
// "menetapkan" check runs after "tempat/tanggal penetapan" so the more
// specific labels win.
func extractMetadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("th, td").First().Text()))
		if label == "" {
			return
		}
		value := strings.TrimSpace(row.Find("td").Last().Text())
		if value == "" || value == "-" {
			return
		}
		for _, f := range metadataFields {
			if !strings.Contains(label, f.label) {
				continue
			}
			if _, taken := meta[f.key]; taken {
				break
			}
			if f.isDate {
				if iso, ok := ParseIndonesianDate(value); ok {
					value = iso
				}
			}
			meta[f.key] = value
			break
		}
	})
	if len(meta) == 0 {
		return nil
	}
	return meta
}

var indonesianMonths = map[string]int{
	"januari": 1, "februari": 2, "maret": 3, "april": 4,
	"mei": 5, "juni": 6, "juli": 7, "agustus": 8,
	"september": 9, "oktober": 10, "november": 11, "desember": 12,
}

// ParseIndonesianDate converts "13 Januari 2026" to "2026-01-13".
// Anything that is not a day-month-year triple is rejected.
func ParseIndonesianDate(s string) (string, bool) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(parts) != 3 {
		return "", false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	month, ok := indonesianMonths[parts[1]]
	if !ok {
		return "", false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1000 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// extractStatus reads the legal-force row when the detail page has one
func extractStatus(doc *goquery.Document) models.WorkStatus {
	status := models.WorkStatusBerlaku
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(row.Find("th, td").First().Text())
		if !strings.Contains(label, "status") {
			return true
		}
		value := strings.ToLower(row.Find("td").Last().Text())
		switch {
		case strings.Contains(value, "dicabut"):
			status = models.WorkStatusDicabut
		case strings.Contains(value, "diubah"):
			status = models.WorkStatusDiubah
		case strings.Contains(value, "tidak berlaku"):
			status = models.WorkStatusTidakBerlaku
		}
		return false
	})
	return status
}
