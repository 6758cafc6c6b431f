// -----------------------------------------------------------------------
// PDF Extractor Service - Extract text content from regulation PDFs
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
)

const minPageChars = 20

// Stats describes what extraction found in a PDF
type Stats struct {
	PageCount  int  `json:"page_count"`
	CharCount  int  `json:"char_count"`
	HasImages  bool `json:"has_images"`
	ImagePages int  `json:"image_pages"`
	EmptyPages int  `json:"empty_pages"`
}

// Extractor extracts text from PDF bytes using pdfcpu
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
}

// NewExtractor creates a new PDF extractor service
func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "pasal-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractText extracts the cleaned full text of a PDF. Pages with fewer
// than 20 meaningful characters count as empty; consecutive pages are
// joined with duplicated boundary text removed, then page headers and
// footers are stripped. On failure the text is empty and the error
// carries the cause; the stats collected so far are still returned.
func (e *Extractor) ExtractText(ctx context.Context, pdfContent []byte) (string, *Stats, error) {
	stats := &Stats{}

	workID := uuid.NewString()
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%s.pdf", workID))
	if err := os.WriteFile(tempFile, pdfContent, 0644); err != nil {
		return "", stats, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", stats, fmt.Errorf("failed to read PDF context: %w", err)
	}
	stats.PageCount = pdfCtx.PageCount

	// pdfcpu has no direct text API; extract page content to files
	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%s", workID))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", stats, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := readPageFiles(outDir)
	imagePagesWithImages := e.detectImagePages(tempFile, workID, conf)

	var pages []string
	for pageNum := 1; pageNum <= stats.PageCount; pageNum++ {
		text := pageTexts[pageNum]
		hasText := len(strings.TrimSpace(text)) > minPageChars
		if hasText {
			pages = append(pages, text)
		} else {
			stats.EmptyPages++
		}
		if imagePagesWithImages[pageNum] {
			stats.HasImages = true
			if !hasText {
				stats.ImagePages++
			}
		}
	}

	cleaned := cleanPageText(dedupPageBreaks(pages))
	stats.CharCount = len(cleaned)

	return cleaned, stats, nil
}

var pageFileRe = regexp.MustCompile(`(?:^|_)page_?(\d+)`)

// readPageFiles maps page number to extracted content text
func readPageFiles(outDir string) map[int]string {
	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		m := pageFileRe.FindStringSubmatch(file.Name())
		if m == nil {
			continue
		}
		var pageNum int
		fmt.Sscanf(m[1], "%d", &pageNum)
		if content, err := os.ReadFile(filepath.Join(outDir, file.Name())); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}
	return pageTexts
}

var imageFileRe = regexp.MustCompile(`_(\d+)_[^_]*\.\w+$`)

// detectImagePages extracts image assets and records which pages carry
// them. Extraction failures just mean no image info.
func (e *Extractor) detectImagePages(tempFile, workID string, conf *model.Configuration) map[int]bool {
	imgDir := filepath.Join(e.tempDir, fmt.Sprintf("images_%s", workID))
	os.MkdirAll(imgDir, 0755)
	defer os.RemoveAll(imgDir)

	pages := make(map[int]bool)
	if err := api.ExtractImagesFile(tempFile, imgDir, nil, conf); err != nil {
		e.logger.Debug().Err(err).Msg("Image extraction failed, assuming no images")
		return pages
	}

	files, _ := os.ReadDir(imgDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		m := imageFileRe.FindStringSubmatch(file.Name())
		if m == nil {
			continue
		}
		var pageNum int
		fmt.Sscanf(m[1], "%d", &pageNum)
		if pageNum > 0 {
			pages[pageNum] = true
		}
	}
	return pages
}

// dedupPageBreaks joins pages, dropping text repeated across the
// boundary. Overlaps up to 200 characters are considered, longest
// first, down to 11 characters.
func dedupPageBreaks(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	result := pages[0]

	for _, page := range pages[1:] {
		overlap := 0
		maxCheck := 200
		if len(result) < maxCheck {
			maxCheck = len(result)
		}
		if len(page) < maxCheck {
			maxCheck = len(page)
		}
		for length := maxCheck; length > 10; length-- {
			if strings.HasPrefix(page, result[len(result)-length:]) {
				overlap = length
				break
			}
		}
		if overlap > 0 {
			result += page[overlap:]
		} else {
			result += "\n" + page
		}
	}
	return result
}
