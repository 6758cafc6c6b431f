package pdf

import "github.com/ternarybob/pasal/internal/models"

// Classification is the quality verdict for a source PDF
type Classification struct {
	Quality    models.PDFQuality `json:"quality"`
	Confidence float64           `json:"confidence"`
	NeedsOCR   bool              `json:"needs_ocr"`
}

// Classify rates a PDF from its extraction stats. The ratio of
// text-bearing pages decides the verdict: nearly all pages with text
// means a born-digital file, a minority means page images with a text
// layer, almost none means a pure scan that would need OCR.
func Classify(stats *Stats) Classification {
	if stats == nil || stats.PageCount == 0 {
		return Classification{Quality: models.QualityImageOnly, Confidence: 1, NeedsOCR: true}
	}

	textPages := stats.PageCount - stats.EmptyPages
	ratio := float64(textPages) / float64(stats.PageCount)

	switch {
	case ratio >= 0.9:
		return Classification{Quality: models.QualityBornDigital, Confidence: ratio}
	case ratio >= 0.3:
		return Classification{Quality: models.QualityScannedClean, Confidence: 0.5 + ratio/2}
	default:
		return Classification{Quality: models.QualityImageOnly, Confidence: 1 - ratio, NeedsOCR: true}
	}
}
