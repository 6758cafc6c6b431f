package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/pasal/internal/models"
)

// Slug handling for source URLs like /id/uu-no-13-tahun-2003. The long
// form (<prefix>-no-<number>-tahun-<year>) is canonical and is the only
// form this pipeline ever writes; the short form (<prefix>-<number>-
// <year>) still appears in older source URLs and is accepted on read.
var (
	slugLongRe  = regexp.MustCompile(`^(.+?)-no-(.+)-tahun-(\d{4})$`)
	slugShortRe = regexp.MustCompile(`^([a-z][a-z-]*?)-(\d+[a-z]?)-(\d{4})$`)
)

// exact slug prefixes for the primary regulation types
var prefixExact = map[string]string{
	"uu":      "UU",
	"pp":      "PP",
	"perpres": "PERPRES",
	"perppu":  "PERPPU",
	"keppres": "KEPPRES",
	"inpres":  "INPRES",
	"penpres": "PENPRES",
	"uudrt":   "UUDRT",
	"tapmpr":  "TAP_MPR",
	"permen":  "PERMEN",
	"perban":  "PERBAN",
	"perda":   "PERDA",
}

var perdaPrefixes = []string{"perda", "perwako", "perwalkot", "perbup", "pergub", "perwal", "qanun"}
var perbanPrefixes = []string{"perpusnas", "perka", "perdirjen", "perbpk", "perbi", "pojk"}

// SlugInfo is the identity parsed out of a regulation slug
type SlugInfo struct {
	Prefix  string
	Number  string
	Year    int
	RegType string
}

// ParseSlug parses the long or short slug form. The long form is
// preferred when both could match.
func ParseSlug(slug string) (*SlugInfo, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	var m []string
	if m = slugLongRe.FindStringSubmatch(slug); m == nil {
		if m = slugShortRe.FindStringSubmatch(slug); m == nil {
			return nil, false
		}
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, false
	}

	// Numbers like "iv-mpr-1999" keep their inner dashes; stray edge
	// dashes from sloppy source URLs are dropped.
	number := strings.Trim(m[2], "-")
	if number == "" {
		return nil, false
	}

	return &SlugInfo{
		Prefix:  m[1],
		Number:  number,
		Year:    year,
		RegType: InferRegType(m[1]),
	}, true
}

// InferRegType maps a slug prefix to a regulation type code. Rules are
// checked in order; the first match wins.
func InferRegType(prefix string) string {
	prefix = strings.ToLower(prefix)

	if code, ok := prefixExact[prefix]; ok {
		return code
	}
	if strings.HasPrefix(prefix, "tap") && strings.Contains(prefix, "mpr") {
		return "TAP_MPR"
	}
	if strings.HasPrefix(prefix, "permen") || strings.HasPrefix(prefix, "kepmen") {
		return "PERMEN"
	}
	for _, p := range perdaPrefixes {
		if strings.HasPrefix(prefix, p) {
			return "PERDA"
		}
	}
	if strings.HasPrefix(prefix, "peraturan-") {
		return "PERBAN"
	}
	for _, p := range perbanPrefixes {
		if strings.HasPrefix(prefix, p) {
			return "PERBAN"
		}
	}
	return "PERMEN"
}

// CanonicalSlug renders the long slug form
func CanonicalSlug(prefix, number string, year int) string {
	return fmt.Sprintf("%s-no-%s-tahun-%d", strings.ToLower(prefix), strings.ToLower(number), year)
}

// FRBRUri builds the work identifier for a regulation
func FRBRUri(prefix string, year int, number string) string {
	return fmt.Sprintf("/akn/id/act/%s/%d/%s", strings.ToLower(prefix), year, strings.ToLower(number))
}

// BuildTitle synthesizes a display title from slug identity and the
// listing anchor text
func BuildTitle(info *SlugInfo, anchorText string) string {
	title := fmt.Sprintf("%s Nomor %s Tahun %d",
		models.RegulationTypeName(info.RegType), strings.ToUpper(info.Number), info.Year)
	anchorText = strings.TrimSpace(anchorText)
	if anchorText != "" {
		title += " tentang " + anchorText
	}
	return title
}
