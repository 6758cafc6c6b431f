package pdf

import (
	"regexp"
	"strings"
)

// Page header/footer boilerplate printed on every page of regulation
// PDFs, including the OCR misreadings of the presidential letterhead.
var (
	pageHeaderRe = regexp.MustCompile(`(?mi)(?:SALINAN\s*\n)?` +
		`(?:[FP]RE\s*S\s*I\s*DEN|PRES\s+IDEN)\s*\n` + // PRESIDEN, FRESIDEN, PRES IDEN
		`\s*(?:RE|NE|RF)\w+\s+(?:IN|TN)\w+\s*\n` + // REPUBLIK INDONESIA + OCR variants
		`(?:\s*-\s*\d+\s*-?\s*\n)?`)

	pageFooterRe = regexp.MustCompile(`(?mi)(?:^Halaman\s+\d+\s+dari\s+\d+\s*$` +
		`|^SK\s+No\s*[\d'\s]+[A-Z]?\s*$` +
		`|^;?\*?[a-zA-Z]*(?:trE|EtrN)\s*$` +
		`|^(?:iIi|REFUBLIK|REPUEUK)\s+INDONESIA\s*$` +
		`|^(?:[FP]RE\s*S\s*I\s*DEN|PRES\s+IDEN)\s*$` + // standalone letterhead line
		`|^\s*(?:RE|NE|RF)\w+\s+(?:IN|TN)\w+\s*$` + // standalone REPUBLIK INDONESIA variants
		`|^\s*-\s*\d+\s*-\s*$)`) // standalone page numbers like - 3 -

	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// cleanPageText removes page headers and footers and collapses the
// blank lines they leave behind
func cleanPageText(text string) string {
	text = pageHeaderRe.ReplaceAllString(text, "")
	text = pageFooterRe.ReplaceAllString(text, "")
	return blankRunsRe.ReplaceAllString(text, "\n\n")
}

const junkHeadLen = 300

// IsJunk detects PDFs that are actually error pages served by the
// source site: portal navigation dumps and access denial notices. Only
// the leading text matters; real regulations open with the letterhead.
func IsJunk(text string) bool {
	head := text
	if len(head) > junkHeadLen {
		head = head[:junkHeadLen]
	}
	if strings.Contains(head, "Beranda") && strings.Contains(head, "Progsun") {
		return true
	}
	return strings.Contains(head, "Access Denied")
}
