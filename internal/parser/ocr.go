package parser

import "regexp"

// Deterministic OCR repair for Indonesian legal text. The substitutions
// run in order; each fixes an artifact commonly produced by scanned
// regulation PDFs. Applying the correction twice yields the same output.

type ocrRule struct {
	re   *regexp.Regexp
	repl string
}

var ocrRules = []ocrRule{
	// Letter-digit confusion
	{regexp.MustCompile(`(?m)^(Pasal)[ \t]+l\s*$`), "$1 1"},          // Standalone Pasal l -> Pasal 1
	{regexp.MustCompile(`(Pasal\s)[lI](\d+)`), "${1}1${2}"},          // Pasal l3 -> Pasal 13
	{regexp.MustCompile(`(?m)(\d)O(\s|$)`), "${1}0${2}"},             // 1O -> 10, 9O -> 90
	{regexp.MustCompile(`(Pasal\s\d+)O\b`), "${1}0"},                 // Pasal 1O -> Pasal 10

	// Common word-level OCR errors
	{regexp.MustCompile(`(?i)\bFRESIDEN\b`), "PRESIDEN"}, // P->F OCR confusion
	{regexp.MustCompile(`(?i)\bPRES[!I1]DEN\b`), "PRESIDEN"},
	{regexp.MustCompile(`(?i)\bREPUB[!I1]IK\b`), "REPUBLIK"},
	{regexp.MustCompile(`(?i)\bINDONES[!I1]A\b`), "INDONESIA"},
	{regexp.MustCompile(`(?i)\bUNDANG[\s-]*UNDANG\b`), "UNDANG-UNDANG"},
	{regexp.MustCompile(`(?i)\bPERATURAN\s+PEMER[!I1]NTAH\b`), "PERATURAN PEMERINTAH"},
	{regexp.MustCompile(`(?i)\bMENIMBANG\b`), "Menimbang"},
	{regexp.MustCompile(`(?i)\bMENGINGAT\b`), "Mengingat"},
	{regexp.MustCompile(`(?i)\bMEMUTUSKAN\b`), "MEMUTUSKAN"},
	{regexp.MustCompile(`(?i)\bMENETAPKAN\b`), "MENETAPKAN"},

	// Ligature and encoding artifacts
	{regexp.MustCompile(`ﬁ`), "fi"},
	{regexp.MustCompile(`ﬂ`), "fl"},
	{regexp.MustCompile(`ﬀ`), "ff"},
	{regexp.MustCompile(`\x{00a0}`), " "}, // Non-breaking space -> regular space

	// Common scanner artifacts
	{regexp.MustCompile(`(?m)^[;,.]$`), ""},           // Lone punctuation on a line
	{regexp.MustCompile(`(?m)^\s*[-_]{3,}\s*$`), ""},  // Horizontal rules from scan lines
}

// Digit-adjacent l repairs. These need a fixpoint loop because a single
// left-to-right pass cannot see digits it just produced.
var (
	leadingLRe = regexp.MustCompile(`(\s)l(\d\d)`) // l23 -> 123
	innerLRe   = regexp.MustCompile(`(\d)l(\d)`)   // 2l3 -> 213
)

var blankRunsRe = regexp.MustCompile(`\n{3,}`)

// CorrectOCR applies the deterministic OCR corrections to text
func CorrectOCR(text string) string {
	for _, rule := range ocrRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}

	for {
		fixed := leadingLRe.ReplaceAllString(text, "${1}1${2}")
		fixed = innerLRe.ReplaceAllString(fixed, "${1}1${2}")
		if fixed == text {
			break
		}
		text = fixed
	}

	// Collapse runs of blank lines
	return blankRunsRe.ReplaceAllString(text, "\n\n")
}
