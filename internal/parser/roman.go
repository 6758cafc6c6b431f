package parser

import "regexp"

// Roman-numbered Pasals are usually an OCR artifact ("Pasal l" read as
// "Pasal I"), except in two places where they are the law's own
// numbering: amendment laws, and ATURAN PERALIHAN sections.

var (
	romanPasalRe = regexp.MustCompile(`(?m)^(Pasal)[ \t]+([IVXLCDM]+)\s*$`)
	amendmentRe  = regexp.MustCompile(`(?i)Perubahan\s+(?:Atas|Kedua|Ketiga|Keempat)`)
)

var romanMap = map[string]string{
	"I": "1", "II": "2", "III": "3", "IV": "4", "V": "5",
	"VI": "6", "VII": "7", "VIII": "8", "IX": "9", "X": "10",
	"XI": "11", "XII": "12", "XIII": "13", "XIV": "14", "XV": "15",
}

func isAmendmentLaw(text string) bool {
	head := text
	if len(head) > 2000 {
		head = head[:2000]
	}
	return amendmentRe.MatchString(head)
}

// fixRomanPasals converts OCR-artifact Roman Pasal numbers to Arabic
// digits, leaving legitimate Roman numbering untouched.
func fixRomanPasals(text string) string {
	if isAmendmentLaw(text) {
		return text
	}

	convert := func(segment string) string {
		return romanPasalRe.ReplaceAllStringFunc(segment, func(m string) string {
			groups := romanPasalRe.FindStringSubmatch(m)
			if arabic, ok := romanMap[groups[2]]; ok {
				return groups[1] + " " + arabic
			}
			return m // Unknown roman numeral, leave as-is
		})
	}

	if loc := aturanRe.FindStringIndex(text); loc != nil {
		// Pasals after the ATURAN PERALIHAN marker are legitimately
		// Roman-numbered; only convert before it.
		return convert(text[:loc[0]]) + text[loc[0]:]
	}

	return convert(text)
}
