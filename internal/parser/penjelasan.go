package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/pasal/internal/models"
)

// Penjelasan nodes sort after the whole body of the law: the preamble
// of the section at 89999, UMUM at 90000, the pasal-demi-pasal intro at
// 90001, and each per-pasal entry at 90002 plus its pasal number.
const penjelasanSortBase = 90000

var (
	umumRe        = regexp.MustCompile(`I\.\s*UMUM`)
	pasalDemiRe   = regexp.MustCompile(`II\.\s*PASAL\s+DEMI\s+PASAL`)
	pasalSplitRe  = regexp.MustCompile(`(Pasal\s+\d+[A-Z]?)\s*\n`)
	pasalNumberRe = regexp.MustCompile(`Pasal\s+(\d+[A-Z]?)`)
	headerRe      = regexp.MustCompile(`^PENJELASAN\s*`)
	trailingAZRe  = regexp.MustCompile(`[A-Z]+$`)
)

// parsePenjelasan parses a PENJELASAN section into nodes. All of the
// section's text is captured, structured or not.
func parsePenjelasan(text string) []*Node {
	var nodes []*Node

	umumLoc := umumRe.FindStringIndex(text)
	pasalDemiLoc := pasalDemiRe.FindStringIndex(text)

	// No structured sub-sections: capture the whole thing
	if umumLoc == nil && pasalDemiLoc == nil {
		content := strings.TrimSpace(text)
		if strings.HasPrefix(strings.ToUpper(content), "PENJELASAN") {
			content = strings.TrimSpace(content[len("PENJELASAN"):])
		}
		if content != "" {
			nodes = append(nodes, &Node{
				Type:      models.NodePenjelasanUmum,
				Heading:   "Penjelasan",
				Content:   content,
				SortOrder: penjelasanSortBase,
			})
		}
		return nodes
	}

	if umumLoc != nil {
		preUmum := strings.TrimSpace(text[:umumLoc[0]])
		preUmum = strings.TrimSpace(headerRe.ReplaceAllString(preUmum, ""))
		if len(preUmum) > 20 {
			nodes = append(nodes, &Node{
				Type:      models.NodePenjelasanUmum,
				Heading:   "Penjelasan — Pendahuluan",
				Content:   preUmum,
				SortOrder: penjelasanSortBase - 1,
			})
		}

		umumEnd := len(text)
		if pasalDemiLoc != nil {
			umumEnd = pasalDemiLoc[0]
		}
		umumText := strings.TrimSpace(text[umumLoc[1]:umumEnd])
		if umumText != "" {
			nodes = append(nodes, &Node{
				Type:      models.NodePenjelasanUmum,
				Heading:   "Penjelasan Umum",
				Content:   umumText,
				SortOrder: penjelasanSortBase,
			})
		}
	}

	if pasalDemiLoc != nil {
		pasalText := text[pasalDemiLoc[1]:]
		matches := pasalSplitRe.FindAllStringSubmatchIndex(pasalText, -1)

		prePasalEnd := len(pasalText)
		if len(matches) > 0 {
			prePasalEnd = matches[0][0]
		}
		prePasal := strings.TrimSpace(pasalText[:prePasalEnd])
		if len(prePasal) > 20 {
			nodes = append(nodes, &Node{
				Type:      models.NodePenjelasanUmum,
				Heading:   "Penjelasan Pasal Demi Pasal — Pendahuluan",
				Content:   prePasal,
				SortOrder: penjelasanSortBase + 1,
			})
		}

		for i, m := range matches {
			header := pasalText[m[2]:m[3]]
			contentEnd := len(pasalText)
			if i+1 < len(matches) {
				contentEnd = matches[i+1][0]
			}
			content := strings.TrimSpace(pasalText[m[1]:contentEnd])

			numMatch := pasalNumberRe.FindStringSubmatch(header)
			if numMatch == nil {
				continue
			}
			num := numMatch[1]
			numeric, _ := strconv.Atoi(trailingAZRe.ReplaceAllString(num, ""))
			nodes = append(nodes, &Node{
				Type:      models.NodePenjelasanPasal,
				Number:    num,
				Heading:   "Penjelasan Pasal " + num,
				Content:   content,
				SortOrder: penjelasanSortBase + 2 + numeric,
			})
		}
	}

	return nodes
}
