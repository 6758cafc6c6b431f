package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/pasal/internal/models"
)

// Text-first parser for Indonesian legal document structure. Every
// character of the input ends up in exactly one node: recognized
// markers (BAB, Bagian, Paragraf, Pasal, ATURAN PERALIHAN) add
// structure, everything else survives as preamble or content nodes.

var (
	babRe    = regexp.MustCompile(`(?m)^BAB\s+([IVXLCDM]+)\s*$`)
	bagianRe = regexp.MustCompile(`(?mi)^Bagian\s+(Kesatu|Kedua|Ketiga|Keempat|Kelima|Keenam|Ketujuh|Kedelapan|Kesembilan|Kesepuluh` +
		`|Kesebelas|Kedua\s*Belas|Ketiga\s*Belas|Keempat\s*Belas|Kelima\s*Belas|Keenam\s*Belas` +
		`|Ketujuh\s*Belas|Kedelapan\s*Belas|Kesembilan\s*Belas|Kedua\s*Puluh` +
		`|Ke-\d+)`)
	paragrafRe   = regexp.MustCompile(`(?m)^Paragraf\s+(\d+)\s*$`)
	pasalRe      = regexp.MustCompile(`(?m)^Pasal[ \t]+(\d+[A-Z]?)\s*$`)
	pasalRomanRe = regexp.MustCompile(`(?m)^Pasal[ \t]+([IVXLCDM]+)\s*$`)
	penjelasanRe = regexp.MustCompile(`(?m)^\s*PENJELASAN\s*$`)
	aturanRe     = regexp.MustCompile(`(?m)^(ATURAN\s+PERALIHAN|ATURAN\s+TAMBAHAN)\s*$`)

	// Boundary pattern for detecting section breaks inside headings
	boundaryRe = regexp.MustCompile(`(?i)^(BAB\s+[IVXLCDM]+|Pasal[ \t]+\d+[A-Z]?|Pasal[ \t]+[IVXLCDM]+` +
		`|Bagian\s+\w+|Paragraf\s+\d+|PENJELASAN|ATURAN\s+PERALIHAN|ATURAN\s+TAMBAHAN)\s*$`)

	ayatRe = regexp.MustCompile(`(?m)^\((\d+)\)[ \t]*`)

	penjelasanFallbackRe = regexp.MustCompile(`(?m)^(?:I\.\s*UMUM|II?\.\s*PASAL\s+DEMI\s+PASAL)`)
)

// Node is one element of the parsed structure tree
type Node struct {
	Type      models.NodeType `json:"type"`
	Number    string          `json:"number"`
	Heading   string          `json:"heading"`
	Content   string          `json:"content"`
	Children  []*Node         `json:"children"`
	SortOrder int             `json:"sort_order"`
}

type marker struct {
	mtype string
	num   string
	start int
	end   int
}

// Parse parses law text into a hierarchical node structure:
// preamble -> BAB -> Bagian -> Paragraf -> Pasal -> Ayat, with
// PENJELASAN nodes sorted after the body.
func Parse(text string) []*Node {
	// Roman Pasal numbers are usually OCR artifacts; repair first
	text = fixRomanPasals(text)

	splitPos := findPenjelasanStart(text)
	bodyText := text
	if splitPos >= 0 {
		bodyText = text[:splitPos]
	}

	markers := findMarkers(bodyText)

	var nodes []*Node
	sortOrder := 0

	firstMarkerPos := len(bodyText)
	if len(markers) > 0 {
		firstMarkerPos = markers[0].start
	}
	preamble := strings.TrimSpace(bodyText[:firstMarkerPos])
	if preamble != "" {
		nodes = append(nodes, &Node{
			Type:      models.NodePreamble,
			Content:   preamble,
			SortOrder: sortOrder,
		})
		sortOrder++
	}

	var currentBab *Node
	var currentBagian *Node

	for i, m := range markers {
		nextStart := len(bodyText)
		if i+1 < len(markers) {
			nextStart = markers[i+1].start
		}
		rawContent := strings.TrimSpace(bodyText[m.end:nextStart])

		switch m.mtype {
		case "bab":
			heading, leftover := extractHeading(rawContent)
			currentBab = &Node{
				Type:      models.NodeBab,
				Number:    m.num,
				Heading:   heading,
				Content:   leftover,
				SortOrder: sortOrder,
			}
			nodes = append(nodes, currentBab)
			currentBagian = nil
			sortOrder++

		case "aturan":
			// ATURAN PERALIHAN / ATURAN TAMBAHAN act as top-level
			// sections like BAB, without BAB numbering
			currentBab = &Node{
				Type:      models.NodeAturan,
				Number:    m.num,
				Heading:   m.num,
				Content:   rawContent,
				SortOrder: sortOrder,
			}
			nodes = append(nodes, currentBab)
			currentBagian = nil
			sortOrder++

		case "bagian":
			heading, leftover := extractHeading(rawContent)
			currentBagian = &Node{
				Type:      models.NodeBagian,
				Number:    m.num,
				Heading:   heading,
				Content:   leftover,
				SortOrder: sortOrder,
			}
			if currentBab != nil {
				currentBab.Children = append(currentBab.Children, currentBagian)
			} else {
				nodes = append(nodes, currentBagian)
			}
			sortOrder++

		case "paragraf":
			heading, leftover := extractHeading(rawContent)
			paragraf := &Node{
				Type:      models.NodeParagraf,
				Number:    m.num,
				Heading:   heading,
				Content:   leftover,
				SortOrder: sortOrder,
			}
			switch {
			case currentBagian != nil:
				currentBagian.Children = append(currentBagian.Children, paragraf)
			case currentBab != nil:
				currentBab.Children = append(currentBab.Children, paragraf)
			default:
				nodes = append(nodes, paragraf)
			}
			// Paragraf becomes the nesting target for subsequent pasals
			currentBagian = paragraf
			sortOrder++

		case "pasal":
			pasal := &Node{
				Type:      models.NodePasal,
				Number:    m.num,
				Content:   rawContent,
				Children:  parseAyat(rawContent),
				SortOrder: sortOrder,
			}
			switch {
			case currentBagian != nil:
				currentBagian.Children = append(currentBagian.Children, pasal)
			case currentBab != nil:
				currentBab.Children = append(currentBab.Children, pasal)
			default:
				nodes = append(nodes, pasal)
			}
			sortOrder++
		}
	}

	// No markers found: capture the entire body as a content node
	if len(markers) == 0 && preamble == "" {
		body := strings.TrimSpace(bodyText)
		if body != "" {
			nodes = append(nodes, &Node{
				Type:      models.NodeContent,
				Content:   body,
				SortOrder: sortOrder,
			})
		}
	}

	if splitPos >= 0 {
		nodes = append(nodes, parsePenjelasan(text[splitPos:])...)
	}

	return nodes
}

// findPenjelasanStart locates the PENJELASAN section. Returns -1 when
// the document has none. Without an explicit marker, section headers in
// the latter half of the text are used, backing up to the preceding
// blank line.
func findPenjelasanStart(text string) int {
	if loc := penjelasanRe.FindStringIndex(text); loc != nil {
		return loc[0]
	}

	half := len(text) / 2
	fb := penjelasanFallbackRe.FindStringIndex(text[half:])
	if fb == nil {
		return -1
	}
	absPos := half + fb[0]
	lastBlank := strings.LastIndex(text[:absPos], "\n\n")
	if lastBlank > half-200 {
		return lastBlank
	}
	return absPos
}

// findMarkers returns all structural markers sorted by position
func findMarkers(text string) []marker {
	var markers []marker

	for _, m := range babRe.FindAllStringSubmatchIndex(text, -1) {
		markers = append(markers, marker{"bab", text[m[2]:m[3]], m[0], m[1]})
	}
	for _, m := range aturanRe.FindAllStringSubmatchIndex(text, -1) {
		markers = append(markers, marker{"aturan", strings.TrimSpace(text[m[2]:m[3]]), m[0], m[1]})
	}
	for _, m := range bagianRe.FindAllStringSubmatchIndex(text, -1) {
		markers = append(markers, marker{"bagian", text[m[2]:m[3]], m[0], m[1]})
	}
	for _, m := range paragrafRe.FindAllStringSubmatchIndex(text, -1) {
		markers = append(markers, marker{"paragraf", text[m[2]:m[3]], m[0], m[1]})
	}
	for _, m := range pasalRe.FindAllStringSubmatchIndex(text, -1) {
		markers = append(markers, marker{"pasal", text[m[2]:m[3]], m[0], m[1]})
	}
	// Roman Pasals remain only where legitimate (ATURAN PERALIHAN,
	// amendment laws); skip positions already captured as Arabic
	for _, m := range pasalRomanRe.FindAllStringSubmatchIndex(text, -1) {
		duplicate := false
		for _, existing := range markers {
			if existing.start == m[0] {
				duplicate = true
				break
			}
		}
		if !duplicate {
			markers = append(markers, marker{"pasal", text[m[2]:m[3]], m[0], m[1]})
		}
	}

	sort.Slice(markers, func(i, j int) bool { return markers[i].start < markers[j].start })
	return markers
}

// extractHeading pulls the heading lines (up to three) off the front of
// a section's content, stopping at a blank line or the next marker
func extractHeading(text string) (string, string) {
	lines := strings.Split(text, "\n")
	var headingLines []string
	contentStart := 0

	for j, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			if len(headingLines) > 0 {
				contentStart = j + 1
				break
			}
			continue
		}
		if boundaryRe.MatchString(stripped) {
			contentStart = j
			break
		}
		headingLines = append(headingLines, stripped)
		contentStart = j + 1
		if len(headingLines) >= 3 {
			break
		}
	}

	heading := strings.Join(headingLines, " ")
	remaining := strings.TrimSpace(strings.Join(lines[contentStart:], "\n"))
	return heading, remaining
}

// parseAyat parses numbered ayat out of pasal content. A duplicated
// ayat number keeps its first occurrence.
func parseAyat(content string) []*Node {
	matches := ayatRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var children []*Node
	seen := make(map[string]bool)
	for idx, am := range matches {
		num := content[am[2]:am[3]]
		if seen[num] {
			continue
		}
		seen[num] = true
		end := len(content)
		if idx+1 < len(matches) {
			end = matches[idx+1][0]
		}
		children = append(children, &Node{
			Type:    models.NodeAyat,
			Number:  num,
			Content: strings.TrimSpace(content[am[1]:end]),
		})
	}
	return children
}

// CountPasals counts pasal nodes in a tree
func CountPasals(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		if n.Type == models.NodePasal {
			count++
		}
		count += CountPasals(n.Children)
	}
	return count
}
