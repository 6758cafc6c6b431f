package pipeline

import (
	"fmt"
	"strings"

	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/parser"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

const (
	minChunkChars     = 10
	fallbackChunkSize = 300 // words per chunk when a document has no structure
)

// chunkNodeTypes are the node types that produce searchable chunks
var chunkNodeTypes = map[models.NodeType]bool{
	models.NodePasal:           true,
	models.NodePreamble:        true,
	models.NodeContent:         true,
	models.NodeAturan:          true,
	models.NodePenjelasanUmum:  true,
	models.NodePenjelasanPasal: true,
}

// FlattenTree turns a parsed tree into insertion order for storage.
// Body nodes get sequential depth-first sort positions; penjelasan
// nodes keep their assigned positions after the body. Each node gets a
// materialized path, the dot-joined chain of {type}_{number} labels
// from its root; colliding paths are disambiguated with a -N suffix so
// they stay unique within the work.
func FlattenTree(nodes []*parser.Node) []sqlite.NodeInsert {
	var flat []sqlite.NodeInsert
	counter := 0
	seen := make(map[string]int)

	var walk func(n *parser.Node, parentIdx int, parentPath string, depth int)
	walk = func(n *parser.Node, parentIdx int, parentPath string, depth int) {
		sortOrder := n.SortOrder
		if n.Type != models.NodePenjelasanUmum && n.Type != models.NodePenjelasanPasal {
			sortOrder = counter
		}
		counter++

		label := string(n.Type)
		if n.Number != "" {
			label += "_" + strings.ToLower(n.Number)
		}
		path := label
		if parentPath != "" {
			path = parentPath + "." + label
		}
		seen[path]++
		if c := seen[path]; c > 1 {
			path = fmt.Sprintf("%s-%d", path, c)
		}

		idx := len(flat)
		flat = append(flat, sqlite.NodeInsert{
			ParentIdx: parentIdx,
			Node: models.DocumentNode{
				NodeType:  n.Type,
				Number:    n.Number,
				Heading:   n.Heading,
				Content:   n.Content,
				Path:      path,
				Depth:     depth,
				SortOrder: sortOrder,
			},
		})
		for _, child := range n.Children {
			walk(child, idx, path, depth+1)
		}
	}

	for _, n := range nodes {
		walk(n, -1, "", 0)
	}
	return flat
}

// BuildChunks derives searchable chunks from flattened nodes. Each
// chunk text leads with the work title and the section label so a
// match stays attributable without a join. Trivial content and bare
// "Cukup jelas" entries are skipped. A document that yields nothing
// falls back to fixed-size word windows over its full text.
func BuildChunks(work *models.Work, flat []sqlite.NodeInsert) []sqlite.ChunkInsert {
	var chunks []sqlite.ChunkInsert

	for idx, entry := range flat {
		node := entry.Node
		if !chunkNodeTypes[node.NodeType] {
			continue
		}
		content := strings.TrimSpace(node.Content)
		if len(content) < minChunkChars {
			continue
		}
		if strings.HasPrefix(strings.ToLower(content), "cukup jelas") {
			continue
		}

		var text string
		meta := models.ChunkMetadata{
			Type:   work.RegType,
			Number: work.Number,
			Year:   work.Year,
		}

		switch node.NodeType {
		case models.NodePasal:
			text = work.Title + "\nPasal " + node.Number + "\n\n" + content
			meta.Pasal = node.Number
		case models.NodePenjelasanPasal:
			text = work.Title + "\nPenjelasan Pasal " + node.Number + "\n\n" + content
			meta.Penjelasan = node.Number
		case models.NodePenjelasanUmum:
			text = work.Title + "\nPenjelasan Umum\n\n" + content
			meta.Penjelasan = "umum"
		default:
			heading := node.Heading
			if heading == "" {
				heading = string(node.NodeType)
			}
			text = work.Title + "\n" + heading + "\n\n" + content
			meta.Section = heading
		}

		chunks = append(chunks, sqlite.ChunkInsert{
			NodeIdx: idx,
			Chunk: models.LegalChunk{
				ChunkIndex: len(chunks),
				Text:       text,
				Metadata:   meta,
			},
		})
	}

	if len(chunks) == 0 {
		chunks = fallbackChunks(work, flat)
	}
	return chunks
}

// fallbackChunks windows the full text into fixed-size word runs for
// documents whose structure produced no usable chunks
func fallbackChunks(work *models.Work, flat []sqlite.NodeInsert) []sqlite.ChunkInsert {
	var parts []string
	for _, entry := range flat {
		if c := strings.TrimSpace(entry.Node.Content); c != "" {
			parts = append(parts, c)
		}
	}
	words := strings.Fields(strings.Join(parts, "\n"))
	if len(words) == 0 {
		return nil
	}

	var chunks []sqlite.ChunkInsert
	for start := 0; start < len(words); start += fallbackChunkSize {
		end := start + fallbackChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, sqlite.ChunkInsert{
			NodeIdx: -1,
			Chunk: models.LegalChunk{
				ChunkIndex: len(chunks),
				Text:       work.Title + "\n\n" + strings.Join(words[start:end], " "),
				Metadata: models.ChunkMetadata{
					Type:    work.RegType,
					Number:  work.Number,
					Year:    work.Year,
					Section: "content",
				},
			},
		})
	}
	return chunks
}
