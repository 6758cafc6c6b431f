package models

// NodeType identifies a structural element of a regulation
type NodeType string

const (
	NodeBab             NodeType = "bab"
	NodeBagian          NodeType = "bagian"
	NodeParagraf        NodeType = "paragraf"
	NodePasal           NodeType = "pasal"
	NodeAyat            NodeType = "ayat"
	NodePreamble        NodeType = "preamble"
	NodeContent         NodeType = "content"
	NodeAturan          NodeType = "aturan"
	NodePenjelasanUmum  NodeType = "penjelasan_umum"
	NodePenjelasanPasal NodeType = "penjelasan_pasal"
)

// DocumentNode is one element of a work's structure tree. SortOrder is
// the depth-first position in the document; penjelasan sections sort
// after the body starting at 89999. Path is the dot-joined chain of
// {type}_{number} labels from the root, unique within a work.
type DocumentNode struct {
	ID        int64    `json:"id"`
	WorkID    string   `json:"work_id"`
	ParentID  *int64   `json:"parent_id,omitempty"`
	NodeType  NodeType `json:"node_type"`
	Number    string   `json:"number,omitempty"`
	Heading   string   `json:"heading,omitempty"`
	Content   string   `json:"content,omitempty"`
	Path      string   `json:"path,omitempty"`
	Depth     int      `json:"depth"`
	SortOrder int      `json:"sort_order"`
}
