package models

import "encoding/json"

// ChunkMetadata describes where a searchable chunk came from
type ChunkMetadata struct {
	Type       string `json:"type"`
	Number     string `json:"number,omitempty"`
	Year       int    `json:"year,omitempty"`
	Pasal      string `json:"pasal,omitempty"`
	Section    string `json:"section,omitempty"`
	Penjelasan string `json:"penjelasan,omitempty"` // pasal number or "umum"
}

// LegalChunk is one unit of searchable text derived from a document node
// or, for unstructured documents, a fixed-size word window.
type LegalChunk struct {
	ID         int64         `json:"id"`
	WorkID     string        `json:"work_id"`
	NodeID     *int64        `json:"node_id,omitempty"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// MetadataJSON renders the metadata column value
func (c *LegalChunk) MetadataJSON() (string, error) {
	b, err := json.Marshal(c.Metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
