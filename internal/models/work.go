package models

import "time"

// WorkStatus is the legal force of a regulation
type WorkStatus string

const (
	WorkStatusBerlaku      WorkStatus = "berlaku"
	WorkStatusDicabut      WorkStatus = "dicabut"
	WorkStatusDiubah       WorkStatus = "diubah"
	WorkStatusTidakBerlaku WorkStatus = "tidak_berlaku"
)

// PDFQuality classifies the scanned quality of a source document
type PDFQuality string

const (
	QualityBornDigital  PDFQuality = "born_digital"
	QualityScannedClean PDFQuality = "scanned_clean"
	QualityImageOnly    PDFQuality = "image_only"
)

// Work is one regulation as a legal work, keyed by its FRBR URI
// (/akn/id/act/<prefix>/<year>/<number>). Metadata carries the
// detail-page table fields (pemrakarsa, tanggal_penetapan, ...).
type Work struct {
	ID              string            `json:"id"`
	FRBRUri         string            `json:"frbr_uri"`
	RegType         string            `json:"reg_type"`
	Number          string            `json:"number"`
	Year            int               `json:"year"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	Status          WorkStatus        `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	PDFQuality      PDFQuality        `json:"pdf_quality,omitempty"`
	ParseMethod     string            `json:"parse_method,omitempty"`
	ParseConfidence float64           `json:"parse_confidence,omitempty"`
	ParseErrors     string            `json:"parse_errors,omitempty"`
	ParsedAt        *time.Time        `json:"parsed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RelationshipType links two works (amendment graph)
type RelationshipType string

const (
	RelMengubah   RelationshipType = "mengubah"
	RelDiubahOleh RelationshipType = "diubah_oleh"
	RelMencabut   RelationshipType = "mencabut"
	RelDicabutOleh RelationshipType = "dicabut_oleh"
)

// WorkRelationship is a directed edge between two works
type WorkRelationship struct {
	ID         int64            `json:"id"`
	SourceFRBR string           `json:"source_frbr"`
	Relation   RelationshipType `json:"relation"`
	TargetFRBR string           `json:"target_frbr"`
}

// RegulationType is one row of the seeded regulation_types table
type RegulationType struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`      // e.g. "UU"
	SitePath string `json:"site_path"` // listing path on the source site
	Name     string `json:"name"`      // formal Indonesian name
}
