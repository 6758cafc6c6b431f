package query

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

// Disclaimer accompanies every response envelope. The database is an
// extraction from published PDFs, not an official source of law.
const Disclaimer = "Informasi ini bukan nasihat hukum. Rujuk teks resmi yang dimuat dalam Lembaran Negara Republik Indonesia."

// NoResultsMessage distinguishes an empty match from missing coverage
const NoResultsMessage = "Tidak ada hasil yang cocok. Cakupan basis data belum lengkap; peraturan yang dicari mungkin belum dimuat."

// statusExplanations renders a work's legal force for humans
var statusExplanations = map[models.WorkStatus]string{
	models.WorkStatusBerlaku:      "Masih berlaku (in force).",
	models.WorkStatusDicabut:      "Telah dicabut dan tidak berlaku lagi (revoked).",
	models.WorkStatusDiubah:       "Masih berlaku dengan perubahan (amended, in force as amended).",
	models.WorkStatusTidakBerlaku: "Tidak berlaku (not in force).",
}

// StatusExplanation returns the human-readable reading of a work status
func StatusExplanation(status models.WorkStatus) string {
	if s, ok := statusExplanations[status]; ok {
		return s
	}
	return string(status)
}

// Service is the read side over loaded works. Every response carries
// the standing disclaimer; empty result sets carry an explicit message
// instead of a bare empty list.
type Service struct {
	search *sqlite.SearchStorage
	logger arbor.ILogger
}

// NewService creates the read-side query service
func NewService(search *sqlite.SearchStorage, logger arbor.ILogger) *Service {
	return &Service{search: search, logger: logger}
}

// SearchResponse is the search_chunks envelope
type SearchResponse struct {
	Results    []sqlite.SearchResult `json:"results"`
	Message    string                `json:"message,omitempty"`
	Disclaimer string                `json:"disclaimer"`
}

// SearchChunks runs a ranked full-text search over legal chunks
func (s *Service) SearchChunks(ctx context.Context, query string, filters sqlite.SearchFilters, limit int) (*SearchResponse, error) {
	results, err := s.search.SearchChunks(ctx, query, filters, limit)
	if err != nil {
		return nil, err
	}
	resp := &SearchResponse{Results: results, Disclaimer: Disclaimer}
	if len(results) == 0 {
		resp.Message = NoResultsMessage
	}
	return resp, nil
}

// ArticleResponse is the get_article envelope
type ArticleResponse struct {
	Article    *sqlite.Article `json:"article"`
	Disclaimer string          `json:"disclaimer"`
}

// GetArticle returns one pasal of a work, addressed by FRBR URI or slug
func (s *Service) GetArticle(ctx context.Context, workRef, pasalNumber string) (*ArticleResponse, error) {
	article, err := s.search.GetArticle(ctx, workRef, pasalNumber)
	if err != nil {
		return nil, err
	}
	return &ArticleResponse{Article: article, Disclaimer: Disclaimer}, nil
}

// StatusResponse is the get_status envelope
type StatusResponse struct {
	Work        *models.Work              `json:"work"`
	Explanation string                    `json:"explanation"`
	Relations   []models.WorkRelationship `json:"relations,omitempty"`
	Disclaimer  string                    `json:"disclaimer"`
}

// GetStatus returns a work's legal force, explained, with its
// amendment and revocation edges
func (s *Service) GetStatus(ctx context.Context, workRef string) (*StatusResponse, error) {
	info, err := s.search.GetStatus(ctx, workRef)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		Work:        info.Work,
		Explanation: StatusExplanation(info.Work.Status),
		Relations:   info.Relations,
		Disclaimer:  Disclaimer,
	}, nil
}

// ListResponse is the list_works envelope
type ListResponse struct {
	Works      []models.Work `json:"works"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Message    string        `json:"message,omitempty"`
	Disclaimer string        `json:"disclaimer"`
}

// ListWorks pages through loaded works filtered by type, year, status
// and title substring
func (s *Service) ListWorks(ctx context.Context, filter sqlite.ListFilter, page, perPage int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	works, total, err := s.search.ListWorks(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	resp := &ListResponse{Works: works, Total: total, Page: page, PerPage: perPage, Disclaimer: Disclaimer}
	if len(works) == 0 {
		resp.Message = NoResultsMessage
	}
	return resp, nil
}

// PingResponse reports store health with the loaded works count
type PingResponse struct {
	Works      int    `json:"works"`
	Disclaimer string `json:"disclaimer"`
}

// Ping verifies the store answers queries
func (s *Service) Ping(ctx context.Context) (*PingResponse, error) {
	works, err := s.search.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("store unreachable: %w", err)
	}
	return &PingResponse{Works: works, Disclaimer: Disclaimer}, nil
}
