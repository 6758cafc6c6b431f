package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/models"
)

// SearchStorage answers the read-side queries over loaded works
type SearchStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSearchStorage creates a new search storage service
func NewSearchStorage(db *SQLiteDB, logger arbor.ILogger) *SearchStorage {
	return &SearchStorage{db: db, logger: logger}
}

// SearchFilters narrows a chunk search
type SearchFilters struct {
	RegType string
	Year    int
}

// SearchResult is one matched chunk with its work context
type SearchResult struct {
	ChunkID    int64  `json:"chunk_id"`
	WorkID     string `json:"work_id"`
	FRBRUri    string `json:"frbr_uri"`
	WorkTitle  string `json:"work_title"`
	RegType    string `json:"reg_type"`
	Year       int    `json:"year"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	Metadata   string `json:"metadata"`
	Snippet    string `json:"snippet"`
}

// SearchChunks runs a full-text query over legal chunks, best matches
// first. Filters are optional.
func (s *SearchStorage) SearchChunks(ctx context.Context, query string, filters SearchFilters, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	match := quoteFTSQuery(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, c.work_id, w.frbr_uri, w.title, w.reg_type, w.year,
			c.chunk_index, c.text, COALESCE(c.metadata, ''),
			snippet(legal_chunks_fts, 0, '[', ']', '…', 24)
		FROM legal_chunks c
		INNER JOIN legal_chunks_fts fts ON c.id = fts.rowid
		INNER JOIN works w ON w.id = c.work_id
		WHERE legal_chunks_fts MATCH ?`
	args := []interface{}{match}

	if filters.RegType != "" {
		sqlQuery += " AND w.reg_type = ?"
		args = append(args, filters.RegType)
	}
	if filters.Year > 0 {
		sqlQuery += " AND w.year = ?"
		args = append(args, filters.Year)
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.WorkID, &r.FRBRUri, &r.WorkTitle,
			&r.RegType, &r.Year, &r.ChunkIndex, &r.Text, &r.Metadata, &r.Snippet); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// quoteFTSQuery turns free text into an FTS5 query by quoting each term,
// which disarms operator syntax in user input
func quoteFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t != "" {
			quoted = append(quoted, `"`+t+`"`)
		}
	}
	return strings.Join(quoted, " ")
}

// Article is one pasal with its ayat and penjelasan
type Article struct {
	Work       *models.Work          `json:"work"`
	Pasal      *models.DocumentNode  `json:"pasal"`
	Ayat       []models.DocumentNode `json:"ayat,omitempty"`
	Penjelasan *models.DocumentNode  `json:"penjelasan,omitempty"`
}

// GetArticle returns a pasal by number within a work referenced by FRBR
// URI or slug, including its ayat children and per-pasal penjelasan
func (s *SearchStorage) GetArticle(ctx context.Context, workRef, pasalNumber string) (*Article, error) {
	work, err := s.getWork(ctx, workRef)
	if err != nil {
		return nil, err
	}

	pasal, err := s.getNode(ctx, work.ID, models.NodePasal, pasalNumber)
	if err != nil {
		return nil, fmt.Errorf("pasal %s not found in %s: %w", pasalNumber, workRef, err)
	}

	article := &Article{Work: work, Pasal: pasal}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, work_id, parent_id, node_type, COALESCE(number, ''),
			COALESCE(heading, ''), COALESCE(content, ''), COALESCE(path, ''),
			depth, sort_order
		FROM document_nodes
		WHERE parent_id = ? AND node_type = 'ayat'
		ORDER BY sort_order`, pasal.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		article.Ayat = append(article.Ayat, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if penjelasan, err := s.getNode(ctx, work.ID, models.NodePenjelasanPasal, pasalNumber); err == nil {
		article.Penjelasan = penjelasan
	}

	return article, nil
}

// WorkStatusInfo is a work's legal force with its amendment edges
type WorkStatusInfo struct {
	Work      *models.Work              `json:"work"`
	Relations []models.WorkRelationship `json:"relations,omitempty"`
}

// GetStatus returns the legal force of a work and its relationship edges
func (s *SearchStorage) GetStatus(ctx context.Context, workRef string) (*WorkStatusInfo, error) {
	work, err := s.getWork(ctx, workRef)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, source_frbr, relation, target_frbr
		FROM work_relationships
		WHERE source_frbr = ? OR target_frbr = ?
		ORDER BY id`, work.FRBRUri, work.FRBRUri)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &WorkStatusInfo{Work: work}
	for rows.Next() {
		var rel models.WorkRelationship
		var relation string
		if err := rows.Scan(&rel.ID, &rel.SourceFRBR, &relation, &rel.TargetFRBR); err != nil {
			return nil, err
		}
		rel.Relation = models.RelationshipType(relation)
		info.Relations = append(info.Relations, rel)
	}
	return info, rows.Err()
}

// ListFilter narrows a work listing
type ListFilter struct {
	RegType   string
	Year      int
	Status    string
	TitleLike string
}

// ListWorks returns a page of loaded works plus the total count under
// the same filters
func (s *SearchStorage) ListWorks(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Work, int, error) {
	if limit <= 0 {
		limit = 20
	}

	where := ` WHERE 1=1`
	args := []interface{}{}
	if filter.RegType != "" {
		where += " AND reg_type = ?"
		args = append(args, filter.RegType)
	}
	if filter.Year > 0 {
		where += " AND year = ?"
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.TitleLike != "" {
		where += " AND title LIKE ?"
		args = append(args, "%"+filter.TitleLike+"%")
	}

	var total int
	if err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM works`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sqlQuery := `
		SELECT id, frbr_uri, reg_type, number, year, title, COALESCE(slug, ''), status
		FROM works` + where + " ORDER BY year DESC, number LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var works []models.Work
	for rows.Next() {
		var w models.Work
		var status string
		if err := rows.Scan(&w.ID, &w.FRBRUri, &w.RegType, &w.Number, &w.Year,
			&w.Title, &w.Slug, &status); err != nil {
			return nil, 0, err
		}
		w.Status = models.WorkStatus(status)
		works = append(works, w)
	}
	return works, total, rows.Err()
}

// Ping verifies the store is reachable and returns the loaded works
// count
func (s *SearchStorage) Ping(ctx context.Context) (int, error) {
	if err := s.db.Ping(ctx); err != nil {
		return 0, err
	}
	var works int
	if err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM works`).Scan(&works); err != nil {
		return 0, err
	}
	return works, nil
}

func (s *SearchStorage) getWork(ctx context.Context, ref string) (*models.Work, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, frbr_uri, reg_type, number, year, title, COALESCE(slug, ''), status
		FROM works WHERE frbr_uri = ? OR slug = ?`, ref, ref)

	var w models.Work
	var status string
	err := row.Scan(&w.ID, &w.FRBRUri, &w.RegType, &w.Number, &w.Year, &w.Title, &w.Slug, &status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work %s not found", ref)
	}
	if err != nil {
		return nil, err
	}
	w.Status = models.WorkStatus(status)
	return &w, nil
}

func (s *SearchStorage) getNode(ctx context.Context, workID string, nodeType models.NodeType, number string) (*models.DocumentNode, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, work_id, parent_id, node_type, COALESCE(number, ''),
			COALESCE(heading, ''), COALESCE(content, ''), COALESCE(path, ''),
			depth, sort_order
		FROM document_nodes
		WHERE work_id = ? AND node_type = ? AND number = ?
		ORDER BY sort_order LIMIT 1`, workID, string(nodeType), number)
	return scanNode(row)
}

func scanNode(row rowScanner) (*models.DocumentNode, error) {
	var n models.DocumentNode
	var parentID sql.NullInt64
	var nodeType string
	err := row.Scan(&n.ID, &n.WorkID, &parentID, &nodeType, &n.Number,
		&n.Heading, &n.Content, &n.Path, &n.Depth, &n.SortOrder)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		n.ParentID = &parentID.Int64
	}
	n.NodeType = models.NodeType(nodeType)
	return &n, nil
}
