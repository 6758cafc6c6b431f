package sqlite

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/common"
	"github.com/ternarybob/pasal/internal/models"
)

// WorkStorage handles works, their structure trees and search chunks
type WorkStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	retry  *common.RetryPolicy
}

// NewWorkStorage creates a new work storage service
func NewWorkStorage(db *SQLiteDB, logger arbor.ILogger) *WorkStorage {
	return &WorkStorage{
		db:     db,
		logger: logger,
		retry:  common.NewStoreRetryPolicy(),
	}
}

// LoadWork upserts a work by FRBR URI and returns its id. An existing
// work keeps its id; discovery metadata is refreshed. Detail-page
// metadata is only overwritten when the incoming work carries some.
func (s *WorkStorage) LoadWork(ctx context.Context, work *models.Work) (string, error) {
	if work.ID == "" {
		work.ID = uuid.NewString()
	}

	meta := ""
	if len(work.Metadata) > 0 {
		data, err := json.Marshal(work.Metadata)
		if err != nil {
			return "", err
		}
		meta = string(data)
	}

	var id string
	err := s.retry.Execute(ctx, s.logger, "load_work", func() error {
		return s.db.DB().QueryRowContext(ctx, `
			INSERT INTO works (id, frbr_uri, reg_type, number, year, title, slug,
				status, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), strftime('%s','now'), strftime('%s','now'))
			ON CONFLICT(frbr_uri) DO UPDATE SET
				reg_type = excluded.reg_type,
				number = excluded.number,
				year = excluded.year,
				title = excluded.title,
				slug = excluded.slug,
				metadata = COALESCE(excluded.metadata, metadata),
				updated_at = excluded.updated_at
			RETURNING id`,
			work.ID, work.FRBRUri, work.RegType, work.Number, work.Year,
			work.Title, work.Slug, string(defaultStatus(work.Status)), meta).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	work.ID = id
	return id, nil
}

func defaultStatus(status models.WorkStatus) models.WorkStatus {
	if status == "" {
		return models.WorkStatusBerlaku
	}
	return status
}

// UpdateParseMeta records extraction outcome details on the work row
func (s *WorkStorage) UpdateParseMeta(ctx context.Context, workID string, quality models.PDFQuality, method string, confidence float64, parseErrors string) error {
	return s.retry.Execute(ctx, s.logger, "update_parse_meta", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE works
			SET pdf_quality = ?, parse_method = ?, parse_confidence = ?,
				parse_errors = NULLIF(?, ''), parsed_at = strftime('%s','now'),
				updated_at = strftime('%s','now')
			WHERE id = ?`,
			string(quality), method, confidence, parseErrors, workID)
		return err
	})
}

// SetWorkStatus updates the legal force of a work
func (s *WorkStorage) SetWorkStatus(ctx context.Context, workID string, status models.WorkStatus) error {
	return s.retry.Execute(ctx, s.logger, "set_work_status", func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE works SET status = ?, updated_at = strftime('%s','now') WHERE id = ?`,
			string(status), workID)
		return err
	})
}

// NodeInsert is one node of a flattened structure tree. ParentIdx is the
// position of the parent within the same slice, -1 for roots.
type NodeInsert struct {
	ParentIdx int
	Node      models.DocumentNode
}

// ChunkInsert is one chunk with an optional reference to a node by its
// flat index in the accompanying NodeInsert slice.
type ChunkInsert struct {
	NodeIdx int // -1 when the chunk has no backing node
	Chunk   models.LegalChunk
}

// ReplaceTree replaces a work's structure tree and chunks in one
// transaction. Existing rows are cleared first, suggestions and
// revisions before chunks and nodes. Nodes are inserted level by level
// so parent ids exist before their children; sort_order carries the
// depth-first document position. The FTS index follows via triggers.
func (s *WorkStorage) ReplaceTree(ctx context.Context, workID string, extractionVersion int, pdfHash string, nodes []NodeInsert, chunks []ChunkInsert) error {
	return s.retry.Execute(ctx, s.logger, "replace_tree", func() error {
		tx, err := s.db.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, stmt := range []string{
			`DELETE FROM suggestions WHERE work_id = ?`,
			`DELETE FROM revisions WHERE work_id = ?`,
			`DELETE FROM legal_chunks WHERE work_id = ?`,
			`DELETE FROM document_nodes WHERE work_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, workID); err != nil {
				return err
			}
		}

		// Insert nodes grouped by depth, shallowest first
		depths := make([]int, 0)
		byDepth := make(map[int][]int)
		for i, n := range nodes {
			if _, ok := byDepth[n.Node.Depth]; !ok {
				depths = append(depths, n.Node.Depth)
			}
			byDepth[n.Node.Depth] = append(byDepth[n.Node.Depth], i)
		}
		sort.Ints(depths)

		nodeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_nodes (work_id, parent_id, node_type, number,
				heading, content, path, depth, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`)
		if err != nil {
			return err
		}
		defer nodeStmt.Close()

		idByIdx := make(map[int]int64, len(nodes))
		for _, depth := range depths {
			for _, idx := range byDepth[depth] {
				n := nodes[idx]
				var parentID interface{}
				if n.ParentIdx >= 0 {
					id, ok := idByIdx[n.ParentIdx]
					if !ok {
						// Parent not inserted yet means the flat order is
						// inconsistent; keep the node as a root rather than
						// dropping content.
						parentID = nil
					} else {
						parentID = id
					}
				}
				res, err := nodeStmt.ExecContext(ctx, workID, parentID,
					string(n.Node.NodeType), n.Node.Number, n.Node.Heading,
					n.Node.Content, n.Node.Path, n.Node.Depth, n.Node.SortOrder)
				if err != nil {
					return err
				}
				id, err := res.LastInsertId()
				if err != nil {
					return err
				}
				idByIdx[idx] = id
			}
		}

		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO legal_chunks (work_id, node_id, chunk_index, text, metadata)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer chunkStmt.Close()

		for _, c := range chunks {
			var nodeID interface{}
			if c.NodeIdx >= 0 {
				if id, ok := idByIdx[c.NodeIdx]; ok {
					nodeID = id
				}
			}
			meta, err := c.Chunk.MetadataJSON()
			if err != nil {
				return err
			}
			if _, err := chunkStmt.ExecContext(ctx, workID, nodeID, c.Chunk.ChunkIndex, c.Chunk.Text, meta); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO revisions (work_id, extraction_version, pdf_hash, created_at)
			VALUES (?, ?, NULLIF(?, ''), strftime('%s','now'))`,
			workID, extractionVersion, pdfHash); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// GetWorkByRef finds a work by FRBR URI or slug
func (s *WorkStorage) GetWorkByRef(ctx context.Context, ref string) (*models.Work, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, frbr_uri, reg_type, number, year, title, COALESCE(slug, ''),
			status, COALESCE(metadata, ''), COALESCE(pdf_quality, ''),
			COALESCE(parse_method, ''), COALESCE(parse_confidence, 0),
			COALESCE(parse_errors, '')
		FROM works WHERE frbr_uri = ? OR slug = ?`, ref, ref)

	var w models.Work
	var status, meta, quality string
	if err := row.Scan(&w.ID, &w.FRBRUri, &w.RegType, &w.Number, &w.Year,
		&w.Title, &w.Slug, &status, &meta, &quality, &w.ParseMethod,
		&w.ParseConfidence, &w.ParseErrors); err != nil {
		return nil, err
	}
	w.Status = models.WorkStatus(status)
	w.PDFQuality = models.PDFQuality(quality)
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &w.Metadata); err != nil {
			s.logger.Warn().Str("work_id", w.ID).Err(err).Msg("Malformed work metadata")
		}
	}
	return &w, nil
}

// CountChunks returns the number of chunks loaded for a work
func (s *WorkStorage) CountChunks(ctx context.Context, workID string) (int, error) {
	var n int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM legal_chunks WHERE work_id = ?`, workID).Scan(&n)
	return n, err
}
