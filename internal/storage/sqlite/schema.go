package sqlite

import "github.com/ternarybob/pasal/internal/models"

const schemaSQL = `
-- Regulation type registry, seeded at startup
CREATE TABLE IF NOT EXISTS regulation_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	site_path TEXT NOT NULL,
	name TEXT NOT NULL
);

-- Crawl queue. One row per regulation detail page; discovery upserts by
-- (source_id, url) and never touches the status of a row in flight.
CREATE TABLE IF NOT EXISTS crawl_jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id TEXT NOT NULL,
	url TEXT NOT NULL,
	reg_type TEXT NOT NULL,
	slug TEXT,
	title TEXT,
	number TEXT,
	year INTEGER,
	status TEXT NOT NULL DEFAULT 'pending',
	prev_status TEXT,
	priority INTEGER DEFAULT 0,
	pdf_url TEXT,
	pdf_hash TEXT,
	pdf_size INTEGER,
	pdf_local_path TEXT,
	pdf_storage_url TEXT,
	pdf_downloaded_at INTEGER,
	work_id TEXT,
	run_id TEXT,
	extraction_version INTEGER DEFAULT 0,
	failure TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	last_claimed_at INTEGER,
	last_crawled_at INTEGER,
	completed_at INTEGER,
	UNIQUE(source_id, url)
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON crawl_jobs(status, priority DESC, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_claimed ON crawl_jobs(status, last_claimed_at);
CREATE INDEX IF NOT EXISTS idx_jobs_reg_type ON crawl_jobs(reg_type, status);
CREATE INDEX IF NOT EXISTS idx_jobs_extraction ON crawl_jobs(status, extraction_version);

-- Per reg-type listing crawl progress, gates discovery freshness
CREATE TABLE IF NOT EXISTS discovery_progress (
	source TEXT NOT NULL,
	reg_type TEXT NOT NULL,
	total_known INTEGER DEFAULT 0,
	total_pages INTEGER DEFAULT 0,
	pages_crawled INTEGER DEFAULT 0,
	last_discovered_at INTEGER,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (source, reg_type)
);

-- Legal works, keyed by uuid, unique by FRBR URI
CREATE TABLE IF NOT EXISTS works (
	id TEXT PRIMARY KEY,
	frbr_uri TEXT NOT NULL UNIQUE,
	reg_type TEXT NOT NULL,
	number TEXT NOT NULL,
	year INTEGER NOT NULL,
	title TEXT NOT NULL,
	slug TEXT,
	status TEXT NOT NULL DEFAULT 'berlaku',
	metadata TEXT,
	pdf_quality TEXT,
	parse_method TEXT,
	parse_confidence REAL,
	parse_errors TEXT,
	parsed_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_works_type_year ON works(reg_type, year);
CREATE INDEX IF NOT EXISTS idx_works_slug ON works(slug);

-- Structure tree, depth-first sort_order within a work. path is the
-- dot-joined label chain from the root, unique per work.
CREATE TABLE IF NOT EXISTS document_nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
	parent_id INTEGER REFERENCES document_nodes(id) ON DELETE CASCADE,
	node_type TEXT NOT NULL,
	number TEXT,
	heading TEXT,
	content TEXT,
	path TEXT,
	depth INTEGER NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	UNIQUE(work_id, path)
);

CREATE INDEX IF NOT EXISTS idx_nodes_work ON document_nodes(work_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_nodes_pasal ON document_nodes(work_id, node_type, number);

-- Searchable chunks derived from nodes
CREATE TABLE IF NOT EXISTS legal_chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
	node_id INTEGER REFERENCES document_nodes(id) ON DELETE SET NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL,
	metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_chunks_work ON legal_chunks(work_id, chunk_index);

-- Reader-submitted corrections and tracked revisions. Cleared together
-- with chunks and nodes when a work is reloaded.
CREATE TABLE IF NOT EXISTS suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
	node_id INTEGER,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	work_id TEXT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
	extraction_version INTEGER NOT NULL,
	pdf_hash TEXT,
	created_at INTEGER NOT NULL
);

-- Amendment graph between works (by FRBR URI)
CREATE TABLE IF NOT EXISTS work_relationships (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_frbr TEXT NOT NULL,
	relation TEXT NOT NULL,
	target_frbr TEXT NOT NULL,
	UNIQUE(source_frbr, relation, target_frbr)
);

-- Worker invocation totals
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	discovered INTEGER DEFAULT 0,
	processed INTEGER DEFAULT 0,
	loaded INTEGER DEFAULT 0,
	failed INTEGER DEFAULT 0,
	reprocessed INTEGER DEFAULT 0
);

-- FTS5 index for full-text search over chunks
CREATE VIRTUAL TABLE IF NOT EXISTS legal_chunks_fts USING fts5(
	text,
	content=legal_chunks,
	content_rowid=id
);

-- Triggers to keep FTS index in sync
CREATE TRIGGER IF NOT EXISTS legal_chunks_fts_insert AFTER INSERT ON legal_chunks BEGIN
	INSERT INTO legal_chunks_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS legal_chunks_fts_update AFTER UPDATE ON legal_chunks BEGIN
	UPDATE legal_chunks_fts SET text = new.text WHERE rowid = new.id;
END;

CREATE TRIGGER IF NOT EXISTS legal_chunks_fts_delete AFTER DELETE ON legal_chunks BEGIN
	DELETE FROM legal_chunks_fts WHERE rowid = old.id;
END;
`

// relationshipSeeds are the known amendment pairs loaded idempotently at
// startup. Each entry creates both directions of the edge.
var relationshipSeeds = []struct {
	Amending string
	Amended  string
}{
	{"/akn/id/act/uu/2023/6", "/akn/id/act/uu/2003/13"},
	{"/akn/id/act/uu/2019/16", "/akn/id/act/uu/1974/1"},
	{"/akn/id/act/uu/2001/20", "/akn/id/act/uu/1999/31"},
	{"/akn/id/act/uu/2022/13", "/akn/id/act/uu/2011/12"},
	{"/akn/id/act/uu/2024/27", "/akn/id/act/uu/2016/19"},
}

// InitSchema initializes the database schema and seed rows
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}

	for _, rt := range models.DefaultRegulationTypes() {
		_, err := s.db.Exec(
			`INSERT INTO regulation_types (code, site_path, name) VALUES (?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET site_path = excluded.site_path, name = excluded.name`,
			rt.Code, rt.SitePath, rt.Name)
		if err != nil {
			return err
		}
	}

	for _, rel := range relationshipSeeds {
		for _, edge := range [][3]string{
			{rel.Amending, "mengubah", rel.Amended},
			{rel.Amended, "diubah_oleh", rel.Amending},
		} {
			_, err := s.db.Exec(
				`INSERT OR IGNORE INTO work_relationships (source_frbr, relation, target_frbr) VALUES (?, ?, ?)`,
				edge[0], edge[1], edge[2])
			if err != nil {
				return err
			}
		}
	}

	s.logger.Info().Msg("Database schema initialized")
	return nil
}
