package pipeline

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pasal/internal/models"
	"github.com/ternarybob/pasal/internal/parser"
	"github.com/ternarybob/pasal/internal/storage/sqlite"
)

// Loader persists a parsed regulation: the work row, its structure
// tree and its search chunks, replacing any earlier load of the same
// work. Reloading identical input yields the same chunk count.
type Loader struct {
	works  *sqlite.WorkStorage
	logger arbor.ILogger
}

// NewLoader creates a new loader
func NewLoader(works *sqlite.WorkStorage, logger arbor.ILogger) *Loader {
	return &Loader{works: works, logger: logger}
}

// Load stores the work and its parsed tree. Returns the work id and
// the number of chunks written.
func (l *Loader) Load(ctx context.Context, work *models.Work, nodes []*parser.Node, extractionVersion int, pdfHash string) (string, int, error) {
	workID, err := l.works.LoadWork(ctx, work)
	if err != nil {
		return "", 0, err
	}

	flat := FlattenTree(nodes)
	chunks := BuildChunks(work, flat)

	if err := l.works.ReplaceTree(ctx, workID, extractionVersion, pdfHash, flat, chunks); err != nil {
		return "", 0, err
	}

	l.logger.Info().
		Str("work_id", workID).
		Str("frbr_uri", work.FRBRUri).
		Int("nodes", len(flat)).
		Int("chunks", len(chunks)).
		Msg("Work loaded")

	return workID, len(chunks), nil
}
