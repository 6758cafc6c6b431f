package sqlite

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pasal/internal/common"
)

// Manager bundles the SQLite-backed storage services behind one handle
type Manager struct {
	db       *SQLiteDB
	Jobs     *JobStorage
	Works    *WorkStorage
	Progress *ProgressStorage
	Runs     *RunStorage
	Search   *SearchStorage
}

// NewManager opens the database and wires up the storage services
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig, claimTimeout time.Duration) (*Manager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:       db,
		Jobs:     NewJobStorage(db, logger, claimTimeout),
		Works:    NewWorkStorage(db, logger),
		Progress: NewProgressStorage(db, logger),
		Runs:     NewRunStorage(db, logger),
		Search:   NewSearchStorage(db, logger),
	}, nil
}

// DB exposes the underlying connection for tests and maintenance
func (m *Manager) DB() *SQLiteDB {
	return m.db
}

// Close shuts down the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
