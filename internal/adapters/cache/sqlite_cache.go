package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS extraction_cache (
			cache_key TEXT PRIMARY KEY,
			fields TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extraction_cache_expires_at ON extraction_cache(expires_at)`,
	},
	upsert: `INSERT OR REPLACE INTO extraction_cache (cache_key, fields, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
}

// SQLiteCache is a SQLite implementation of the ExtractionCache interface
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens (or creates) the database at dbPath
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite serialises writers; a single connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	c, err := newSQLCache(context.Background(), db, sqliteDialect, logger, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteCache{sqlCache: c}, nil
}

var _ core.ExtractionCache = (*SQLiteCache)(nil)
