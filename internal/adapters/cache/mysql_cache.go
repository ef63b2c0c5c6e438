package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS extraction_cache (
			cache_key CHAR(64) PRIMARY KEY,
			fields TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_extraction_cache_expires_at (expires_at)
		)`,
	},
	upsert: `INSERT INTO extraction_cache (cache_key, fields, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE fields = VALUES(fields), created_at = VALUES(created_at), expires_at = VALUES(expires_at)`,
}

// MySQLCache is a MySQL implementation of the ExtractionCache interface
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache connects to dsn and prepares the cache table
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	c, err := newSQLCache(ctx, db, mysqlDialect, logger, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MySQLCache{sqlCache: c}, nil
}

var _ core.ExtractionCache = (*MySQLCache)(nil)
