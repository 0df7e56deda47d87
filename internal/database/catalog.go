package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/market-recorder/internal/writer"
)

// Execer is the subset of pgxpool.Pool the catalog uses.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Catalog records finalized files in a Postgres table. It implements
// writer.FileObserver.
type Catalog struct {
	db     Execer
	table  string // sanitized identifier
	logger *slog.Logger
}

var _ writer.FileObserver = (*Catalog)(nil)

// NewCatalog returns a catalog writing to table.
func NewCatalog(db Execer, table string, logger *slog.Logger) (*Catalog, error) {
	if table == "" {
		return nil, errors.New("catalog table is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		db:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger.With("component", "catalog"),
	}, nil
}

// EnsureSchema creates the catalog table if it does not exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			path        TEXT PRIMARY KEY,
			venue       TEXT NOT NULL,
			table_name  TEXT NOT NULL,
			run_id      UUID NOT NULL,
			seq         INTEGER NOT NULL,
			records     BIGINT NOT NULL,
			row_groups  INTEGER NOT NULL,
			bytes       BIGINT NOT NULL,
			opened_at   TIMESTAMPTZ NOT NULL,
			closed_at   TIMESTAMPTZ NOT NULL
		)
	`, c.table)
	if _, err := c.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}
	return nil
}

// FileClosed inserts one row per finalized file. A path already present is
// left untouched.
func (c *Catalog) FileClosed(ctx context.Context, info writer.FileInfo) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (path, venue, table_name, run_id, seq, records, row_groups, bytes, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (path) DO NOTHING
	`, c.table)

	ct, err := c.db.Exec(ctx, sql,
		info.Path, info.Venue, info.Table, info.RunID, info.Seq,
		info.Records, info.RowGroups, info.Bytes, info.OpenedAt, info.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert catalog row: %w", err)
	}
	if ct.RowsAffected() == 0 {
		c.logger.Debug("file already cataloged", "path", info.Path)
	}
	return nil
}
