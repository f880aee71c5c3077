// Package sqlite keeps the line-addressable chunk index used to find
// recently indexed workspace content.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"memgraph/application/ports"
)

var pragmas = []string{
	`PRAGMA journal_mode = WAL`,
	`PRAGMA busy_timeout = 5000`,
	`PRAGMA synchronous = NORMAL`,
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chunks (
		path       TEXT    NOT NULL,
		line       INTEGER NOT NULL,
		text       TEXT    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (path, line)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_updated ON chunks (updated_at DESC)`,
}

// ChunkIndex implements ports.ChunkIndex on SQLite
type ChunkIndex struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewChunkIndex opens (or creates) the index database
func NewChunkIndex(ctx context.Context, dsn string, logger *zap.Logger) (*ChunkIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One writer; WAL lets readers proceed.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing chunk index: %w", err)
		}
	}

	return &ChunkIndex{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database
func (i *ChunkIndex) Close() error {
	return i.db.Close()
}

// RecentFiles reassembles the most recently indexed files, newest first
func (i *ChunkIndex) RecentFiles(ctx context.Context, limit int) ([]ports.IndexedFile, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT path, MAX(updated_at) AS ts
		FROM chunks
		GROUP BY path
		ORDER BY ts DESC, path ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent files: %w", err)
	}

	var files []ports.IndexedFile
	for rows.Next() {
		var (
			path string
			ts   int64
		)
		if err := rows.Scan(&path, &ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning recent file: %w", err)
		}
		files = append(files, ports.IndexedFile{Path: path, UpdatedAt: time.UnixMilli(ts).UTC()})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for n := range files {
		content, err := i.content(ctx, files[n].Path)
		if err != nil {
			return nil, err
		}
		files[n].Content = content
	}
	return files, nil
}

func (i *ChunkIndex) content(ctx context.Context, path string) (string, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT text FROM chunks WHERE path = ? ORDER BY line`, path)
	if err != nil {
		return "", fmt.Errorf("querying chunks of %s: %w", path, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("scanning chunk: %w", err)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n"), rows.Err()
}

// Reindex replaces the whole index with the given files in one transaction
func (i *ChunkIndex) Reindex(ctx context.Context, files []ports.IndexedFile) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (path, line, text, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, file := range files {
		updated := file.UpdatedAt
		if updated.IsZero() {
			updated = i.now()
		}
		lines := strings.Split(strings.TrimRight(file.Content, "\n"), "\n")
		for n, line := range lines {
			if _, err := stmt.ExecContext(ctx, file.Path, n+1, line, updated.UnixMilli()); err != nil {
				return fmt.Errorf("inserting chunk %s:%d: %w", file.Path, n+1, err)
			}
		}
		total += len(lines)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reindex: %w", err)
	}

	i.logger.Info("Rebuilt chunk index",
		zap.Int("files", len(files)),
		zap.Int("chunks", total))
	return nil
}
