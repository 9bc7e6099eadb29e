// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		source_id TEXT,
		output_name TEXT NOT NULL UNIQUE,
		format TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		failed_chunks INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		record TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);

	CREATE TABLE IF NOT EXISTS processed_sources (
		source_id TEXT PRIMARY KEY,
		generation_id TEXT NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

const generationColumns = `id, source_name, source_id, output_name, format, chunk_count,
	failed_chunks, duration_ms, record, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*models.Generation, error) {
	var gen models.Generation
	var sourceID sql.NullString
	var recordJSON string
	if err := row.Scan(&gen.ID, &gen.SourceName, &sourceID, &gen.OutputName, &gen.Format,
		&gen.ChunkCount, &gen.FailedChunks, &gen.DurationMS, &recordJSON, &gen.CreatedAt); err != nil {
		return nil, err
	}
	gen.SourceID = sourceID.String
	if recordJSON != "" {
		if err := json.Unmarshal([]byte(recordJSON), &gen.Record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
	}
	return &gen, nil
}

// CreateGeneration inserts a generation. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateGeneration(ctx context.Context, gen *models.Generation) error {
	recordJSON, err := json.Marshal(gen.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations (`+generationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.SourceName, nullString(gen.SourceID), gen.OutputName, gen.Format,
		gen.ChunkCount, gen.FailedChunks, gen.DurationMS, string(recordJSON), gen.CreatedAt,
	)
	return err
}

// GetGeneration returns a generation by ID.
func (s *SQLiteStorage) GetGeneration(ctx context.Context, id string) (*models.Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE id = ?`, id)
	gen, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return gen, err
}

// GetGenerationByOutput returns the generation that produced outputName.
func (s *SQLiteStorage) GetGenerationByOutput(ctx context.Context, outputName string) (*models.Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE output_name = ?`, outputName)
	gen, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, outputName)
	}
	return gen, err
}

// ListGenerations returns generations newest first with offset and limit.
func (s *SQLiteStorage) ListGenerations(ctx context.Context, offset, limit int) ([]*models.Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+generationColumns+`
		 FROM generations ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []*models.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

// DeleteGeneration removes a generation and its source marker.
func (s *SQLiteStorage) DeleteGeneration(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM processed_sources WHERE generation_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkSourceProcessed records that the source with sourceID produced generationID.
func (s *SQLiteStorage) MarkSourceProcessed(ctx context.Context, sourceID, generationID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO processed_sources (source_id, generation_id, processed_at)
		 VALUES (?, ?, ?)`,
		sourceID, generationID, time.Now(),
	)
	return err
}

// IsSourceProcessed reports whether sourceID has already produced a generation.
func (s *SQLiteStorage) IsSourceProcessed(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_sources WHERE source_id = ?`, sourceID,
	).Scan(&n)
	return n > 0, err
}

// CountGenerations returns the total number of generations.
func (s *SQLiteStorage) CountGenerations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
