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

	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/source"
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
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS document_fields (
		document_id TEXT NOT NULL,
		name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		value TEXT NOT NULL,
		tokenized INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (document_id, seq),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_fields_document_name ON document_fields(document_id, name, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// PutDocument inserts the document, replacing any existing fields in one transaction.
// CreatedAt is kept for existing documents.
func (s *SQLiteStorage) PutDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	created := now
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM documents WHERE id = ?`, doc.ID).Scan(&created)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	doc.CreatedAt = created
	doc.UpdatedAt = now

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, metadata, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata, updated_at = excluded.updated_at`,
		doc.ID, string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_fields WHERE document_id = ?`, doc.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_fields (document_id, name, seq, value, tokenized) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, f := range doc.Fields {
		if _, err := stmt.ExecContext(ctx, doc.ID, f.Name, i, f.Value, f.Tokenized); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetDocument returns a document with all its fields.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, metadata, created_at, updated_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, tokenized FROM document_fields WHERE document_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f models.StoredField
		if err := rows.Scan(&f.Name, &f.Value, &f.Tokenized); err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, f)
	}
	return &doc, rows.Err()
}

// DeleteDocument removes a document and its fields.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents (without fields) with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, metadata, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// StoredFields returns every instance of field for the document in stored order.
// A document without the field yields an empty slice; a missing document yields ErrNotFound.
func (s *SQLiteStorage) StoredFields(ctx context.Context, docID, field string) ([]models.StoredField, error) {
	it, err := s.StreamFields(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var fields []models.StoredField
	for it.Next() {
		fields = append(fields, it.Field())
	}
	return fields, it.Err()
}

// StreamFields opens a row iterator over the instances of field. The caller must close it.
func (s *SQLiteStorage) StreamFields(ctx context.Context, docID, field string) (source.FieldIterator, error) {
	if err := s.exists(ctx, docID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, tokenized FROM document_fields
		 WHERE document_id = ? AND name = ? ORDER BY seq`,
		docID, field,
	)
	if err != nil {
		return nil, err
	}
	return &fieldRows{rows: rows}, nil
}

// fieldRows adapts *sql.Rows to source.FieldIterator.
type fieldRows struct {
	rows *sql.Rows
	cur  models.StoredField
	err  error
}

func (r *fieldRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	if err := r.rows.Scan(&r.cur.Name, &r.cur.Value, &r.cur.Tokenized); err != nil {
		r.err = err
		return false
	}
	return true
}

func (r *fieldRows) Field() models.StoredField { return r.cur }

func (r *fieldRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *fieldRows) Close() error { return r.rows.Close() }

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountFields returns the total number of stored field instances.
func (s *SQLiteStorage) CountFields(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_fields`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
