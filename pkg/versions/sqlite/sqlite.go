// Package sqlite implements the version store on SQLite via database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/strata/pkg/versions"
)

// Store implements versions.Store using SQLite as the storage backend.
type Store struct {
	db *sql.DB
}

var _ versions.Store = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at dbPath and migrates
// the schema. The dbPath can be a file path or ":memory:".
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one
	// so every statement sees the same tables.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// WAL keeps readers (status, query) from blocking behind commits.
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return NewStoreWithDB(db)
}

// NewStoreWithDB wraps an already-open connection that speaks the SQLite
// dialect. Used by the libsql driver, which shares this store's SQL.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		latest_version INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS versions (
		doc_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (doc_id, version)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS version_chunks (
		doc_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		position INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		PRIMARY KEY (doc_id, version, position)
	);

	CREATE INDEX IF NOT EXISTS idx_version_chunks_chunk ON version_chunks(chunk_id);
	CREATE INDEX IF NOT EXISTS idx_versions_synced ON versions(doc_id, synced);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateVersion persists v, its chunks, and its membership list in one
// transaction. The document head advance doubles as the compare-and-swap:
// a commit that does not land on latest+1 fails with ErrOutOfOrderCommit.
func (s *Store) CreateVersion(ctx context.Context, v *versions.Version) error {
	if v == nil {
		return errors.New("cannot store nil version")
	}
	if v.DocumentID == "" {
		return errors.New("version has no document id")
	}

	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Advance the head first. For a new document, a unique-key loss on
	// insert means another writer got there first.
	if v.Number == 1 {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO documents (doc_id, latest_version, content_hash, updated_at)
			 VALUES (?, ?, ?, ?)`,
			v.DocumentID, v.Number, v.ContentHash, createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting document head %s: %w", v.DocumentID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("checking head insert for %s: %w", v.DocumentID, err)
		} else if n == 0 {
			return fmt.Errorf("document %q already exists: %w", v.DocumentID, versions.ErrOutOfOrderCommit)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET latest_version = ?, content_hash = ?, updated_at = ?
			 WHERE doc_id = ? AND latest_version = ?`,
			v.Number, v.ContentHash, createdAt, v.DocumentID, v.Number-1,
		)
		if err != nil {
			return fmt.Errorf("advancing document head %s: %w", v.DocumentID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("checking head advance for %s: %w", v.DocumentID, err)
		} else if n == 0 {
			return fmt.Errorf("document %q is not at version %d: %w",
				v.DocumentID, v.Number-1, versions.ErrOutOfOrderCommit)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO versions (doc_id, version, content_hash, created_at, synced)
		 VALUES (?, ?, ?, ?, 0)`,
		v.DocumentID, v.Number, v.ContentHash, createdAt,
	); err != nil {
		return fmt.Errorf("inserting version %d of %s: %w", v.Number, v.DocumentID, err)
	}

	for _, ch := range v.Chunks {
		// Chunk records are content-addressed; re-inserting an id a
		// previous version already wrote is a no-op.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO chunks (chunk_id, doc_id, position, start_offset, end_offset, fingerprint, text)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ch.ID, ch.DocumentID, ch.Position, ch.StartOffset, ch.EndOffset, ch.Fingerprint, ch.Text,
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", ch.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO version_chunks (doc_id, version, position, chunk_id)
			 VALUES (?, ?, ?, ?)`,
			v.DocumentID, v.Number, ch.Position, ch.ID,
		); err != nil {
			return fmt.Errorf("inserting membership for chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing version %d of %s: %w", v.Number, v.DocumentID, err)
	}

	return nil
}

// Latest returns the most recent version of a document, chunks included.
func (s *Store) Latest(ctx context.Context, docID string) (*versions.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT v.doc_id, v.version, v.content_hash, v.created_at, v.synced
		FROM documents d
		INNER JOIN versions v ON v.doc_id = d.doc_id AND v.version = d.latest_version
		WHERE d.doc_id = ?
	`, docID)

	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &versions.NotFoundError{DocumentID: docID}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning latest version of %s: %w", docID, err)
	}

	if v.Chunks, err = s.loadChunks(ctx, docID, v.Number); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVersion returns one specific version of a document, chunks included.
func (s *Store) GetVersion(ctx context.Context, docID string, number int64) (*versions.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, version, content_hash, created_at, synced
		FROM versions
		WHERE doc_id = ? AND version = ?
	`, docID, number)

	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		if exists, exErr := s.documentExists(ctx, docID); exErr != nil {
			return nil, exErr
		} else if !exists {
			return nil, &versions.NotFoundError{DocumentID: docID}
		}
		return nil, &versions.NotFoundError{DocumentID: docID, Version: number}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning version %d of %s: %w", number, docID, err)
	}

	if v.Chunks, err = s.loadChunks(ctx, docID, number); err != nil {
		return nil, err
	}
	return v, nil
}

// ListDocuments returns one status row per document, ordered by id.
func (s *Store) ListDocuments(ctx context.Context) ([]versions.DocumentStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			d.latest_version,
			d.content_hash,
			d.updated_at,
			v.synced,
			(SELECT COUNT(*) FROM version_chunks vc
			 WHERE vc.doc_id = d.doc_id AND vc.version = d.latest_version)
		FROM documents d
		INNER JOIN versions v ON v.doc_id = d.doc_id AND v.version = d.latest_version
		ORDER BY d.doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var statuses []versions.DocumentStatus
	for rows.Next() {
		var st versions.DocumentStatus
		var synced int
		if err := rows.Scan(&st.ID, &st.LatestVersion, &st.ContentHash, &st.UpdatedAt, &synced, &st.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document status: %w", err)
		}
		st.Synced = synced != 0
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return statuses, nil
}

// MarkSynced records that the vector index reflects this version.
func (s *Store) MarkSynced(ctx context.Context, docID string, number int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE versions SET synced = 1 WHERE doc_id = ? AND version = ?`,
		docID, number,
	)
	if err != nil {
		return fmt.Errorf("marking version %d of %s synced: %w", number, docID, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking synced update for %s: %w", docID, err)
	} else if n == 0 {
		if exists, exErr := s.documentExists(ctx, docID); exErr != nil {
			return exErr
		} else if !exists {
			return &versions.NotFoundError{DocumentID: docID}
		}
		return &versions.NotFoundError{DocumentID: docID, Version: number}
	}
	return nil
}

// LastSynced returns the highest synced version number, or 0 when none.
func (s *Store) LastSynced(ctx context.Context, docID string) (int64, error) {
	if exists, err := s.documentExists(ctx, docID); err != nil {
		return 0, err
	} else if !exists {
		return 0, &versions.NotFoundError{DocumentID: docID}
	}

	var last int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM versions WHERE doc_id = ? AND synced = 1`,
		docID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("querying last synced version of %s: %w", docID, err)
	}
	return last, nil
}

// UnsyncedDocuments lists ids whose latest version is not yet synced.
func (s *Store) UnsyncedDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.doc_id
		FROM documents d
		INNER JOIN versions v ON v.doc_id = d.doc_id AND v.version = d.latest_version
		WHERE v.synced = 0
		ORDER BY d.doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying unsynced documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unsynced documents: %w", err)
	}

	return ids, nil
}

// ChunkIDsInRange returns the distinct chunk ids referenced by versions
// in the half-open range (from, to], in first-seen order.
func (s *Store) ChunkIDsInRange(ctx context.Context, docID string, from, to int64) ([]string, error) {
	if exists, err := s.documentExists(ctx, docID); err != nil {
		return nil, err
	} else if !exists {
		return nil, &versions.NotFoundError{DocumentID: docID}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id
		FROM version_chunks
		WHERE doc_id = ? AND version > ? AND version <= ?
		GROUP BY chunk_id
		ORDER BY MIN(version), MIN(position)
	`, docID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids of %s: %w", docID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}

	return ids, nil
}

// ResolveCurrent hydrates chunk ids that are members of their document's
// latest version. Stale ids are dropped; output order follows input.
func (s *Store) ResolveCurrent(ctx context.Context, ids []string) ([]versions.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT c.chunk_id, c.doc_id, c.position, c.start_offset, c.end_offset, c.fingerprint, c.text
		FROM chunks c
		INNER JOIN documents d ON d.doc_id = c.doc_id
		INNER JOIN version_chunks vc
			ON vc.chunk_id = c.chunk_id
			AND vc.doc_id = d.doc_id
			AND vc.version = d.latest_version
		WHERE c.chunk_id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolving chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]versions.Chunk, len(ids))
	for rows.Next() {
		var ch versions.Chunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Position, &ch.StartOffset, &ch.EndOffset, &ch.Fingerprint, &ch.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		byID[ch.ID] = ch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	chunks := make([]versions.Chunk, 0, len(byID))
	for _, id := range ids {
		if ch, ok := byID[id]; ok {
			chunks = append(chunks, ch)
		}
	}
	return chunks, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) documentExists(ctx context.Context, docID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE doc_id = ? LIMIT 1`, docID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document %s: %w", docID, err)
	}
	return true, nil
}

// loadChunks returns the ordered chunk list for one version.
func (s *Store) loadChunks(ctx context.Context, docID string, number int64) ([]versions.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.doc_id, c.position, c.start_offset, c.end_offset, c.fingerprint, c.text
		FROM version_chunks vc
		INNER JOIN chunks c ON c.chunk_id = vc.chunk_id
		WHERE vc.doc_id = ? AND vc.version = ?
		ORDER BY vc.position
	`, docID, number)
	if err != nil {
		return nil, fmt.Errorf("querying chunks of %s v%d: %w", docID, number, err)
	}
	defer rows.Close()

	var chunks []versions.Chunk
	for rows.Next() {
		var ch versions.Chunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Position, &ch.StartOffset, &ch.EndOffset, &ch.Fingerprint, &ch.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// scanner abstracts *sql.Row for version scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*versions.Version, error) {
	var v versions.Version
	var synced int
	if err := row.Scan(&v.DocumentID, &v.Number, &v.ContentHash, &v.CreatedAt, &synced); err != nil {
		return nil, err
	}
	v.Synced = synced != 0
	return &v, nil
}
