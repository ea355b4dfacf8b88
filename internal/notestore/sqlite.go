package notestore

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	slug       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(owner_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id);
`

// DB implements Provider backed by SQLite.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the notes schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("notestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the note with the given id.
func (db *DB) Get(id string) (*models.Note, error) {
	return db.scanNote(db.conn.QueryRow(
		`SELECT id, owner_id, slug, title, content, checksum, created_at, updated_at FROM notes WHERE id = ?`, id))
}

// GetBySlug returns the owner's note with the given slug.
func (db *DB) GetBySlug(ownerID, slug string) (*models.Note, error) {
	return db.scanNote(db.conn.QueryRow(
		`SELECT id, owner_id, slug, title, content, checksum, created_at, updated_at FROM notes WHERE owner_id = ? AND slug = ?`,
		ownerID, slug))
}

// Directory returns the owner's (id, slug) pairs ordered by slug.
func (db *DB) Directory(ownerID string) ([]models.DirectoryEntry, error) {
	rows, err := db.conn.Query(`SELECT id, slug FROM notes WHERE owner_id = ? ORDER BY slug`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("notestore: directory: %w", err)
	}
	defer rows.Close()

	var out []models.DirectoryEntry
	for rows.Next() {
		var e models.DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Slug); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Insert stores a new note.
func (db *DB) Insert(n *models.Note) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (id, owner_id, slug, title, content, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.OwnerID, n.Slug, n.Title, n.Content, n.Checksum, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("notestore: insert: %w", err)
	}
	return nil
}

// UpdateContent replaces a note's content and checksum.
func (db *DB) UpdateContent(id, content, cs string) error {
	res, err := db.conn.Exec(
		`UPDATE notes SET content = ?, checksum = ?, updated_at = ? WHERE id = ?`,
		content, cs, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("notestore: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes the note.
func (db *DB) Delete(id string) error {
	res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("notestore: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// List returns the owner's notes ordered by slug, with pagination.
func (db *DB) List(ownerID string, limit, offset int) ([]models.Note, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("notestore: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, owner_id, slug, title, content, checksum, created_at, updated_at
		FROM notes WHERE owner_id = ? ORDER BY slug LIMIT ? OFFSET ?
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("notestore: list: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Slug, &n.Title, &n.Content, &n.Checksum, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (db *DB) scanNote(row *sql.Row) (*models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.OwnerID, &n.Slug, &n.Title, &n.Content, &n.Checksum, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: scan note: %w", err)
	}
	return &n, nil
}

// NewID returns a fresh opaque note identifier.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("notestore: id entropy: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Checksum returns the hex-encoded SHA-256 digest of content.
func Checksum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
