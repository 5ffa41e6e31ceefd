// Package storage persists templates, tierlist snapshots, image records and
// user moderation state in SQLite. Documents are stored as JSON and deletes
// are always soft: a flag, a timestamp and the actor, never a removed row.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/meur/tierdeck/internal/models"
)

// Store handles all database operations.
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			is_private INTEGER NOT NULL DEFAULT 1,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at DATETIME,
			deleted_by TEXT,
			blocked INTEGER NOT NULL DEFAULT 0,
			doc TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_owner ON templates(owner)`,
		`CREATE TABLE IF NOT EXISTS tierlists (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			is_private INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at DATETIME,
			deleted_by TEXT,
			blocked INTEGER NOT NULL DEFAULT 0,
			doc TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tierlists_owner ON tierlists(owner)`,
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			blocked INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_user ON images(user_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			disabled INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Record is a stored template or tierlist document with its moderation
// metadata.
type Record struct {
	ID        string
	Owner     string
	IsPrivate bool
	Deleted   bool
	DeletedAt *time.Time
	DeletedBy string
	Blocked   bool
	Doc       *models.TierlistTemplate
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageRecord is one stored image's metadata.
type ImageRecord struct {
	ID        string
	UserID    string
	Blocked   bool
	CreatedAt time.Time
}

const idChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = idChars[rand.IntN(len(idChars))]
	}
	return string(b)
}

// UniqueID generates a short random id and retries until it does not collide
// with an existing row in table ("templates" or "tierlists"). The id space
// is large relative to expected volume, so the loop terminates quickly in
// practice.
func (s *Store) UniqueID(table string) (string, error) {
	if table != "templates" && table != "tierlists" {
		return "", fmt.Errorf("unknown table %q", table)
	}
	for {
		id := randomID()
		var n int
		err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE id = ?", table), id).Scan(&n)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return id, nil
		}
	}
}

// --- Templates ---

// GetTemplate returns a template by id, or nil when absent.
func (s *Store) GetTemplate(id string) (*Record, error) {
	return s.getRecord("templates", id)
}

// CreateTemplate inserts a new template. The owner is fixed here and never
// reassigned by later updates.
func (s *Store) CreateTemplate(rec *Record) error {
	return s.createRecord("templates", rec)
}

// UpdateTemplate replaces the stored document and visibility, preserving
// owner and moderation fields.
func (s *Store) UpdateTemplate(id string, doc *models.TierlistTemplate, isPrivate bool) error {
	return s.updateRecord("templates", id, doc, isPrivate)
}

// SoftDeleteTemplate marks a template deleted, attributed to actor.
func (s *Store) SoftDeleteTemplate(id, actor string) error {
	return s.softDelete("templates", id, actor)
}

// SetTemplateVisibility flips the private flag.
func (s *Store) SetTemplateVisibility(id string, isPrivate bool) error {
	return s.setVisibility("templates", id, isPrivate)
}

// --- Tierlists ---

// GetTierlist returns a tierlist snapshot by id, or nil when absent.
func (s *Store) GetTierlist(id string) (*Record, error) {
	return s.getRecord("tierlists", id)
}

// CreateTierlist inserts a new immutable snapshot.
func (s *Store) CreateTierlist(rec *Record) error {
	return s.createRecord("tierlists", rec)
}

// SoftDeleteTierlist marks a tierlist deleted, attributed to actor.
func (s *Store) SoftDeleteTierlist(id, actor string) error {
	return s.softDelete("tierlists", id, actor)
}

// SetTierlistVisibility flips the private flag.
func (s *Store) SetTierlistVisibility(id string, isPrivate bool) error {
	return s.setVisibility("tierlists", id, isPrivate)
}

// ListTierlistsByOwner returns the owner's non-deleted tierlists.
func (s *Store) ListTierlistsByOwner(owner string) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, owner, is_private, deleted, deleted_at, deleted_by, blocked, doc, created_at, updated_at
		FROM tierlists WHERE owner = ? AND deleted = 0 ORDER BY updated_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// --- shared record plumbing ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (*Record, error) {
	var rec Record
	var deletedAt sql.NullTime
	var deletedBy sql.NullString
	var doc string
	err := r.Scan(&rec.ID, &rec.Owner, &rec.IsPrivate, &rec.Deleted, &deletedAt,
		&deletedBy, &rec.Blocked, &doc, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}
	rec.DeletedBy = deletedBy.String
	var t models.TierlistTemplate
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("corrupt document %s: %w", rec.ID, err)
	}
	rec.Doc = &t
	return &rec, nil
}

func (s *Store) getRecord(table, id string) (*Record, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT id, owner, is_private, deleted, deleted_at, deleted_by, blocked, doc, created_at, updated_at
		FROM %s WHERE id = ?
	`, table), id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) createRecord(table string, rec *Record) error {
	doc, err := json.Marshal(rec.Doc)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (id, owner, is_private, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, table), rec.ID, rec.Owner, rec.IsPrivate, string(doc), now, now)
	return err
}

func (s *Store) updateRecord(table, id string, doc *models.TierlistTemplate, isPrivate bool) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(fmt.Sprintf(`
		UPDATE %s SET doc = ?, is_private = ?, updated_at = ? WHERE id = ?
	`, table), string(raw), isPrivate, time.Now(), id)
	return err
}

func (s *Store) softDelete(table, id, actor string) error {
	now := time.Now()
	_, err := s.db.Exec(fmt.Sprintf(`
		UPDATE %s SET deleted = 1, deleted_at = ?, deleted_by = ?, updated_at = ? WHERE id = ?
	`, table), now, actor, now, id)
	return err
}

func (s *Store) setVisibility(table, id string, isPrivate bool) error {
	_, err := s.db.Exec(fmt.Sprintf(`
		UPDATE %s SET is_private = ?, updated_at = ? WHERE id = ?
	`, table), isPrivate, time.Now(), id)
	return err
}

// --- Images ---

// CreateImage records a stored image.
func (s *Store) CreateImage(id, userID string) error {
	_, err := s.db.Exec(`INSERT INTO images (id, user_id) VALUES (?, ?)`, id, userID)
	return err
}

// GetImage returns one image record, or nil when absent.
func (s *Store) GetImage(id string) (*ImageRecord, error) {
	var rec ImageRecord
	err := s.db.QueryRow(`
		SELECT id, user_id, blocked, created_at FROM images WHERE id = ?
	`, id).Scan(&rec.ID, &rec.UserID, &rec.Blocked, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountUserImages counts the user's non-blocked images.
func (s *Store) CountUserImages(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(1) FROM images WHERE user_id = ? AND blocked = 0
	`, userID).Scan(&n)
	return n, err
}

// ListUserImages returns the user's non-blocked images.
func (s *Store) ListUserImages(userID string) ([]ImageRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, blocked, created_at FROM images
		WHERE user_id = ? AND blocked = 0 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImageRecord
	for rows.Next() {
		var rec ImageRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Blocked, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BlockImages marks a batch of image records blocked in one transaction, so
// a mid-batch failure leaves nothing half-applied.
func (s *Store) BlockImages(ids []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE images SET blocked = 1 WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Users / moderation ---

// DisableUser marks an account disabled. Disabled users resolve as
// anonymous at the identity layer.
func (s *Store) DisableUser(uid string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (uid, disabled) VALUES (?, 1)
		ON CONFLICT(uid) DO UPDATE SET disabled = 1
	`, uid)
	return err
}

// IsUserDisabled reports whether the account has been disabled.
func (s *Store) IsUserDisabled(uid string) (bool, error) {
	var disabled bool
	err := s.db.QueryRow(`SELECT disabled FROM users WHERE uid = ?`, uid).Scan(&disabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return disabled, nil
}

// BlockOwnerDocuments marks every template and tierlist owned by uid as
// blocked. The bulk-block moderation write is all-or-nothing.
func (s *Store) BlockOwnerDocuments(uid string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE templates SET blocked = 1 WHERE owner = ?`, uid); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE tierlists SET blocked = 1 WHERE owner = ?`, uid); err != nil {
		return err
	}
	return tx.Commit()
}
