// Package store persists the per-browser key/value "local storage" that
// holds the API token and user info between visits.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	_ "modernc.org/sqlite"
)

// LocalStorage is durable key/value storage scoped to one browser.
type LocalStorage interface {
	GetItem(ctx context.Context, browserID, key string) (string, bool, error)
	SetItem(ctx context.Context, browserID, key, value string) error
	RemoveItem(ctx context.Context, browserID, key string) error
	Clear(ctx context.Context, browserID string) error
}

// DefaultTTL is how long an untouched browser's storage survives.
const DefaultTTL = 7 * 24 * time.Hour

// browserKey hashes the cookie value so the database never holds it verbatim.
func browserKey(browserID string) string {
	sum := blake2b.Sum256([]byte(browserID))
	return hex.EncodeToString(sum[:])
}

// SQLite implements LocalStorage on a SQLite database.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New opens (and migrates) the SQLite database at dbPath.
func New(dbPath string, ttl time.Duration) (*SQLite, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &SQLite{db: db, ttl: ttl, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS local_storage (
		browser TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (browser, key)
	);

	CREATE INDEX IF NOT EXISTS idx_local_storage_expires ON local_storage(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetItem returns the value stored under key. Expired rows read as missing.
func (s *SQLite) GetItem(ctx context.Context, browserID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE browser = ? AND key = ? AND expires_at > ?`,
		browserKey(browserID), key, s.now().Unix(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetItem upserts key and extends the browser's expiry.
func (s *SQLite) SetItem(ctx context.Context, browserID, key, value string) error {
	now := s.now()
	expires := now.Add(s.ttl).Unix()
	bk := browserKey(browserID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO local_storage (browser, key, value, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(browser, key) DO UPDATE SET value = ?, updated_at = ?, expires_at = ?`,
		bk, key, value, now.Unix(), expires, value, now.Unix(), expires,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE local_storage SET expires_at = ? WHERE browser = ?`, expires, bk)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveItem deletes key.
func (s *SQLite) RemoveItem(ctx context.Context, browserID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE browser = ? AND key = ?`, browserKey(browserID), key)
	return err
}

// Clear deletes every key of the browser.
func (s *SQLite) Clear(ctx context.Context, browserID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE browser = ?`, browserKey(browserID))
	return err
}

// CleanupExpired removes all expired rows and returns how many were deleted.
func (s *SQLite) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("removed expired local storage rows", "count", n)
	}
	return n, nil
}

// Janitor runs CleanupExpired every interval until ctx is done.
func Janitor(ctx context.Context, s *SQLite, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.CleanupExpired(ctx); err != nil {
				slog.Error("local storage cleanup failed", "error", err)
			}
		}
	}
}
