package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/artsy/internal/cookies"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store implements cookies.Store using SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New creates a new SQLite-based cookie store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cookie database: %w", err)
	}

	return store, nil
}

// NewWithDB creates a store using an existing database connection.
func NewWithDB(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize cookie tables: %w", err)
	}
	return store, nil
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cookies (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			secure INTEGER NOT NULL DEFAULT 0,
			http_only INTEGER NOT NULL DEFAULT 0,
			host_only INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(domain, name)
		);

		CREATE INDEX IF NOT EXISTS idx_cookies_domain ON cookies(domain);
		CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Set stores or updates a cookie.
func (s *Store) Set(ctx context.Context, cookie *cookies.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	if cookie.ID == "" {
		cookie.ID = uuid.New().String()
	}
	cookie.UpdatedAt = time.Now()
	if cookie.CreatedAt.IsZero() {
		cookie.CreatedAt = cookie.UpdatedAt
	}

	// Keep the original id and creation time when replacing
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cookies
		(id, domain, path, name, value, secure, http_only, host_only, expires_at, created_at, updated_at)
		VALUES (
			COALESCE((SELECT id FROM cookies WHERE domain = ? AND name = ?), ?),
			?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT created_at FROM cookies WHERE domain = ? AND name = ?), ?),
			?
		)
	`,
		cookie.Domain, cookie.Name, cookie.ID,
		cookie.Domain, cookie.Path, cookie.Name, cookie.Value,
		boolToInt(cookie.Secure), boolToInt(cookie.HttpOnly), boolToInt(cookie.HostOnly),
		nullMillis(cookie.Expires),
		cookie.Domain, cookie.Name, cookie.CreatedAt.UnixMilli(),
		cookie.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cookie: %w", err)
	}
	return nil
}

// Get retrieves a cookie by domain and name.
func (s *Store) Get(ctx context.Context, domain, name string) (*cookies.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cookies.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, path, name, value, secure, http_only, host_only, expires_at, created_at, updated_at
		FROM cookies
		WHERE domain = ? AND name = ?
	`, domain, name)

	return scanCookie(row)
}

// List returns cookies matching the query options.
func (s *Store) List(ctx context.Context, opts cookies.QueryOptions) ([]*cookies.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cookies.ErrStoreClosed
	}

	var conditions []string
	var args []any

	if opts.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, opts.Domain)
	}

	if opts.Name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, opts.Name)
	}

	if !opts.IncludeExpired {
		conditions = append(conditions, "(expires_at IS NULL OR expires_at > ?)")
		args = append(args, time.Now().UnixMilli())
	}

	query := "SELECT id, domain, path, name, value, secure, http_only, host_only, expires_at, created_at, updated_at FROM cookies"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY domain, path, name"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}
	defer rows.Close()

	return scanCookies(rows)
}

// Delete removes a specific cookie.
func (s *Store) Delete(ctx context.Context, domain, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE domain = ? AND name = ?`, domain, name)
	return err
}

// DeleteByDomain removes all cookies for a domain.
func (s *Store) DeleteByDomain(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE domain = ?`, domain)
	return err
}

// DeleteExpired removes all expired cookies and returns count.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, cookies.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM cookies WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Clear removes all cookies.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cookies.ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies`); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

// Count returns total number of cookies.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, cookies.ErrStoreClosed
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies`).Scan(&count)
	return count, err
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCookie(row scannable) (*cookies.Cookie, error) {
	var c cookies.Cookie
	var secure, httpOnly, hostOnly int
	var expires sql.NullInt64
	var created, updated int64

	err := row.Scan(
		&c.ID, &c.Domain, &c.Path, &c.Name, &c.Value,
		&secure, &httpOnly, &hostOnly, &expires,
		&created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cookies.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Secure = secure != 0
	c.HttpOnly = httpOnly != 0
	c.HostOnly = hostOnly != 0
	if expires.Valid {
		c.Expires = time.UnixMilli(expires.Int64)
	}
	c.CreatedAt = time.UnixMilli(created)
	c.UpdatedAt = time.UnixMilli(updated)

	return &c, nil
}

func scanCookies(rows *sql.Rows) ([]*cookies.Cookie, error) {
	var result []*cookies.Cookie
	for rows.Next() {
		c, err := scanCookie(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
