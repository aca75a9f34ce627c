// Package archive persists notions evicted from an idearium into SQLite
// with FTS5 full-text search, so trimmed-away context stays recallable.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
)

// Entry is one archived notion.
type Entry struct {
	ID         string `json:"id"`
	SessionKey string `json:"session_key"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Tokens     int    `json:"tokens"`
	ArchivedAt int64  `json:"archived_at"`
}

// SearchResult is a ranked lookup hit.
type SearchResult struct {
	Entry
	Score float64 `json:"score"`
}

// SearchOptions configures a lookup query.
type SearchOptions struct {
	MaxResults int    // top-K, default 10
	SessionKey string // restrict to one session, "" = all
	Role       string // restrict to one role, "" = all
}

// Store is the SQLite-backed archive. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("archive store opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notions (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tokens INTEGER NOT NULL DEFAULT 0,
			archived_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notions_session ON notions(session_key)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS notions_fts USING fts5(
			content,
			id UNINDEXED,
			session_key UNINDEXED,
			role UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put archives one notion. The row and its FTS entry commit together, so a
// nil return means the write is durable — the caller may then evict.
func (s *Store) Put(ctx context.Context, sessionKey string, n idearium.Notion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	// The FTS table has no primary key, so a re-archived ID must drop its
	// old row first or Search would return duplicates.
	if _, err := tx.ExecContext(ctx, "DELETE FROM notions_fts WHERE id = ?", n.ID); err != nil {
		return fmt.Errorf("delete stale fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO notions (id, session_key, role, content, tokens, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, sessionKey, string(n.Role), n.Content, n.TokenCount(), now); err != nil {
		return fmt.Errorf("insert notion: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notions_fts (content, id, session_key, role) VALUES (?, ?, ?, ?)`,
		n.Content, n.ID, sessionKey, string(n.Role)); err != nil {
		return fmt.Errorf("insert fts: %w", err)
	}

	return tx.Commit()
}

// Search runs a ranked full-text lookup over archived content (BM25,
// best first).
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	where := ""
	args := []interface{}{query}
	if opts.SessionKey != "" {
		where += " AND f.session_key = ?"
		args = append(args, opts.SessionKey)
	}
	if opts.Role != "" {
		where += " AND f.role = ?"
		args = append(args, opts.Role)
	}
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT f.id, f.session_key, f.role, f.content,
		       n.tokens, n.archived_at, bm25(notions_fts) AS rank
		FROM notions_fts f
		JOIN notions n ON n.id = f.id
		WHERE notions_fts MATCH ?%s
		ORDER BY rank
		LIMIT ?`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		if err := rows.Scan(&r.ID, &r.SessionKey, &r.Role, &r.Content,
			&r.Tokens, &r.ArchivedAt, &rank); err != nil {
			return nil, err
		}
		// bm25 returns lower-is-better negative ranks; flip to a
		// higher-is-better score.
		r.Score = -rank
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of archived notions, optionally per session.
func (s *Store) Count(ctx context.Context, sessionKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := "SELECT COUNT(*) FROM notions", []interface{}{}
	if sessionKey != "" {
		query += " WHERE session_key = ?"
		args = append(args, sessionKey)
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// Session binds the store to one session key as an idearium.Archiver.
func (s *Store) Session(key string) idearium.Archiver {
	return sessionArchiver{store: s, key: key}
}

type sessionArchiver struct {
	store *Store
	key   string
}

func (a sessionArchiver) Archive(ctx context.Context, n idearium.Notion) error {
	return a.store.Put(ctx, a.key, n)
}
