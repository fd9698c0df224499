package sessions

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

var ErrSessionNotFound = errors.New("session not found")

//go:embed migrations/*.sql
var migrations embed.FS

const driverName = "sqlite3_sessions"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// lower() only folds ASCII
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// Store keeps sessions in a SQLite database. A session is written as a whole
// by Save.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// DSNForFile returns the DSN used for an on-disk database.
func DSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite session store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path), nil
}

// Open opens the database at path, creating its directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create session directory")
	}
	dsn, err := DSNForFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(dsn)
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite session store: empty dsn")
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return err
	}
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return errors.Wrap(err, "could not load session store migrations")
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return errors.Wrap(err, "could not migrate session store")
	}
	for _, r := range results {
		log.Debug().Int64("version", r.Source.Version).Dur("duration", r.Duration).Msg("applied session store migration")
	}
	return nil
}

func (s *Store) ensureOpen() error {
	if s.closed {
		return errors.New("sqlite session store: closed")
	}
	return nil
}

// Save writes the session and replaces its messages.
func (s *Store) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.New("cannot save a session without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (id, title, created_at_ms, updated_at_ms) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at_ms = excluded.updated_at_ms`,
		session.ID, session.Title, toMillis(session.CreatedAt), toMillis(session.UpdatedAt))
	if err != nil {
		return errors.Wrapf(err, "could not save session %s", session.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	for i, m := range session.Messages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, role, content, timestamp_ms) VALUES (?, ?, ?, ?, ?)`,
			session.ID, i, string(m.Role), m.Content, toMillis(m.Timestamp))
		if err != nil {
			return errors.Wrapf(err, "could not save message %d of session %s", i, session.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Str("session_id", session.ID).Int("messages", len(session.Messages)).Msg("saved session")
	return nil
}

// Get loads a session with its messages.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	session, err := s.getLocked(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	return session, err
}

func (s *Store) loadMessages(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp_ms FROM messages WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []Message
	for rows.Next() {
		var role string
		var ts int64
		m := Message{}
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, err
		}
		r, err := conversation.ParseRole(role)
		if err != nil {
			return nil, errors.Wrapf(err, "session %s", id)
		}
		m.Role = r
		m.Timestamp = fromMillis(ts)
		ret = append(ret, m)
	}
	return ret, rows.Err()
}

// List returns all sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions ORDER BY updated_at_ms DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ret := make([]*Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.getLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		ret = append(ret, session)
	}
	return ret, nil
}

func (s *Store) getLocked(ctx context.Context, id string) (*Session, error) {
	session := &Session{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT title, created_at_ms, updated_at_ms FROM sessions WHERE id = ?`, id).
		Scan(&session.Title, &created, &updated)
	if err != nil {
		return nil, err
	}
	session.CreatedAt = fromMillis(created)
	session.UpdatedAt = fromMillis(updated)
	session.Messages, err = s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Rename sets the title of a session.
func (s *Store) Rename(ctx context.Context, id string, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at_ms = ? WHERE id = ?`,
		title, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// SearchResult is one session matching a query. Matches counts the matching
// messages, plus one when the title matches.
type SearchResult struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Title     string `json:"title" yaml:"title"`
	Matches   int    `json:"matches" yaml:"matches"`
}

// Search finds sessions whose title or messages contain query, ignoring case.
// Both sides are lower-cased with strings.ToLower, so non-ASCII letters match
// too. Results are ranked by Matches, then by recency.
func (s *Store) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.title, s.updated_at_ms,
       (CASE WHEN fold(s.title) LIKE ? ESCAPE '\' THEN 1 ELSE 0 END) +
       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id AND fold(m.content) LIKE ? ESCAPE '\') AS matches
FROM sessions s`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	type hit struct {
		SearchResult
		updated int64
	}
	var hits []hit
	for rows.Next() {
		h := hit{}
		if err := rows.Scan(&h.SessionID, &h.Title, &h.updated, &h.Matches); err != nil {
			return nil, err
		}
		if h.Matches > 0 {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Matches != hits[j].Matches {
			return hits[i].Matches > hits[j].Matches
		}
		return hits[i].updated > hits[j].updated
	})
	ret := make([]SearchResult, len(hits))
	for i, h := range hits {
		ret[i] = h.SearchResult
	}
	return ret, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
