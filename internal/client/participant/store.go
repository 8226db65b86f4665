package participant

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, m MarkedSession) error {
	const q = `
	INSERT OR IGNORE INTO marked_sessions (session_id, course_code, course_name, expiry, marked_at)
	VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, m.SessionID, m.CourseCode, m.CourseName, m.Expiry, m.MarkedAt)
	return err
}

func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM marked_sessions WHERE session_id = ? LIMIT 1`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkedIDs returns the set of session ids already marked.
func (s *Store) MarkedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM marked_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]MarkedSession, error) {
	const q = `
	SELECT session_id, course_code, course_name, expiry, marked_at
	FROM marked_sessions
	ORDER BY marked_at DESC, session_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarkedSession
	for rows.Next() {
		var m MarkedSession
		if err := rows.Scan(&m.SessionID, &m.CourseCode, &m.CourseName, &m.Expiry, &m.MarkedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
