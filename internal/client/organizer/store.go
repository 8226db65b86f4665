package organizer

import (
	"context"
	"database/sql"
	"errors"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// UpsertSession inserts the header row or refreshes its course fields.
// CreatedAt and OwnerID are write-once: a merge from a later fetch never
// rewrites local history.
func (s *Store) UpsertSession(ctx context.Context, sess OrganizerSession) error {
	const q = `
	INSERT INTO organizer_sessions (session_id, owner_id, course_code, course_name, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
	course_code = excluded.course_code,
	course_name = excluded.course_name`
	_, err := s.db.ExecContext(ctx, q,
		sess.SessionID, sess.OwnerID, sess.CourseCode, sess.CourseName, sess.CreatedAt)
	return err
}

// InsertRecord persists one attendance record. Idempotent: the row is
// keyed by (session_id, participant_key, marked_at), so re-inserting the
// same record on a repeated fetch is a no-op rather than a duplicate.
func (s *Store) InsertRecord(ctx context.Context, sessionID string, rec AttendanceRecord) error {
	const q = `
	INSERT OR IGNORE INTO attendance_records (session_id, participant_key, name, marked_at)
	VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, sessionID, rec.ParticipantKey, rec.Name, rec.Timestamp)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*OrganizerSession, error) {
	const q = `
	SELECT session_id, owner_id, course_code, course_name, created_at
	FROM organizer_sessions WHERE session_id = ?`
	var sess OrganizerSession
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&sess.SessionID, &sess.OwnerID, &sess.CourseCode, &sess.CourseName, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recs, err := s.listRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Records = recs
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context, ownerID string) ([]OrganizerSession, error) {
	const q = `
	SELECT session_id, owner_id, course_code, course_name, created_at
	FROM organizer_sessions
	WHERE owner_id = ?
	ORDER BY created_at DESC, session_id`
	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrganizerSession
	for rows.Next() {
		var sess OrganizerSession
		if err := rows.Scan(&sess.SessionID, &sess.OwnerID, &sess.CourseCode, &sess.CourseName, &sess.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		recs, err := s.listRecords(ctx, out[i].SessionID)
		if err != nil {
			return nil, err
		}
		out[i].Records = recs
	}
	return out, nil
}

func (s *Store) CountRecords(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

func (s *Store) listRecords(ctx context.Context, sessionID string) ([]AttendanceRecord, error) {
	const q = `
	SELECT name, participant_key, marked_at
	FROM attendance_records
	WHERE session_id = ?
	ORDER BY marked_at, participant_key`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.Name, &rec.ParticipantKey, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
