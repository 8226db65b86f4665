package replica

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (and if needed creates) a client's durable replica. The
// replica outlives the app process and the peripheral's power cycles; it
// is the only durable record of sessions and marks.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open replica: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open replica: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS organizer_sessions (
		session_id  TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		course_code TEXT NOT NULL,
		course_name TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS attendance_records (
		session_id      TEXT NOT NULL,
		participant_key TEXT NOT NULL,
		name            TEXT NOT NULL,
		marked_at       INTEGER NOT NULL,
		PRIMARY KEY (session_id, participant_key, marked_at)
	);
	CREATE TABLE IF NOT EXISTS marked_sessions (
		session_id  TEXT PRIMARY KEY,
		course_code TEXT NOT NULL,
		course_name TEXT NOT NULL,
		expiry      INTEGER NOT NULL,
		marked_at   INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("replica schema: %w", err)
	}
	return db, nil
}
