package auth

import (
	"context"
	"database/sql"
	"errors"

	"BEAM-backend/internal/platform/db"
)

type User struct {
	ID        string
	Email     string
	CreatedAt string
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	// FindOrCreate returns the user for email, inserting a row with
	// newID when none exists yet. Retried completions must map to the
	// same user, never a second row.
	FindOrCreate(ctx context.Context, email, newID string) (*User, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) UserStore {
	return &Store{db: conn}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	var out *User
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		u, err := getByEmail(ctx, tx, email)
		out = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindOrCreate(ctx context.Context, email, newID string) (*User, error) {
	var out *User
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		u, err := getByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if u != nil {
			out = u
			return nil
		}

		const q = `
INSERT INTO users (id, email, created_at)
VALUES (?, ?, NOW(6))
`
		if _, err := tx.ExecContext(ctx, q, newID, email); err != nil {
			return err
		}
		out = &User{ID: newID, Email: email}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getByEmail(ctx context.Context, q db.DBTX, email string) (*User, error) {
	const query = `
SELECT id, email, created_at
FROM users
WHERE email = ?
LIMIT 1
`
	var u User
	err := q.QueryRowContext(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
