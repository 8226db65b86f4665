package organizer

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"BEAM-backend/internal/client/connection"
	"BEAM-backend/internal/wire"
)

// Service is the organizer-side reconciliation engine. The replica it
// writes is append/merge-only: sessions the peripheral has forgotten
// (evicted, or lost to a power cycle) stay in the replica untouched.
type Service struct {
	store *Store
	now   func() int64
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: func() int64 { return time.Now().Unix() }}
}

// CreateSession mints a session, records it locally, then pushes it to
// the peripheral. The local insert happens first so the session is
// visible even when the push or a later fetch fails; the write itself is
// fire-and-forget, a full peripheral silently drops it.
func (s *Service) CreateSession(ctx context.Context, p connection.Peripheral, ownerID, courseCode, courseName string, validFor time.Duration) (OrganizerSession, error) {
	now := s.now()
	sess := OrganizerSession{
		SessionID:  newSessionID(),
		OwnerID:    ownerID,
		CourseCode: courseCode,
		CourseName: courseName,
		CreatedAt:  now,
	}

	if err := s.store.UpsertSession(ctx, sess); err != nil {
		return OrganizerSession{}, fmt.Errorf("replica insert: %w", err)
	}

	payload, err := wire.Marshal(wire.CreateSessionRequest{
		SessionID:       sess.SessionID,
		CourseCode:      courseCode,
		CourseName:      courseName,
		ExpiryTimestamp: now + int64(validFor/time.Second),
	})
	if err != nil {
		return OrganizerSession{}, err
	}
	if err := p.WriteNoResponse(ctx, wire.CharCreateSession, payload); err != nil {
		// The replica row stays: the session exists locally even if the
		// peripheral never heard about it.
		return sess, fmt.Errorf("push session: %w", err)
	}
	return sess, nil
}

// SyncAttendances fetches the attendance snapshot and merges it into the
// replica. Record persistence is idempotent, so re-running the merge
// against an unchanged peripheral adds nothing. A failure partway
// through leaves a header with a subset of records; the next sync
// completes the set.
func (s *Service) SyncAttendances(ctx context.Context, p connection.Peripheral, ownerID string) error {
	raw, err := p.Read(ctx, wire.CharListAttendances)
	if err != nil {
		return fmt.Errorf("fetch attendances: %w", err)
	}

	var snapshot map[string]wire.SessionAttendances
	if err := wire.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("fetch attendances: %w", err)
	}

	for id, sa := range snapshot {
		err := s.store.UpsertSession(ctx, OrganizerSession{
			SessionID:  id,
			OwnerID:    ownerID,
			CourseCode: sa.CourseCode,
			CourseName: sa.CourseName,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return fmt.Errorf("merge session %s: %w", id, err)
		}
		for _, entry := range sa.Attendances {
			err := s.store.InsertRecord(ctx, id, AttendanceRecord{
				Name:           entry.Name,
				ParticipantKey: entry.ParticipantKey,
				Timestamp:      entry.Timestamp,
			})
			if err != nil {
				return fmt.Errorf("merge record %s/%s: %w", id, entry.ParticipantKey, err)
			}
		}
	}
	log.Printf("[INFO] organizer: merged %d session(s) from peripheral", len(snapshot))
	return nil
}

// Sessions reads the replica; it never touches the peripheral.
func (s *Service) Sessions(ctx context.Context, ownerID string) ([]OrganizerSession, error) {
	return s.store.ListSessions(ctx, ownerID)
}

func newSessionID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
