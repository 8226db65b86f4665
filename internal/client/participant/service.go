package participant

import (
	"context"
	"fmt"
	"log"
	"time"

	"BEAM-backend/internal/client/connection"
	"BEAM-backend/internal/wire"
)

// Service is the participant-side reconciliation engine.
type Service struct {
	store *Store
	now   func() int64
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: func() int64 { return time.Now().Unix() }}
}

// FetchMarkable reads the session list from the peripheral and filters
// out every session already present in the local replica. That filter is
// the sole double-mark protection: the peripheral forgets everything on
// a power cycle, the replica does not.
func (s *Service) FetchMarkable(ctx context.Context, p connection.Peripheral) ([]MarkableSession, error) {
	raw, err := p.Read(ctx, wire.CharListSessions)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	var entries []wire.SessionEntry
	if err := wire.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	marked, err := s.store.MarkedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read replica: %w", err)
	}

	out := make([]MarkableSession, 0, len(entries))
	for _, e := range entries {
		if marked[e.SessionID] {
			continue
		}
		out = append(out, MarkableSession{
			SessionID:  e.SessionID,
			CourseCode: e.CourseCode,
			CourseName: e.CourseName,
			Expiry:     e.ExpiryTimestamp,
		})
	}
	return out, nil
}

// Mark writes the attendance and applies the local effect optimistically.
// The protocol offers no confirmation: a transport-level error skips the
// local apply and surfaces, but a peripheral-side silent drop (unknown or
// expired session) is indistinguishable from success, so the replica may
// record a mark the peripheral never stored. That window is accepted and
// bounded by the session's own expiry.
func (s *Service) Mark(ctx context.Context, p connection.Peripheral, sess MarkableSession, name, participantKey string) error {
	ts := s.now()
	payload, err := wire.Marshal(wire.MarkAttendanceRequest{
		SessionID:      sess.SessionID,
		Name:           name,
		ParticipantKey: participantKey,
		Timestamp:      ts,
	})
	if err != nil {
		return err
	}

	if err := p.WriteNoResponse(ctx, wire.CharMarkAttendance, payload); err != nil {
		// Transport failure: nothing was sent, do not apply locally.
		return fmt.Errorf("mark attendance: %w", err)
	}

	err = s.store.Insert(ctx, MarkedSession{
		SessionID:  sess.SessionID,
		CourseCode: sess.CourseCode,
		CourseName: sess.CourseName,
		Expiry:     sess.Expiry,
		MarkedAt:   ts,
	})
	if err != nil {
		// Surfaced but not rolled back: the wire write is already gone.
		log.Printf("[ERROR] participant: replica write failed for %s: %v", sess.SessionID, err)
		return fmt.Errorf("replica write: %w", err)
	}
	return nil
}

// History reads the replica only.
func (s *Service) History(ctx context.Context) ([]MarkedSession, error) {
	return s.store.List(ctx)
}
