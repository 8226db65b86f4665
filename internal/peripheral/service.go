package peripheral

import (
	"log"

	"BEAM-backend/internal/wire"
)

// Service decodes wire payloads and applies them to the store. Write
// endpoints have no response channel: a malformed or dropped request is
// logged and discarded with no observable effect.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) HandleCreateSession(payload string) WriteResult {
	var req wire.CreateSessionRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		log.Printf("[WARN] create-session: dropping malformed payload: %v", err)
		return WriteResult{}
	}
	if req.SessionID == "" {
		log.Printf("[WARN] create-session: dropping request without sessionId")
		return WriteResult{}
	}

	res := s.store.CreateSession(req.SessionID, req.CourseCode, req.CourseName, req.ExpiryTimestamp)
	if !res.Accepted {
		log.Printf("[INFO] create-session %s dropped: %s", req.SessionID, res.Reason)
	}
	return res
}

func (s *Service) HandleMarkAttendance(payload string) WriteResult {
	var req wire.MarkAttendanceRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		log.Printf("[WARN] mark-attendance: dropping malformed payload: %v", err)
		return WriteResult{}
	}
	if req.SessionID == "" || req.ParticipantKey == "" {
		log.Printf("[WARN] mark-attendance: dropping request with missing fields")
		return WriteResult{}
	}

	res := s.store.MarkAttendance(req.SessionID, req.Name, req.ParticipantKey, req.Timestamp)
	if !res.Accepted {
		log.Printf("[INFO] mark-attendance %s/%s dropped: %s", req.SessionID, req.ParticipantKey, res.Reason)
	}
	return res
}

func (s *Service) ReadSessions() (string, error) {
	sessions := s.store.SnapshotSessions()
	entries := make([]wire.SessionEntry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, wire.SessionEntry{
			SessionID:       sess.ID,
			CourseCode:      sess.CourseCode,
			CourseName:      sess.CourseName,
			ExpiryTimestamp: sess.Expiry,
		})
	}
	return wire.Marshal(entries)
}

func (s *Service) ReadAttendances() (string, error) {
	snapshot := s.store.SnapshotAttendances()
	out := make(map[string]wire.SessionAttendances, len(snapshot))
	for id, sr := range snapshot {
		entries := make([]wire.AttendanceEntry, 0, len(sr.Records))
		for _, rec := range sr.Records {
			entries = append(entries, wire.AttendanceEntry{
				Name:           rec.Name,
				ParticipantKey: rec.ParticipantKey,
				Timestamp:      rec.Timestamp,
			})
		}
		out[id] = wire.SessionAttendances{
			SessionID:       sr.Session.ID,
			CourseCode:      sr.Session.CourseCode,
			CourseName:      sr.Session.CourseName,
			ExpiryTimestamp: sr.Session.Expiry,
			Attendances:     entries,
		}
	}
	return wire.Marshal(out)
}
