package peripheral

import "sync"

// Store is the authoritative session/attendance table for the current
// power cycle. It is volatile: constructing a new Store is the moral
// equivalent of a device reboot.
//
// A single connected controller at a time is the realistic topology, so
// the mutex only has to serialize the request loop against the periodic
// eviction tick.
type Store struct {
	mu       sync.Mutex
	capacity int

	sessions map[string]Session
	records  map[string][]AttendanceRecord

	// order preserves creation order so snapshots are deterministic.
	order []string
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		sessions: make(map[string]Session),
		records:  make(map[string][]AttendanceRecord),
	}
}

// CreateSession inserts a session. The write is dropped when the table is
// full; there is no response channel to report that on, callers only see
// the WriteResult locally.
func (s *Store) CreateSession(id, courseCode, courseName string, expiry int64) WriteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Capacity is checked before the existence lookup: a full table drops
	// every create, even one that would only refresh an existing id.
	if len(s.sessions) >= s.capacity {
		return dropped(DropCapacityExceeded)
	}
	if _, exists := s.sessions[id]; !exists {
		s.order = append(s.order, id)
	}
	s.sessions[id] = Session{
		ID:         id,
		CourseCode: courseCode,
		CourseName: courseName,
		Expiry:     expiry,
	}
	return accepted()
}

// MarkAttendance appends a record to a session. Dropped when the session
// is unknown or the mark's timestamp is past the session expiry. No
// duplicate suppression happens here; that is a client responsibility.
func (s *Store) MarkAttendance(sessionID, name, participantKey string, timestamp int64) WriteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return dropped(DropUnknownSession)
	}
	if timestamp > sess.Expiry {
		return dropped(DropSessionExpired)
	}
	s.records[sessionID] = append(s.records[sessionID], AttendanceRecord{
		Name:           name,
		ParticipantKey: participantKey,
		Timestamp:      timestamp,
	})
	return accepted()
}

// SnapshotSessions returns the sessions in creation order.
func (s *Store) SnapshotSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

// SnapshotAttendances returns every session with its records, keyed by
// session id.
func (s *Store) SnapshotAttendances() map[string]SessionRecords {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]SessionRecords, len(s.sessions))
	for id, sess := range s.sessions {
		recs := make([]AttendanceRecord, len(s.records[id]))
		copy(recs, s.records[id])
		out[id] = SessionRecords{Session: sess, Records: recs}
	}
	return out
}

// EvictExpired removes every session whose expiry <= now together with
// its records, one atomic step per session. Returns the removed ids.
func (s *Store) EvictExpired(now int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	kept := s.order[:0]
	for _, id := range s.order {
		if s.sessions[id].Expiry <= now {
			delete(s.sessions, id)
			delete(s.records, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
