package peripheral

import (
	"fmt"
	"testing"
)

func TestCapacityCeiling(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 5; i++ {
		res := s.CreateSession(fmt.Sprintf("S%d", i), "CSC10"+fmt.Sprint(i), "Course", 1000)
		if !res.Accepted {
			t.Fatalf("create %d: unexpectedly dropped: %s", i, res.Reason)
		}
	}

	res := s.CreateSession("S5", "CSC105", "One Too Many", 1000)
	if res.Accepted {
		t.Fatal("sixth create must be dropped")
	}
	if res.Reason != DropCapacityExceeded {
		t.Errorf("reason = %s, want %s", res.Reason, DropCapacityExceeded)
	}

	sessions := s.SnapshotSessions()
	if len(sessions) != 5 {
		t.Fatalf("snapshot has %d sessions, want 5", len(sessions))
	}
	// The surviving five are the first five created, in order.
	for i, sess := range sessions {
		if want := fmt.Sprintf("S%d", i); sess.ID != want {
			t.Errorf("sessions[%d].ID = %s, want %s", i, sess.ID, want)
		}
	}
}

func TestDuplicateCreateRefreshesUnderCapacity(t *testing.T) {
	s := NewStore(5)
	s.CreateSession("S1", "CSC101", "Intro", 1000)
	s.MarkAttendance("S1", "Ada", "U1", 10)

	if res := s.CreateSession("S1", "CSC101", "Intro v2", 2000); !res.Accepted {
		t.Fatalf("duplicate create under capacity dropped: %s", res.Reason)
	}

	sessions := s.SnapshotSessions()
	if len(sessions) != 1 || sessions[0].CourseName != "Intro v2" || sessions[0].Expiry != 2000 {
		t.Errorf("session fields not refreshed: %+v", sessions)
	}
	if len(s.SnapshotAttendances()["S1"].Records) != 1 {
		t.Error("refresh lost the session's records")
	}
}

func TestDuplicateCreateDroppedAtCapacity(t *testing.T) {
	s := NewStore(1)
	s.CreateSession("S1", "CSC101", "Intro", 1000)

	// A full table drops every create, duplicate id included.
	res := s.CreateSession("S1", "CSC101", "Intro v2", 2000)
	if res.Accepted {
		t.Fatal("duplicate create at capacity must be dropped")
	}
	if res.Reason != DropCapacityExceeded {
		t.Errorf("reason = %s, want %s", res.Reason, DropCapacityExceeded)
	}
	if got := s.SnapshotSessions()[0].CourseName; got != "Intro" {
		t.Errorf("dropped create mutated the session: %s", got)
	}
}

func TestMarkRespectsExpiry(t *testing.T) {
	now := int64(1000)
	s := NewStore(5)
	s.CreateSession("CSC101-A", "CSC101", "Intro", now+3600)

	if res := s.MarkAttendance("CSC101-A", "Ada", "U1", now+10); !res.Accepted {
		t.Fatalf("mark before expiry dropped: %s", res.Reason)
	}
	if res := s.MarkAttendance("CSC101-A", "Bob", "U2", now+4000); res.Accepted {
		t.Fatal("mark past expiry must be dropped")
	} else if res.Reason != DropSessionExpired {
		t.Errorf("reason = %s, want %s", res.Reason, DropSessionExpired)
	}

	snap := s.SnapshotAttendances()
	records := snap["CSC101-A"].Records
	if len(records) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(records))
	}
	if records[0].ParticipantKey != "U1" {
		t.Errorf("surviving record key = %s, want U1", records[0].ParticipantKey)
	}
}

func TestMarkUnknownSessionDropped(t *testing.T) {
	s := NewStore(5)
	res := s.MarkAttendance("nope", "Ada", "U1", 10)
	if res.Accepted {
		t.Fatal("mark on unknown session must be dropped")
	}
	if res.Reason != DropUnknownSession {
		t.Errorf("reason = %s, want %s", res.Reason, DropUnknownSession)
	}
}

func TestNoDuplicateSuppressionOnDevice(t *testing.T) {
	s := NewStore(5)
	s.CreateSession("S", "C", "N", 100)
	s.MarkAttendance("S", "Ada", "U1", 10)
	s.MarkAttendance("S", "Ada", "U1", 10)

	if got := len(s.SnapshotAttendances()["S"].Records); got != 2 {
		t.Errorf("got %d records, want 2: dedup is a client responsibility", got)
	}
}

func TestEvictionRemovesSessionAndRecordsTogether(t *testing.T) {
	s := NewStore(5)
	s.CreateSession("old", "C1", "N1", 100)
	s.CreateSession("live", "C2", "N2", 500)
	s.MarkAttendance("old", "Ada", "U1", 50)
	s.MarkAttendance("live", "Bob", "U2", 60)

	removed := s.EvictExpired(100) // expiry <= now evicts
	if len(removed) != 1 || removed[0] != "old" {
		t.Fatalf("removed = %v, want [old]", removed)
	}

	snap := s.SnapshotAttendances()
	if _, ok := snap["old"]; ok {
		t.Error("evicted session still visible in snapshot")
	}
	if len(snap["live"].Records) != 1 {
		t.Errorf("surviving session lost its records: %+v", snap["live"])
	}
	if s.Len() != 1 {
		t.Errorf("store length = %d, want 1", s.Len())
	}
}

func TestEvictionFreesCapacity(t *testing.T) {
	s := NewStore(1)
	s.CreateSession("a", "C", "N", 10)
	if res := s.CreateSession("b", "C", "N", 20); res.Accepted {
		t.Fatal("expected capacity drop")
	}
	s.EvictExpired(10)
	if res := s.CreateSession("b", "C", "N", 20); !res.Accepted {
		t.Fatalf("create after eviction dropped: %s", res.Reason)
	}
}

func TestSnapshotIsPointInTime(t *testing.T) {
	s := NewStore(5)
	s.CreateSession("S", "C", "N", 100)
	s.MarkAttendance("S", "Ada", "U1", 10)

	snap := s.SnapshotAttendances()
	s.MarkAttendance("S", "Bob", "U2", 20)

	if len(snap["S"].Records) != 1 {
		t.Error("snapshot mutated by a later write")
	}
}
