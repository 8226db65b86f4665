package peripheral

const (
	// DefaultCapacity matches the device firmware's session table size.
	DefaultCapacity = 5

	DefaultEvictionIntervalSec = 30
)

type Session struct {
	ID         string
	CourseCode string
	CourseName string
	// Expiry is integer seconds since the epoch, compared directly.
	Expiry int64
}

type AttendanceRecord struct {
	Name           string
	ParticipantKey string
	Timestamp      int64
}

// SessionRecords pairs a session with its accepted records, as returned
// by SnapshotAttendances.
type SessionRecords struct {
	Session Session
	Records []AttendanceRecord
}

// DropReason classifies a silently dropped write. The wire never carries
// it; it exists so the store's accept/drop logic is testable on its own.
type DropReason string

const (
	DropCapacityExceeded DropReason = "CAPACITY_EXCEEDED"
	DropUnknownSession   DropReason = "UNKNOWN_SESSION"
	DropSessionExpired   DropReason = "SESSION_EXPIRED"
)

type WriteResult struct {
	Accepted bool
	Reason   DropReason
}

func accepted() WriteResult            { return WriteResult{Accepted: true} }
func dropped(r DropReason) WriteResult { return WriteResult{Reason: r} }
