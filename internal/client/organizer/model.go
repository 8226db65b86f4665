package organizer

// OrganizerSession is one durable replica row, keyed by session id. It
// persists indefinitely, including after the peripheral has evicted the
// session.
type OrganizerSession struct {
	SessionID  string
	OwnerID    string
	CourseCode string
	CourseName string
	CreatedAt  int64
	Records    []AttendanceRecord
}

type AttendanceRecord struct {
	Name           string
	ParticipantKey string
	Timestamp      int64
}
