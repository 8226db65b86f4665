package wire

// The peripheral exposes one service with four characteristics. The
// identifiers are fixed and versionless; they must match the device
// firmware exactly.
const (
	ServiceUUID = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"

	// Write characteristics (write-without-response, no reply payload).
	CharCreateSession  = "beb5483e-36e1-4688-b7f5-ea07361b26a8"
	CharMarkAttendance = "beb5483e-36e1-4688-b7f5-ea07361b26a9"

	// Read characteristics.
	CharListAttendances = "beb5483e-36e1-4688-b7f5-ea07361b26aa"
	CharListSessions    = "beb5483f-36e1-4688-b7f5-ea07361b26ab"
)

// DeviceName is the advertised name the clients scan for.
const DeviceName = "BEAM-Attendance"

type CreateSessionRequest struct {
	SessionID       string `json:"sessionId"`
	CourseCode      string `json:"courseCode"`
	CourseName      string `json:"courseName"`
	ExpiryTimestamp int64  `json:"expiryTimestamp"`
}

type MarkAttendanceRequest struct {
	SessionID      string `json:"sessionId"`
	Name           string `json:"name"`
	ParticipantKey string `json:"participantKey"`
	Timestamp      int64  `json:"timestamp"`
}

// SessionEntry is one element of the list-sessions response.
type SessionEntry struct {
	SessionID       string `json:"sessionId"`
	CourseCode      string `json:"courseCode"`
	CourseName      string `json:"courseName"`
	ExpiryTimestamp int64  `json:"expiryTimestamp"`
}

type AttendanceEntry struct {
	Name           string `json:"name"`
	ParticipantKey string `json:"participantKey"`
	Timestamp      int64  `json:"timestamp"`
}

// SessionAttendances is one value of the list-attendances response,
// keyed by session id.
type SessionAttendances struct {
	SessionID       string            `json:"sessionId"`
	CourseCode      string            `json:"courseCode"`
	CourseName      string            `json:"courseName"`
	ExpiryTimestamp int64             `json:"expiryTimestamp"`
	Attendances     []AttendanceEntry `json:"attendances"`
}
