package participant

// MarkedSession is one durable replica row per session this participant
// has personally marked. Once the peripheral has been power-cycled, this
// table is the only thing standing between the participant and a double
// mark.
type MarkedSession struct {
	SessionID  string
	CourseCode string
	CourseName string
	Expiry     int64
	MarkedAt   int64
}

// MarkableSession is a session discovered on the peripheral that the
// participant has not yet marked.
type MarkableSession struct {
	SessionID  string
	CourseCode string
	CourseName string
	Expiry     int64
}
