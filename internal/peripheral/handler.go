package peripheral

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"BEAM-backend/internal/wire"
)

type Handler struct{ svc *Service }

// RegisterRoutes exposes the four characteristics under the fixed service
// identifier, plus the live feed. Write characteristics always answer
// 204: the link has no application-level ack, so the HTTP status must not
// leak the store outcome. The characteristic endpoints carry no auth;
// liveGuard protects only the dashboard feed.
func RegisterRoutes(r gin.IRoutes, svc *Service, liveGuard gin.HandlerFunc) {
	h := &Handler{svc: svc}

	base := "/services/" + wire.ServiceUUID + "/characteristics/"
	r.POST(base+wire.CharCreateSession, h.WriteCreateSession)
	r.POST(base+wire.CharMarkAttendance, h.WriteMarkAttendance)
	r.GET(base+wire.CharListSessions, h.ReadSessions)
	r.GET(base+wire.CharListAttendances, h.ReadAttendances)

	if liveGuard != nil {
		r.GET("/live", liveGuard, h.Live)
	} else {
		r.GET("/live", h.Live)
	}
}

func (h *Handler) WriteCreateSession(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[WARN] create-session: cannot read body: %v", err)
		c.Status(http.StatusNoContent)
		return
	}
	h.svc.HandleCreateSession(string(body))
	c.Status(http.StatusNoContent)
}

func (h *Handler) WriteMarkAttendance(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[WARN] mark-attendance: cannot read body: %v", err)
		c.Status(http.StatusNoContent)
		return
	}
	h.svc.HandleMarkAttendance(string(body))
	c.Status(http.StatusNoContent)
}

func (h *Handler) ReadSessions(c *gin.Context) {
	payload, err := h.svc.ReadSessions()
	if err != nil {
		log.Printf("[ERROR] list-sessions: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.String(http.StatusOK, payload)
}

func (h *Handler) ReadAttendances(c *gin.Context) {
	payload, err := h.svc.ReadAttendances()
	if err != nil {
		log.Printf("[ERROR] list-attendances: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.String(http.StatusOK, payload)
}

// --- live feed ---

var upgrader = websocket.Upgrader{
	// The emulator serves the organizer dashboard from arbitrary dev
	// origins; the feed itself is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type liveFrame struct {
	Sessions []wire.SessionEntry `json:"sessions"`
	Counts   map[string]int      `json:"counts"`
}

// Live upgrades to a websocket and pushes a store snapshot every second
// until the client goes away.
func (h *Handler) Live(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WARN] live: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(h.snapshotFrame()); err != nil {
			log.Printf("[INFO] live: client disconnected: %v", err)
			return
		}
	}
}

func (h *Handler) snapshotFrame() liveFrame {
	frame := liveFrame{Counts: make(map[string]int)}
	for id, sr := range h.svc.Store().SnapshotAttendances() {
		frame.Sessions = append(frame.Sessions, wire.SessionEntry{
			SessionID:       sr.Session.ID,
			CourseCode:      sr.Session.CourseCode,
			CourseName:      sr.Session.CourseName,
			ExpiryTimestamp: sr.Session.Expiry,
		})
		frame.Counts[id] = len(sr.Records)
	}
	return frame
}
