// Package audit records who changed which event. Entries go through zerolog
// nested under an "audit" key so they can be routed apart from access logs.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/jeremytraini/auscal/internal/api/middleware"
	"github.com/rs/zerolog"
)

const (
	ActionEventCreate = "event.create"
	ActionEventUpdate = "event.update"
	ActionEventDelete = "event.delete"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resource_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Status     string            `json:"status"`
	Details    map[string]string `json:"details,omitempty"`
}

// Logger is safe to use as a nil pointer, which discards everything.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

// Log writes entry, stamping it if the caller did not.
func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	l.logger.Info().Interface("audit", entry).Msg(entry.Action)
}

// LogFromRequest fills the request id and client address from r.
func (l *Logger) LogFromRequest(r *http.Request, action, resourceID, status string, details map[string]string) {
	if l == nil {
		return
	}
	l.Log(Entry{
		Action:     action,
		ResourceID: resourceID,
		RequestID:  middleware.GetRequestID(r.Context()),
		ClientIP:   clientIP(r),
		Status:     status,
		Details:    details,
	})
}

// clientIP is the peer address. Forwarded headers are only trusted by the
// rate limiter, which knows the proxy list.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
