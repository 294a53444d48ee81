package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Audit event types.
const (
	EventDeleteAttempt    = "DELETE_ATTEMPT"
	EventDeleteBlocked    = "DELETE_BLOCKED"
	EventDeleteSuccess    = "DELETE_SUCCESS"
	EventDeleteFailed     = "DELETE_FAILED"
	EventDeleteValidation = "DELETE_VALIDATION"
)

// AuditLog appends security events to a plain text log, one line per event:
//
//	[<RFC3339 timestamp>] <EVENT_TYPE> | <SUCCESS|BLOCKED> | <path> | <reason>
//
// Write failures are swallowed: auditing must never block or fail the
// operation being audited.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog returns an audit log writing to path. An empty path yields a
// no-op log.
func NewAuditLog(path string) *AuditLog {
	if path != "" {
		_ = os.MkdirAll(filepath.Dir(path), 0755)
	}
	return &AuditLog{path: path}
}

// Record appends one event line. Safe for concurrent use.
func (a *AuditLog) Record(eventType, path string, success bool, reason string) {
	if a == nil || a.path == "" {
		return
	}

	status := "BLOCKED"
	if success {
		status = "SUCCESS"
	}
	line := fmt.Sprintf("[%s] %s | %s | %s | %s\n",
		time.Now().Format(time.RFC3339), eventType, status, path, reason)

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}

// Path returns the location of the audit log file.
func (a *AuditLog) Path() string {
	return a.path
}
