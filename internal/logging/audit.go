package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a mission audit event.
type AuditEventType string

const (
	// Session events
	AuditLogin          AuditEventType = "session_login"
	AuditLoginFailed    AuditEventType = "session_login_failed"
	AuditLogout         AuditEventType = "session_logout"
	AuditSessionRestore AuditEventType = "session_restore"

	// Record events
	AuditRecordCreate AuditEventType = "record_create"
	AuditRecordFailed AuditEventType = "record_failed"
	AuditRecordReject AuditEventType = "record_reject"

	// Connectivity
	AuditProbe AuditEventType = "probe"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent is one JSON line in <logs dir>/<date>_audit.log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`               // Unix milliseconds
	EventType  AuditEventType         `json:"event"`            // Event name
	Category   string                 `json:"cat"`              // Log category
	UserID     string                 `json:"user,omitempty"`   // Acting user
	Target     string                 `json:"target,omitempty"` // Collection or email
	RecordID   string                 `json:"record,omitempty"` // Created record id
	Success    bool                   `json:"success"`          // Operation succeeded
	DurationMs int64                  `json:"dur_ms,omitempty"` // Duration in milliseconds
	Error      string                 `json:"error,omitempty"`  // Error message if failed
	Message    string                 `json:"msg,omitempty"`    // Human-readable message
	Fields     map[string]interface{} `json:"fields,omitempty"` // Additional structured fields
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes audit events, optionally scoped to a user.
type AuditLogger struct {
	userID string
}

// InitAudit opens the audit file. It is a no-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()
	if dir == "" {
		return fmt.Errorf("logging not initialized")
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithUser returns an audit logger scoped to a user.
func AuditWithUser(userID string) *AuditLogger {
	return &AuditLogger{userID: userID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.UserID == "" {
		event.UserID = a.userID
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Login records a login attempt for email.
func (a *AuditLogger) Login(email string, err error) {
	ev := AuditLogin
	if err != nil {
		ev = AuditLoginFailed
	}
	a.Log(AuditEvent{
		EventType: ev,
		Category:  string(CategorySession),
		Target:    email,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// Logout records a logout. remoteErr is informational; the local session is
// always cleared.
func (a *AuditLogger) Logout(remoteErr error) {
	a.Log(AuditEvent{
		EventType: AuditLogout,
		Category:  string(CategorySession),
		Success:   true,
		Error:     errString(remoteErr),
	})
}

// SessionRestored records a stored token resolving to a user.
func (a *AuditLogger) SessionRestored() {
	a.Log(AuditEvent{
		EventType: AuditSessionRestore,
		Category:  string(CategorySession),
		Success:   true,
	})
}

// RecordCreated records a successful create in collection.
func (a *AuditLogger) RecordCreated(collection, id string, d time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditRecordCreate,
		Category:   string(CategoryStore),
		Target:     collection,
		RecordID:   id,
		Success:    true,
		DurationMs: d.Milliseconds(),
	})
}

// RecordFailed records a create the backend refused.
func (a *AuditLogger) RecordFailed(collection string, err error, d time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditRecordFailed,
		Category:   string(CategoryStore),
		Target:     collection,
		Error:      errString(err),
		DurationMs: d.Milliseconds(),
	})
}

// RecordRejected records a create refused locally before any request.
func (a *AuditLogger) RecordRejected(collection, reason string) {
	a.Log(AuditEvent{
		EventType: AuditRecordReject,
		Category:  string(CategoryStore),
		Target:    collection,
		Message:   reason,
	})
}

// Probe records the connectivity probe outcome.
func (a *AuditLogger) Probe(err error, d time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditProbe,
		Category:   string(CategoryBoot),
		Success:    err == nil,
		Error:      errString(err),
		DurationMs: d.Milliseconds(),
	})
}
