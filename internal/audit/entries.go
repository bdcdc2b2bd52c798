package audit

import (
	"strconv"
	"time"
)

// Command outcome values stored in details.status.
const (
	StatusAccepted = "accepted"
	StatusFailed   = "failed"
)

// CommandEntry describes one arm/disarm attempt against a Blink network.
type CommandEntry struct {
	Command   string
	Index     int
	NetworkID int64 // zero when the index did not resolve
	CommandID int64 // Blink's command id, zero on failure
	Source    string
	UserID    string
	Err       error
	Latency   time.Duration
}

// NewCommandLog builds the audit entry for a network command.
func NewCommandLog(e CommandEntry) *AuditLog {
	details := map[string]any{
		"command":    e.Command,
		"index":      e.Index,
		"status":     StatusAccepted,
		"latency_ms": e.Latency.Milliseconds(),
	}
	if e.CommandID != 0 {
		details["command_id"] = e.CommandID
	}
	if e.Err != nil {
		details["status"] = StatusFailed
		details["error"] = e.Err.Error()
	}

	log := &AuditLog{
		Action:     ActionCommand,
		EntityType: EntityNetwork,
		UserID:     e.UserID,
		Source:     e.Source,
		Details:    details,
	}
	if e.NetworkID != 0 {
		log.EntityID = strconv.FormatInt(e.NetworkID, 10)
	}
	return log
}

// NewLoginLog builds the audit entry for a Blink account login.
// accountID is zero when login failed before an account was known.
func NewLoginLog(accountID int64, source string, verified bool, err error) *AuditLog {
	details := map[string]any{
		"status":   StatusAccepted,
		"verified": verified,
	}
	if err != nil {
		details["status"] = StatusFailed
		details["error"] = err.Error()
	}

	log := &AuditLog{
		Action:     ActionLogin,
		EntityType: EntityAccount,
		Source:     source,
		Details:    details,
	}
	if accountID != 0 {
		log.EntityID = strconv.FormatInt(accountID, 10)
	}
	return log
}
