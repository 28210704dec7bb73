package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lmontagna/fisioagenda/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEventType represents different types of audit events
type AuditEventType string

const (
	EventLoginSuccess      AuditEventType = "LOGIN_SUCCESS"
	EventLoginFailure      AuditEventType = "LOGIN_FAILURE"
	EventSignupSuccess     AuditEventType = "SIGNUP_SUCCESS"
	EventLogout            AuditEventType = "LOGOUT"
	EventAccountLocked     AuditEventType = "ACCOUNT_LOCKED"
	EventRateLimitExceeded AuditEventType = "RATE_LIMIT_EXCEEDED"
	EventEndpointCall      AuditEventType = "ENDPOINT_CALL"
	EventVisitCreated      AuditEventType = "VISIT_CREATED"
	EventVisitDeleted      AuditEventType = "VISIT_DELETED"
	EventDepositAdded      AuditEventType = "DEPOSIT_ADDED"
	EventDepositRemoved    AuditEventType = "DEPOSIT_REMOVED"
	EventLegacyImport      AuditEventType = "LEGACY_IMPORT"
)

// AuditEvent represents an audit event to be logged
type AuditEvent struct {
	EventType AuditEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var auditLogger *log.Logger
var auditDB *gorm.DB

// SetAuditLoggerDB sets a gorm DB instance used by the audit logger.
// Call this during application startup (e.g. in main) after DB initialization.
func SetAuditLoggerDB(db *gorm.DB) {
	auditDB = db
}

func init() {
	auditLogger = log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	// Truncate very long values to prevent log flooding
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogAuditEvent logs an audit event to stdout and, best-effort, to the DB.
func LogAuditEvent(event AuditEvent) {
	// Sanitize all string fields to prevent log injection
	msg := fmt.Sprintf("Event=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)

	if len(event.Details) > 0 {
		// Don't log Details map directly to avoid injection
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}

	auditLogger.Println(msg)

	if auditDB != nil {
		var details datatypes.JSON
		if event.Details != nil {
			if b, err := json.Marshal(event.Details); err == nil {
				details = datatypes.JSON(b)
			}
		}

		entry := model.AuditLog{
			EventType: string(event.EventType),
			UserID:    event.UserID,
			Email:     sanitizeLogValue(event.Email),
			IP:        sanitizeLogValue(event.IP),
			UserAgent: sanitizeLogValue(event.UserAgent),
			Message:   sanitizeLogValue(event.Message),
			Details:   details,
		}

		// best-effort write; ignore errors but log them
		if err := auditDB.Create(&entry).Error; err != nil {
			auditLogger.Printf("Failed to persist audit event: %v", err)
		}
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(email, ip, userAgent, reason string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogRateLimitExceeded logs a rate limit violation
func LogRateLimitExceeded(email, ip, endpoint string) {
	LogAuditEvent(AuditEvent{
		EventType: EventRateLimitExceeded,
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded on %s", endpoint),
	})
}
