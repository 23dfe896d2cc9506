package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCreateUser    AuditAction = "CREATE_USER"
	AuditActionCreateAccount AuditAction = "CREATE_ACCOUNT"
	AuditActionCloseAccount  AuditAction = "CLOSE_ACCOUNT"
	AuditActionUseBalance    AuditAction = "USE_BALANCE"
	AuditActionCancelBalance AuditAction = "CANCEL_BALANCE"
)

// AuditLog records a single audited write request.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
