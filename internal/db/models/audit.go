package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAudit records one login attempt outcome. The audit trail is
// append-only; entries are never updated.
type LoginAudit struct {
	// ID is the unique identifier of the audit entry.
	ID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	// Method is the authentication method, e.g. "saml-employee".
	Method string `gorm:"size:40;not null;index"`
	// Result is "success" or "failure".
	Result string `gorm:"size:20;not null"`
	// UserID is the resolved person or device id, empty on failure.
	UserID string `gorm:"size:64;index"`
	// Detail carries a short failure description.
	Detail string `gorm:"size:255"`
	// CreatedAt is the attempt timestamp (managed by GORM).
	CreatedAt time.Time
}

// NewLoginAudit builds an audit entry for a login attempt.
func NewLoginAudit(method string, err error, userID string) *LoginAudit {
	entry := &LoginAudit{
		ID:     uuid.New(),
		Method: method,
		Result: "success",
		UserID: userID,
	}

	if err != nil {
		entry.Result = "failure"
		entry.Detail = err.Error()
	}

	return entry
}
