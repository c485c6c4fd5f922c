package model

import (
	"encoding/json"
	"time"
)

// AuditEntry records an administrative action. Entries arrive over the push
// channel or are appended locally by the admin console.
type AuditEntry struct {
	AdminID    string          `json:"adminId"`
	Action     string          `json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   string          `json:"targetId"`
	Timestamp  time.Time       `json:"timestamp"`
	Details    json.RawMessage `json:"details,omitempty"`
}
