// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeReused    = "reused"
)

// CheckAuditLog records who ran which check and what it found.
type CheckAuditLog struct {
	Timestamp      time.Time       `json:"timestamp"`
	CheckID        string          `json:"check_id"`
	UserID         string          `json:"user_id"`
	Fingerprint    string          `json:"fingerprint"`
	Outcome        string          `json:"outcome"`
	RedundantCount int             `json:"redundant_count"`
	LackCount      int             `json:"lack_count"`
	OracleFailures int             `json:"oracle_failures"`
	Error          string          `json:"error,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
}
