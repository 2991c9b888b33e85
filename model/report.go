// model/report.go
package model

import "time"

// ReconciliationResult is the wire contract of a check.
type ReconciliationResult struct {
	RedundantRule []ImplementedPermission `json:"redundantRule"`
	LackRule      []PolicyRule            `json:"lackRule"`
}

// Unresolved describes a service or policy file the resolver could not locate.
type Unresolved struct {
	Kind         string   `json:"kind"` // "service" or "policy"
	Controller   string   `json:"controller"`
	Names        []string `json:"names"`
	ImportPath   string   `json:"import_path,omitempty"`
	CheckedPaths []string `json:"checked_paths,omitempty"`
	Reason       string   `json:"reason"`
}

type CheckStats struct {
	ControllerFiles   int `json:"controller_files"`
	MethodsSeen       int `json:"methods_seen"`
	Permissions       int `json:"permissions"`
	IncompleteMethods int `json:"incomplete_methods"`
	Rules             int `json:"rules"`
	OracleFailures    int `json:"oracle_failures"`
}

// CheckReport is what one check run returns and what gets stored.
type CheckReport struct {
	CheckID string `json:"checkId"`
	ReconciliationResult
	Warnings    []string      `json:"warnings,omitempty"`
	Unresolved  []Unresolved  `json:"unresolved,omitempty"`
	Stats       CheckStats    `json:"stats"`
	Fingerprint string        `json:"fingerprint"`
	RequestedBy string        `json:"requested_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Duration    time.Duration `json:"duration"`
}

// ReportSummary is the list view of stored reports.
type ReportSummary struct {
	CheckID        string    `json:"checkId"`
	Fingerprint    string    `json:"fingerprint"`
	RedundantCount int       `json:"redundant_count"`
	LackCount      int       `json:"lack_count"`
	RequestedBy    string    `json:"requested_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
