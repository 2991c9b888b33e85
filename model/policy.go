// model/policy.go
package model

// PolicyRule is one declared authorization intent from the policy document.
// Role, action and resource compare case-insensitively; condition compares
// with all whitespace removed.
type PolicyRule struct {
	Role      string `json:"role" validate:"required"`
	Action    string `json:"action" validate:"required,httpverb"`
	Resource  string `json:"resource" validate:"required"`
	Condition string `json:"condition"`
}

// ImplementedPermission is one authorization behavior recovered from a controller.
type ImplementedPermission struct {
	Role      string `json:"role"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Condition string `json:"condition"`

	// Where the permission was found. Not part of the wire contract.
	Method     string `json:"-"`
	Controller string `json:"-"`
}

// ModuleDeclaration is one <Module> of the policy document.
type ModuleDeclaration struct {
	Name  string    `json:"name"`
	Rules []RawRule `json:"rules"`
}

// RawRule is a <Rule> element before flattening into a PolicyRule.
type RawRule struct {
	RuleID       string   `json:"rule_id,omitempty"`
	Effect       string   `json:"effect,omitempty"`
	Role         string   `json:"role"`
	Action       string   `json:"action"`
	Resource     string   `json:"resource"`
	Name         string   `json:"name,omitempty"`
	Restrictions []string `json:"restrictions,omitempty"`
}
