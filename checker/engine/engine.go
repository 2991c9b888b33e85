// Package engine reconciles declared policy rules against implemented permissions.
package engine

import (
	"strings"

	"github.com/dev-mohitbeniwal/permcheck/model"
	helper_util "github.com/dev-mohitbeniwal/permcheck/util/helper"
)

// Equal is the matching relation: role, action and resource compare
// case-insensitively, conditions compare with all whitespace removed.
func Equal(rule model.PolicyRule, perm model.ImplementedPermission) bool {
	return strings.EqualFold(rule.Role, perm.Role) &&
		strings.EqualFold(rule.Action, perm.Action) &&
		strings.EqualFold(rule.Resource, perm.Resource) &&
		helper_util.StripWhitespace(rule.Condition) == helper_util.StripWhitespace(perm.Condition)
}

// Reconcile returns the permissions no rule declares (redundant) and the
// rules nothing implements (lacking). Both keep the order of their input
// and are never nil.
func Reconcile(rules []model.PolicyRule, permissions []model.ImplementedPermission) model.ReconciliationResult {
	return model.ReconciliationResult{
		RedundantRule: Redundant(rules, permissions),
		LackRule:      Lacking(rules, permissions),
	}
}

// Redundant filters permissions down to those without an equal rule.
func Redundant(rules []model.PolicyRule, permissions []model.ImplementedPermission) []model.ImplementedPermission {
	out := make([]model.ImplementedPermission, 0)
	for _, p := range permissions {
		declared := false
		for _, r := range rules {
			if Equal(r, p) {
				declared = true
				break
			}
		}
		if !declared {
			out = append(out, p)
		}
	}
	return out
}

// Lacking filters rules down to those without an equal permission.
func Lacking(rules []model.PolicyRule, permissions []model.ImplementedPermission) []model.PolicyRule {
	out := make([]model.PolicyRule, 0)
	for _, r := range rules {
		implemented := false
		for _, p := range permissions {
			if Equal(r, p) {
				implemented = true
				break
			}
		}
		if !implemented {
			out = append(out, r)
		}
	}
	return out
}
