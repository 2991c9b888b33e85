// Package assembler merges per-method facts into ImplementedPermissions.
package assembler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

// Completeness decides which methods produce a permission.
type Completeness string

const (
	// CompletenessAll emits a method only when role, action, resource and condition are all known.
	CompletenessAll Completeness = "all"
	// CompletenessAny emits every method with at least one known fact, leaving the rest blank.
	CompletenessAny Completeness = "any"
)

// ParseCompleteness accepts "all" or "any"; empty means all.
func ParseCompleteness(s string) (Completeness, error) {
	switch Completeness(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompletenessAll:
		return CompletenessAll, nil
	case CompletenessAny:
		return CompletenessAny, nil
	}
	return "", fmt.Errorf("unknown completeness policy %q", s)
}

// Facts are the parallel method-keyed lists gathered for one controller.
// Role, action and resource count as known when non-empty. A condition
// counts as known whenever its key is present, since "" means unconditional.
type Facts struct {
	Roles      []map[string]string
	Actions    []map[string]string
	Resources  []map[string]string
	Conditions []map[string]string
}

// Assemble emits one permission per method and role. Methods dropped for
// missing facts are returned in incomplete, in first-seen order.
func Assemble(controller string, facts Facts, mode Completeness) (permissions []model.ImplementedPermission, incomplete []string) {
	roles := flatten(facts.Roles)
	actions := flatten(facts.Actions)
	resources := flatten(facts.Resources)
	conditions := flatten(facts.Conditions)

	for _, method := range unionKeys(facts.Roles, facts.Actions, facts.Resources, facts.Conditions) {
		role := roles[method]
		action := actions[method]
		resource := resources[method]
		condition, hasCondition := conditions[method]

		complete := role != "" && action != "" && resource != "" && hasCondition
		if !complete && mode != CompletenessAny {
			logger.Debug("Dropping method with incomplete facts",
				zap.String("controller", controller),
				zap.String("method", method),
				zap.String("role", role),
				zap.String("action", action),
				zap.String("resource", resource),
				zap.Bool("hasCondition", hasCondition))
			incomplete = append(incomplete, method)
			continue
		}
		if !complete && role == "" && action == "" && resource == "" && condition == "" {
			incomplete = append(incomplete, method)
			continue
		}

		for _, r := range splitRoles(role) {
			permissions = append(permissions, model.ImplementedPermission{
				Role:       r,
				Action:     action,
				Resource:   resource,
				Condition:  condition,
				Method:     method,
				Controller: controller,
			})
		}
	}
	return permissions, incomplete
}

// Join maps each key of mapping through its value into resolved, the way a
// controller method reaches an entity through the service method it calls.
// Keys whose target is not resolved are left out.
func Join(mapping []map[string]string, resolved map[string]string) []map[string]string {
	var out []map[string]string
	for _, m := range mapping {
		for key, via := range m {
			if via == "" {
				continue
			}
			if v, ok := resolved[via]; ok && v != "" {
				out = append(out, map[string]string{key: v})
			}
		}
	}
	return out
}

func flatten(list []map[string]string) map[string]string {
	out := make(map[string]string, len(list))
	for _, m := range list {
		for k, v := range m {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out
}

func unionKeys(lists ...[]map[string]string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, list := range lists {
		for _, m := range list {
			for k := range m {
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// splitRoles turns "ADMIN, MANAGER" into one entry per role. An empty role
// yields a single empty entry so that partial records survive in any mode.
func splitRoles(role string) []string {
	var out []string
	for _, r := range strings.Split(role, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
