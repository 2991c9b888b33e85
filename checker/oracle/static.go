package oracle

import (
	"context"
	"regexp"
	"strings"
)

var serviceClass = regexp.MustCompile(`\bclass\s+(\w+?)Service\b`)

// Static answers from fixed tables. With DeriveEntities set, methods missing
// from Entities resolve to the lower-cased name of the service class declared
// in the source text (AccountService -> account).
type Static struct {
	Entities       map[string]string
	Constraints    map[string]string
	DeriveEntities bool
	Err            error
}

func (s *Static) ResolveEntityNames(_ context.Context, methods []string, source string) (map[string]string, error) {
	if s.Err != nil {
		return map[string]string{}, s.Err
	}
	out := make(map[string]string, len(methods))
	derived := ""
	if s.DeriveEntities {
		if m := serviceClass.FindStringSubmatch(source); m != nil {
			derived = strings.ToLower(m[1])
		}
	}
	for _, method := range methods {
		if v, ok := s.Entities[method]; ok {
			out[method] = v
		} else if derived != "" {
			out[method] = derived
		}
	}
	return out, nil
}

func (s *Static) ResolveConstraints(_ context.Context, operations []string, _ []string, _ string) (map[string]string, error) {
	if s.Err != nil {
		return map[string]string{}, s.Err
	}
	out := make(map[string]string, len(operations))
	for _, op := range operations {
		if v, ok := s.Constraints[op]; ok {
			out[op] = v
		}
	}
	return out, nil
}
