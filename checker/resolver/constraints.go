package resolver

import (
	"regexp"
	"strings"
)

var (
	anyClassDecl = regexp.MustCompile(`\bclass\s+\w`)
	superCall    = regexp.MustCompile("super\\(\\s*(?:'([^']*)'|\"([^\"]*)\"|`([^`]*)`)")
)

// ExtractConstraints reads the constraint each policy class hands to its base
// class through `super('<constraint>')`. Classes without a literal super
// argument are left out so the oracle can be asked about them.
func ExtractConstraints(content string, names []string) map[string]string {
	out := make(map[string]string)
	for _, name := range names {
		body, ok := classBody(content, name)
		if !ok {
			continue
		}
		m := superCall.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if g != "" {
				out[name] = strings.TrimSpace(g)
				break
			}
		}
	}
	return out
}

// classBody returns the text from the declaration of name up to the next class declaration.
func classBody(content, name string) (string, bool) {
	loc := classPattern(name, false).FindStringIndex(content)
	if loc == nil {
		loc = classPattern(name, true).FindStringIndex(content)
	}
	if loc == nil {
		return "", false
	}
	rest := content[loc[1]:]
	if next := anyClassDecl.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest, true
}
