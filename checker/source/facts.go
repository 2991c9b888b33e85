// Package source recovers per-method authorization facts from NestJS controller files.
package source

import (
	"sort"
	"strings"
)

// Injection is a constructor parameter such as `private readonly svc: AccountService`.
type Injection struct {
	Name string
	Type string
}

// Import is one import statement with its named bindings.
type Import struct {
	Names []string
	Path  string
}

// ServiceCall is a `this.<service>.<method>(...)` call site.
type ServiceCall struct {
	Service string
	Method  string
}

// ControllerFacts is what one controller file declares. Roles, Actions,
// Policies, Services and Conditions are parallel lists holding one
// single-entry map per method, in source order; a missing marker maps to "".
type ControllerFacts struct {
	File      string
	ClassName string
	BasePath  string
	Methods   []string

	Roles      []map[string]string
	Actions    []map[string]string
	Policies   []map[string]string
	Services   []map[string]string // controller method -> service method it delegates to
	Conditions []map[string]string // inline checkPermission conditions

	Injections []Injection
	Imports    []Import
	Calls      []ServiceCall

	// SyntaxErrors is set when the parser had to recover from invalid input.
	SyntaxErrors bool
}

// Lookup returns the value stored for key in a list of single-entry maps.
func Lookup(list []map[string]string, key string) (string, bool) {
	for _, m := range list {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Keys returns the keys of a list of single-entry maps in list order.
func Keys(list []map[string]string) []string {
	keys := make([]string, 0, len(list))
	for _, m := range list {
		for k := range m {
			keys = append(keys, k)
		}
	}
	return keys
}

// PrimaryService is the injected dependency the controller delegates its work to:
// the first injected type named like a service that is not a policy service.
func (f *ControllerFacts) PrimaryService() (Injection, bool) {
	for _, inj := range f.Injections {
		if isPolicyName(inj.Name) || isPolicyName(inj.Type) {
			continue
		}
		if strings.HasSuffix(inj.Type, "Service") {
			return inj, true
		}
	}
	for _, inj := range f.Injections {
		if !isPolicyName(inj.Name) {
			return inj, true
		}
	}
	return Injection{}, false
}

// ServiceMethods returns the sorted, de-duplicated methods called on the named injection.
func (f *ControllerFacts) ServiceMethods(service string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range f.Calls {
		if c.Service != service {
			continue
		}
		if _, ok := seen[c.Method]; ok {
			continue
		}
		seen[c.Method] = struct{}{}
		out = append(out, c.Method)
	}
	sort.Strings(out)
	return out
}

// PolicyImports groups imported names containing "Policy" by import path,
// keeping the order the imports appear in.
func (f *ControllerFacts) PolicyImports() []Import {
	var groups []Import
	index := make(map[string]int)
	for _, imp := range f.Imports {
		for _, name := range imp.Names {
			if !strings.Contains(name, "Policy") {
				continue
			}
			i, ok := index[imp.Path]
			if !ok {
				i = len(groups)
				index[imp.Path] = i
				groups = append(groups, Import{Path: imp.Path})
			}
			groups[i].Names = append(groups[i].Names, name)
		}
	}
	return groups
}

// ImportPathOf returns the import path that binds name, if any.
func (f *ControllerFacts) ImportPathOf(name string) (string, bool) {
	for _, imp := range f.Imports {
		for _, n := range imp.Names {
			if n == name {
				return imp.Path, true
			}
		}
	}
	return "", false
}

func isPolicyName(s string) bool {
	return strings.Contains(strings.ToLower(s), "policy")
}
