package resolver

import (
	"path"
	"regexp"
	"strings"
)

// fileKind selects the naming convention of the files being looked for.
type fileKind struct {
	label     string // "service" or "policy"
	suffix    string // ".service.ts"
	dirs      []string
	nameToken string
}

var (
	serviceKind = fileKind{label: "service", suffix: ".service.ts", dirs: []string{"services"}, nameToken: "service"}
	policyKind  = fileKind{label: "policy", suffix: ".policy.ts", dirs: []string{"policies", "policy"}, nameToken: "policy"}
)

// matches reports whether a file name follows the kind's naming convention.
func (k fileKind) matches(file string) bool {
	base := strings.ToLower(path.Base(file))
	if !strings.HasSuffix(base, ".ts") {
		return false
	}
	return strings.HasSuffix(base, k.suffix) || strings.Contains(base, k.nameToken)
}

// lookup is what a path strategy needs to propose candidates.
type lookup struct {
	controller string // slash path of the controller file, e.g. src/account/account.controller.ts
	importPath string // module specifier the class is imported from, may be empty
	className  string
	module     string // module name derived from @Controller base path
	kind       fileKind
}

// pathStrategy proposes candidate files, most specific first.
type pathStrategy struct {
	name    string
	propose func(l lookup, files []string) []string
}

// pathStrategies run in order; candidates are the de-duplicated concatenation.
var pathStrategies = []pathStrategy{
	{name: "import", propose: importCandidates},
	{name: "convention", propose: conventionCandidates},
	{name: "scan", propose: scanCandidates},
}

func importCandidates(l lookup, _ []string) []string {
	if l.importPath == "" {
		return nil
	}
	var out []string
	imp := l.importPath
	switch {
	case strings.HasPrefix(imp, "./"), strings.HasPrefix(imp, "../"):
		out = append(out, path.Join(path.Dir(l.controller), imp))
	case strings.HasPrefix(imp, "@/"):
		out = append(out, path.Join("src", strings.TrimPrefix(imp, "@/")))
	case strings.HasPrefix(imp, "src/"):
		out = append(out, path.Clean(imp))
	default:
		out = append(out, path.Join("src", imp))
	}
	return withTSExtension(out)
}

func conventionCandidates(l lookup, _ []string) []string {
	var dirs []string
	dirs = append(dirs, path.Dir(l.controller))
	if l.module != "" {
		dirs = append(dirs, path.Join("src", l.module))
	}

	base := path.Base(l.importPath)
	suggested := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(l.className, "Service"), "Policy"))

	var out []string
	for _, dir := range dirs {
		module := path.Base(dir)
		if l.importPath != "" {
			for _, sub := range l.kind.dirs {
				out = append(out, path.Join(dir, sub, base))
			}
		}
		out = append(out, path.Join(dir, module+l.kind.suffix))
		for _, sub := range l.kind.dirs {
			out = append(out, path.Join(dir, sub, module+l.kind.suffix))
		}
		if suggested != "" {
			out = append(out, path.Join(dir, suggested+l.kind.suffix))
		}
	}
	if l.importPath != "" {
		for _, sub := range l.kind.dirs {
			out = append(out, path.Join("src", sub, base))
		}
	}
	if suggested != "" {
		out = append(out, path.Join("src", suggested+l.kind.suffix))
	}
	return withTSExtension(out)
}

func scanCandidates(l lookup, files []string) []string {
	var out []string
	for _, f := range files {
		if l.kind.matches(f) {
			out = append(out, f)
		}
	}
	return out
}

func withTSExtension(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ".ts") {
			p += ".ts"
		}
		out = append(out, p)
	}
	return out
}

// candidates runs every path strategy and keeps the existing, unique paths.
func candidates(l lookup, files []string, exists map[string]struct{}) (found, checked []string) {
	seen := make(map[string]struct{})
	for _, s := range pathStrategies {
		for _, p := range s.propose(l, files) {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			checked = append(checked, p)
			if _, ok := exists[p]; ok {
				found = append(found, p)
			}
		}
	}
	return found, checked
}

// matchStrategy decides whether a file declares every class in names.
type matchStrategy struct {
	name  string
	match func(content string, names []string) bool
}

// matchStrategies run in order over the whole candidate list: an exact match
// anywhere beats a case-insensitive match in an earlier candidate.
var matchStrategies = []matchStrategy{
	{name: "exact", match: func(content string, names []string) bool { return declaresAll(content, names, false) }},
	{name: "case-insensitive", match: func(content string, names []string) bool { return declaresAll(content, names, true) }},
}

func declaresAll(content string, names []string, fold bool) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if !classPattern(n, fold).MatchString(content) {
			return false
		}
	}
	return true
}

func classPattern(name string, fold bool) *regexp.Regexp {
	expr := `\bclass\s+` + regexp.QuoteMeta(name) + `\b`
	if fold {
		expr = `(?i)` + expr
	}
	return regexp.MustCompile(expr)
}
