package oracle

import (
	"regexp"
	"strings"
)

var wordPair = regexp.MustCompile(`(\w+):[ \t]*(\w+)`)

// ParseMapping reads "name: value, name: value" text. Whitespace, quotes,
// list bullets and code fences around entries are ignored; entries without a
// colon or a name are dropped. The first occurrence of a name wins.
func ParseMapping(text string) map[string]string {
	out := make(map[string]string)
	text = strings.ReplaceAll(text, "```", "")

	for _, entry := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' }) {
		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		name = cleanToken(strings.TrimLeft(strings.TrimSpace(name), "-*• "))
		value = cleanToken(value)
		if name == "" {
			continue
		}
		if _, seen := out[name]; !seen {
			out[name] = value
		}
	}
	return out
}

// FilterPairs keeps only `word: word` pairs from free text, joined as ParseMapping expects.
func FilterPairs(text string) string {
	matches := wordPair.FindAllStringSubmatch(text, -1)
	pairs := make([]string, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, m[1]+": "+m[2])
	}
	return strings.Join(pairs, ", ")
}

// restrict drops names that were not asked about.
func restrict(mapping map[string]string, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := mapping[n]; ok && v != "" {
			out[n] = v
		}
	}
	return out
}

func cleanToken(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`")
}
