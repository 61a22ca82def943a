// Package pathmap rewrites relative paths through an ordered list of
// from/to mapping rules. The same rule list doubles as a literal text
// substitution set for path-shaped tokens found inside file contents
// (namespaces mirroring directory names and the like), so the fold here is
// deliberately plain substring replacement rather than anything
// path-component aware.
package pathmap

import (
	"strings"

	"github.com/rerootdev/reroot/pkg/text"
)

// Direction selects which side of each rule is matched.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// Rule is one ordered path mapping. Later rules see the output of earlier
// ones, so declaration order is semantically significant.
type Rule struct {
	From string `json:"from" yaml:"from" hcl:"from"`
	To   string `json:"to" yaml:"to" hcl:"to"`
}

// Apply rewrites rel by folding every rule over it, left to right. Reverse
// direction swaps from/to per rule but keeps the same ordered fold.
// Separators are normalized to forward slashes on entry; callers that need
// platform separators convert on exit. A path no rule matches is returned
// unchanged.
func Apply(rel string, rules []Rule, dir Direction) string {
	out := Normalize(rel)
	for _, rule := range rules {
		from, to := Normalize(rule.From), Normalize(rule.To)
		if dir == Reverse {
			from, to = to, from
		}
		if from == "" {
			continue
		}
		out = strings.ReplaceAll(out, from, to)
	}
	return out
}

// Replacements exposes the mapping rules as literal text replacement pairs,
// so in-content tokens that mirror directory names are rewritten with the
// exact same ordered list used for filesystem paths.
func Replacements(rules []Rule, dir Direction) []text.Replacement {
	out := make([]text.Replacement, 0, len(rules))
	for _, rule := range rules {
		if dir == Reverse {
			out = append(out, text.Replacement{From: rule.To, To: rule.From})
		} else {
			out = append(out, text.Replacement{From: rule.From, To: rule.To})
		}
	}
	return out
}

// Normalize converts backslash separators to forward slashes.
func Normalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
