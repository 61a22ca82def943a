package text

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Replacement is a single literal substring substitution.
type Replacement struct {
	From string `json:"from" yaml:"from" hcl:"from"`
	To   string `json:"to" yaml:"to" hcl:"to"`
}

// Rule scopes an ordered list of replacements to a part of the tree.
// A file is in scope iff its slash-relative path matches PathGlob and its
// extension is listed in Extensions (an empty list matches any extension).
type Rule struct {
	PathGlob     string        `json:"path_glob" yaml:"path_glob" hcl:"path_glob,optional"`
	Extensions   []string      `json:"extensions" yaml:"extensions" hcl:"extensions,optional"`
	Replacements []Replacement `json:"replacements" yaml:"replacements" hcl:"replacement,block"`
}

// Result describes the outcome of applying replacements to one file.
type Result struct {
	Content  string
	Modified bool
	Hits     int
}

// Replacer applies ordered literal replacements to file content.
type Replacer struct{}

// NewReplacer creates a new Replacer.
func NewReplacer() *Replacer {
	return &Replacer{}
}

// Select returns the concatenated replacement lists of every rule whose
// scope matches relPath, in declaration order. Reverse swaps each
// replacement's from/to, for syncback runs.
func (r *Replacer) Select(relPath string, rules []Rule, reverse bool) []Replacement {
	ext := strings.ToLower(path.Ext(relPath))
	var selected []Replacement
	for _, rule := range rules {
		if len(rule.Extensions) > 0 && !containsFold(rule.Extensions, ext) {
			continue
		}
		glob := rule.PathGlob
		if glob == "" {
			glob = "**/*"
		}
		if !GlobMatch(glob, relPath) {
			continue
		}
		for _, rep := range rule.Replacements {
			if reverse {
				selected = append(selected, Replacement{From: rep.To, To: rep.From})
			} else {
				selected = append(selected, rep)
			}
		}
	}
	return selected
}

// Apply folds every replacement over content, left to right, each one a
// global literal substitution. Replacement N may produce text that
// replacement N+1 matches; that interaction is part of the contract.
func (r *Replacer) Apply(content string, replacements []Replacement) *Result {
	result := &Result{Content: content}
	current := content
	for _, rep := range replacements {
		if rep.From == "" {
			continue
		}
		hits := strings.Count(current, rep.From)
		if hits == 0 {
			continue
		}
		current = strings.ReplaceAll(current, rep.From, rep.To)
		result.Hits += hits
		result.Modified = true
	}
	result.Content = current
	return result
}

// ValidateRules rejects rules that could never terminate or never match.
func (r *Replacer) ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		for j, rep := range rule.Replacements {
			if rep.From == "" {
				return errors.Errorf("content rule %d: replacement %d: from is required", i, j)
			}
		}
	}
	return nil
}

// Merge concatenates primary and fallback replacement lists, dropping exact
// duplicates while preserving first-seen order.
func Merge(primary, fallback []Replacement) []Replacement {
	var merged []Replacement
	seen := make(map[Replacement]bool, len(primary)+len(fallback))
	for _, rep := range append(append([]Replacement{}, primary...), fallback...) {
		if seen[rep] {
			continue
		}
		seen[rep] = true
		merged = append(merged, rep)
	}
	return merged
}

// GlobMatch reports whether a slash-relative path matches a doublestar
// pattern. A handful of catch-all spellings short-circuit to true.
func GlobMatch(pattern, relPath string) bool {
	switch pattern {
	case "", "*", "**", "**/*":
		return true
	}
	ok, err := doublestar.Match(pattern, relPath)
	if err != nil {
		return false
	}
	return ok
}

func containsFold(extensions []string, ext string) bool {
	for _, candidate := range extensions {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}
