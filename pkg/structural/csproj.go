package structural

import (
	"path/filepath"
	"regexp"
	"strings"
)

// includeAttrRE matches Include="..." item attributes. MSBuild items also
// reference files through Update/Remove attributes, which carry the same
// path semantics.
var includeAttrRE = regexp.MustCompile(`((?:Include|Update|Remove)\s*=\s*")([^"]+)(")`)

// CsprojEditor rewrites path-bearing item attributes inside project files.
// Values that do not look like filesystem paths (package identifiers such
// as "Newtonsoft.Json") and values without a planned counterpart pass
// through unchanged; corrupting a valid reference is worse than missing a
// rewrite.
type CsprojEditor struct{}

func (e *CsprojEditor) CanEdit(relPath string) bool {
	return strings.EqualFold(filepath.Ext(relPath), ".csproj")
}

func (e *CsprojEditor) Rewrite(content string, sourceAbs, targetAbs string, index PathIndex) (string, []Diagnostic, error) {
	sourceDir := filepath.Dir(sourceAbs)
	targetDir := filepath.Dir(targetAbs)

	rewritten := includeAttrRE.ReplaceAllStringFunc(content, func(occurrence string) string {
		match := includeAttrRE.FindStringSubmatch(occurrence)
		value := match[2]
		if !looksPathLike(value) {
			return occurrence
		}
		normalized := strings.ReplaceAll(value, "\\", "/")
		if filepath.IsAbs(normalized) {
			return occurrence
		}
		refAbs := filepath.Clean(filepath.Join(sourceDir, filepath.FromSlash(normalized)))
		mappedAbs, ok := index.Lookup(refAbs)
		if !ok {
			return occurrence
		}
		newRel, err := filepath.Rel(targetDir, mappedAbs)
		if err != nil {
			return occurrence
		}
		newRel = strings.ReplaceAll(filepath.ToSlash(newRel), "/", "\\")
		return match[1] + newRel + match[3]
	})

	return rewritten, nil, nil
}

// looksPathLike distinguishes filesystem references from bare identifiers:
// a path carries a separator or a recognized file extension. Globs are left
// alone, their expansion is relative and survives a whole-directory move.
func looksPathLike(value string) bool {
	if strings.ContainsAny(value, "*?") {
		return false
	}
	if strings.ContainsAny(value, `/\`) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(value))
	switch ext {
	case "", ".":
		return false
	}
	// Package identifiers look like dotted names; require a plausible file
	// extension, not just any dot-separated suffix.
	return len(ext) <= 8 && !strings.ContainsAny(ext, " ") && hasAlphaOnly(ext[1:])
}

func hasAlphaOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
