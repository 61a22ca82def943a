// Package structural rewrites path-bearing tokens inside project-description
// files (.sln project lines, .csproj Include attributes) while leaving every
// other byte untouched. It is deliberately not a grammar parser: only
// recognized path occurrences are touched, everything else is opaque
// passthrough.
package structural

import "strings"

// OrphanPolicy governs project references whose mapped path has no
// counterpart in the plan.
type OrphanPolicy string

const (
	OrphanWarn   OrphanPolicy = "warn"
	OrphanStrict OrphanPolicy = "strict"
)

// Diagnostic is a non-fatal finding produced while rewriting one file.
type Diagnostic struct {
	Path    string // file the finding is about
	Stage   string // "structural"
	Message string
}

// PathIndex maps planned absolute source paths to their absolute
// destinations. Keys and values are filepath.Clean'd.
type PathIndex map[string]string

// Lookup resolves an absolute source path to its planned destination.
func (idx PathIndex) Lookup(abs string) (string, bool) {
	mapped, ok := idx[abs]
	return mapped, ok
}

// Editor rewrites the path-bearing tokens of one file format.
type Editor interface {
	// CanEdit reports whether this editor handles the given relative path.
	CanEdit(relPath string) bool

	// Rewrite returns the content with recognized path tokens substituted
	// via the index, plus any diagnostics. A returned error is reserved for
	// policy violations (strict orphans); parse trouble degrades to
	// passthrough with a diagnostic.
	Rewrite(content string, sourceAbs, targetAbs string, index PathIndex) (string, []Diagnostic, error)
}

// knownProjectExtensions are file extensions a solution may reference as a
// project. Paths with other extensions pass through untouched.
var knownProjectExtensions = map[string]bool{
	".csproj":  true,
	".fsproj":  true,
	".vbproj":  true,
	".vcxproj": true,
	".shproj":  true,
	".sqlproj": true,
	".dcproj":  true,
	".wapproj": true,
}

func isProjectFilePath(value string) bool {
	normalized := strings.ReplaceAll(value, "\\", "/")
	dot := strings.LastIndex(normalized, ".")
	if dot < 0 || dot < strings.LastIndex(normalized, "/") {
		return false
	}
	return knownProjectExtensions[strings.ToLower(normalized[dot:])]
}
