// Package matcher decides which files participate in a run: gitignore-style
// ignore files, global include/exclude globs, and binary detection.
package matcher

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/rerootdev/reroot/pkg/text"
)

// IgnoreFileName is the ignore file consulted at the active root.
const IgnoreFileName = ".gitignore"

// hardExcludes are never processed regardless of configuration.
var hardExcludes = []string{".git", ".git/**"}

// Matcher evaluates eligibility of slash-relative paths under one root.
// It is read-only after construction.
type Matcher struct {
	ignorer    *ignore.GitIgnore
	includes   []string
	excludes   []string
	ignoreExts map[string]bool

	// Warning is non-empty when the ignore file existed but could not be
	// read; the run continues without it.
	Warning string
}

// New builds a Matcher for root. An unreadable ignore file is not fatal: it
// is treated as "no additional ignore rules" and a warning is logged.
func New(ctx context.Context, root string, includes, excludes, ignoreExtensions []string) *Matcher {
	m := &Matcher{
		includes:   includes,
		excludes:   excludes,
		ignoreExts: make(map[string]bool, len(ignoreExtensions)),
	}
	for _, ext := range ignoreExtensions {
		m.ignoreExts[strings.ToLower(ext)] = true
	}

	ignorePath := filepath.Join(root, IgnoreFileName)
	data, err := os.ReadFile(ignorePath)
	switch {
	case err == nil:
		m.ignorer = ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
	case os.IsNotExist(err):
		// no ignore file, nothing to load
	default:
		m.Warning = "ignore file unreadable, continuing without it: " + err.Error()
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", ignorePath).Msg("ignore file unreadable, continuing without it")
	}
	return m
}

// Ignored reports whether rel is excluded by the root's ignore file.
// Negation patterns re-include; later patterns win, per gitignore rules.
func (m *Matcher) Ignored(rel string) bool {
	if m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(rel)
}

// Eligible reports whether rel passes the hard excludes, the extension
// deny-list, and the include/exclude glob lists. Non-empty includes
// intersect; excludes subtract afterwards.
func (m *Matcher) Eligible(rel string) bool {
	for _, pattern := range hardExcludes {
		if text.GlobMatch(pattern, rel) || rel == ".git" || strings.HasPrefix(rel, ".git/") {
			return false
		}
	}
	if ext := strings.ToLower(path.Ext(rel)); ext != "" && m.ignoreExts[ext] {
		return false
	}
	if len(m.includes) > 0 {
		matched := false
		for _, pattern := range m.includes {
			if text.GlobMatch(pattern, rel) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range m.excludes {
		if text.GlobMatch(pattern, rel) {
			return false
		}
	}
	return true
}
