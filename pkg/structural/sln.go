package structural

import (
	"path/filepath"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrOrphan marks a project reference whose path has no counterpart in the
// plan. Callers branch on it with errors.Is to separate policy violations
// from per-file processing errors.
var ErrOrphan = errors.Base("orphan project reference")

// projectLineRE captures the three pieces of a solution project declaration:
//
//	Project("{TypeGuid}") = "Name", "Path", "{Guid}"
//
// Group 2 is the path token; groups 1 and 3 are reproduced byte-for-byte.
var projectLineRE = regexp.MustCompile(`^(Project\("\{[^}]+\}"\)\s*=\s*"[^"]+",\s*")([^"]+)("\s*,\s*"\{[^}]+\}".*)$`)

// SlnEditor rewrites project paths inside solution files. Only the Path
// token of each project line changes; quoting, field order, whitespace,
// line order and line endings are preserved.
type SlnEditor struct {
	Policy OrphanPolicy
}

func (e *SlnEditor) CanEdit(relPath string) bool {
	return strings.EqualFold(filepath.Ext(relPath), ".sln")
}

func (e *SlnEditor) Rewrite(content string, sourceAbs, targetAbs string, index PathIndex) (string, []Diagnostic, error) {
	sourceDir := filepath.Dir(sourceAbs)
	targetDir := filepath.Dir(targetAbs)

	var diags []Diagnostic
	var out strings.Builder
	out.Grow(len(content))

	for _, line := range splitLines(content) {
		body, ending := splitLineEnding(line)
		if !strings.HasPrefix(body, "Project(") {
			out.WriteString(line)
			continue
		}
		match := projectLineRE.FindStringSubmatch(body)
		if match == nil {
			diags = append(diags, Diagnostic{
				Path:    sourceAbs,
				Stage:   "structural",
				Message: "unparseable project line passed through: " + strings.TrimSpace(body),
			})
			out.WriteString(line)
			continue
		}

		prefix, rawPath, suffix := match[1], match[2], match[3]
		if !isProjectFilePath(rawPath) {
			out.WriteString(line)
			continue
		}

		projectAbs := filepath.Clean(filepath.Join(sourceDir, filepath.FromSlash(strings.ReplaceAll(rawPath, "\\", "/"))))
		mappedAbs, ok := index.Lookup(projectAbs)
		if !ok {
			diag := Diagnostic{
				Path:    sourceAbs,
				Stage:   "structural",
				Message: "orphan project reference: " + rawPath + " (not found in plan)",
			}
			diags = append(diags, diag)
			if e.Policy == OrphanStrict {
				return "", diags, errors.Errorf("%w in %s: %s", ErrOrphan, sourceAbs, rawPath)
			}
			out.WriteString(line)
			continue
		}

		newRel, err := filepath.Rel(targetDir, mappedAbs)
		if err != nil {
			diags = append(diags, Diagnostic{
				Path:    sourceAbs,
				Stage:   "structural",
				Message: "cannot relativize mapped project path: " + mappedAbs,
			})
			out.WriteString(line)
			continue
		}
		// Solution files use backslash separators regardless of platform.
		newRel = strings.ReplaceAll(filepath.ToSlash(newRel), "/", "\\")
		out.WriteString(prefix + newRel + suffix + ending)
	}

	return out.String(), diags, nil
}

// splitLines splits content into lines that keep their own terminators, so
// the reassembled file is byte-identical outside rewritten tokens.
func splitLines(content string) []string {
	var lines []string
	for len(content) > 0 {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:idx+1])
		content = content[idx+1:]
	}
	return lines
}

// splitLineEnding separates a line from its CRLF or LF terminator.
func splitLineEnding(line string) (body, ending string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
