// Package verify runs external build checks against the written tree after
// an apply. Failures are reported, never reverted.
package verify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rerootdev/reroot/pkg/report"
)

// Tool is one external verification command.
type Tool struct {
	Name    string   // display name, unique per run
	Command []string // argv, Command[0] is the binary
	Dir     string   // working directory
}

// DotnetBuild returns a dotnet build tool per written solution file.
func DotnetBuild(slnPaths []string) []Tool {
	tools := make([]Tool, 0, len(slnPaths))
	for _, sln := range slnPaths {
		tools = append(tools, Tool{
			Name:    "dotnet build " + filepath.Base(sln),
			Command: []string{"dotnet", "build", sln},
			Dir:     filepath.Dir(sln),
		})
	}
	return tools
}

// CompileAll returns a python -m compileall tool per rerooted package root.
// The display name carries the root relative to dstRoot, slash-separated.
func CompileAll(pyRoots []string, dstRoot string) []Tool {
	tools := make([]Tool, 0, len(pyRoots))
	for _, root := range pyRoots {
		name := root
		if rel, err := filepath.Rel(dstRoot, root); err == nil {
			name = filepath.ToSlash(rel)
		}
		tools = append(tools, Tool{
			Name:    "python compileall " + name,
			Command: []string{"python", "-m", "compileall", root},
			Dir:     dstRoot,
		})
	}
	return tools
}

// PythonRoots resolves each written .py file to its outermost enclosing
// package directory: parent directories carrying __init__.py are climbed
// until a non-package directory or dstRoot is reached. Results are
// deduplicated and sorted.
func PythonRoots(dstRoot string, pyFiles []string) []string {
	seen := map[string]bool{}
	for _, file := range pyFiles {
		seen[pythonRoot(dstRoot, file)] = true
	}
	roots := make([]string, 0, len(seen))
	for root := range seen {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

func pythonRoot(dstRoot, file string) string {
	current := filepath.Dir(file)
	for current != dstRoot && filepath.Dir(current) != current {
		if _, err := os.Stat(filepath.Join(current, "__init__.py")); err != nil {
			break
		}
		current = filepath.Dir(current)
	}
	return current
}

// Run executes every tool and returns the results sorted by name so the
// report stays deterministic regardless of execution order. Sequential by
// default; concurrent fans the tools out through an errgroup.
func Run(ctx context.Context, tools []Tool, concurrent bool) []report.VerifyResult {
	results := make([]report.VerifyResult, len(tools))

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, tool := range tools {
			i, tool := i, tool
			g.Go(func() error {
				results[i] = runOne(gctx, tool)
				return nil
			})
		}
		_ = g.Wait() // tool failures land in results, not errors
	} else {
		for i, tool := range tools {
			results[i] = runOne(ctx, tool)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func runOne(ctx context.Context, tool Tool) report.VerifyResult {
	zerolog.Ctx(ctx).Debug().Str("tool", tool.Name).Msg("running verification tool")

	cmd := exec.CommandContext(ctx, tool.Command[0], tool.Command[1:]...)
	cmd.Dir = tool.Dir
	output, err := cmd.CombinedOutput()
	result := report.VerifyResult{
		Name:   tool.Name,
		OK:     err == nil,
		Output: strings.TrimSpace(string(output)),
	}
	if err != nil && result.Output == "" {
		result.Output = err.Error()
	}
	return result
}
