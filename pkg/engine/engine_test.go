package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rerootdev/reroot/pkg/config"
	"github.com/rerootdev/reroot/pkg/pathmap"
	"github.com/rerootdev/reroot/pkg/report"
	"github.com/rerootdev/reroot/pkg/text"
)

func testCtx() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func rerootConfig() *config.Config {
	return &config.Config{
		PathMappings: []pathmap.Rule{{From: "old_co", To: "new_co"}},
		ContentRules: []text.Rule{{
			PathGlob:     "**/*",
			Replacements: []text.Replacement{{From: "OldCompany", To: "NewCompany"}},
		}},
	}
}

func run(t *testing.T, cfg *config.Config, opts Options) *report.Report {
	t.Helper()
	opts.NoVerify = true
	r, err := New(cfg).Run(testCtx(), opts)
	require.NoError(t, err)
	return r
}

func actionFor(r *report.Report, sourceRel string) (report.FileResult, bool) {
	for _, f := range r.Files {
		if f.SourceRel == sourceRel {
			return f, true
		}
	}
	return report.FileResult{}, false
}

func TestRun_ForwardApply(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "using OldCompany.Util;\n",
	})

	r := run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	result, ok := actionFor(r, "old_co/App.cs")
	require.True(t, ok)
	assert.Equal(t, report.ActionCreate, result.Action)
	assert.Equal(t, "new_co/App.cs", result.TargetRel)
	assert.Equal(t, 1, result.Hits)

	written, err := os.ReadFile(filepath.Join(dst, "new_co", "App.cs"))
	require.NoError(t, err)
	assert.Equal(t, "using NewCompany.Util;\n", string(written))
}

func TestRun_DryRunNeverTouchesDestination(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	writeTree(t, dst, map[string]string{
		"sentinel.txt": "untouched",
	})

	r := run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst})
	assert.True(t, r.DryRun)

	result, ok := actionFor(r, "old_co/App.cs")
	require.True(t, ok)
	assert.Equal(t, report.ActionCreate, result.Action)

	// the planned file was not created and the sentinel is intact
	_, err := os.Stat(filepath.Join(dst, "new_co", "App.cs"))
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sentinel.txt", entries[0].Name())
}

func TestRun_SecondApplyIsUnchanged(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	cfg := rerootConfig()

	run(t, cfg, Options{SourceRoot: src, TargetRoot: dst, Apply: true})
	r := run(t, cfg, Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	result, ok := actionFor(r, "old_co/App.cs")
	require.True(t, ok)
	assert.Equal(t, report.ActionSkipUnchanged, result.Action)
	assert.Equal(t, 0, r.Created+r.Updated)
}

func TestRun_NeverDeletesDestinationFiles(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	writeTree(t, dst, map[string]string{
		"orphaned/by_hand.txt": "still here",
	})

	run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	kept, err := os.ReadFile(filepath.Join(dst, "orphaned", "by_hand.txt"))
	require.NoError(t, err)
	assert.Equal(t, "still here", string(kept))
}

func TestRun_GitignoreExclusionAndNegation(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		".gitignore":    "*.log\n!keep.log\n",
		"trace.log":     "excluded even though include_globs would match",
		"keep.log":      "re-included by negation",
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	cfg := rerootConfig()
	cfg.IncludeGlobs = []string{"**/*"}

	r := run(t, cfg, Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	ignored, ok := actionFor(r, "trace.log")
	require.True(t, ok)
	assert.Equal(t, report.ActionSkipIgnored, ignored.Action)
	_, err := os.Stat(filepath.Join(dst, "trace.log"))
	assert.True(t, os.IsNotExist(err), "gitignored file must not be synced")

	kept, ok := actionFor(r, "keep.log")
	require.True(t, ok)
	assert.Equal(t, report.ActionCreate, kept.Action)
	_, err = os.Stat(filepath.Join(dst, "keep.log"))
	assert.NoError(t, err)
}

func TestRun_BinaryCopiedVerbatim(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	blob := []byte("OldCompany\x00binary payload")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "old_co"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "old_co", "logo.png"), blob, 0o644))

	r := run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	result, ok := actionFor(r, "old_co/logo.png")
	require.True(t, ok)
	assert.Equal(t, report.ActionCreate, result.Action)
	assert.Equal(t, 0, result.Hits, "binary content is never rewritten")

	copied, err := os.ReadFile(filepath.Join(dst, "new_co", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, blob, copied, "bytes copied verbatim, path still mapped")
}

func TestRun_SlnRewrite(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	slnLine := `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "old_co\App\App.csproj", "{11111111-2222-3333-4444-555555555555}"`
	writeTree(t, src, map[string]string{
		"All.sln":               slnLine + "\nEndProject\n",
		"old_co/App/App.csproj": `<Project><ItemGroup><Compile Include="Program.cs" /></ItemGroup></Project>`,
		"old_co/App/Program.cs": "namespace OldCompany.App {}\n",
	})

	r := run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true})
	assert.Empty(t, r.Errors)

	written, err := os.ReadFile(filepath.Join(dst, "All.sln"))
	require.NoError(t, err)
	want := `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "new_co\App\App.csproj", "{11111111-2222-3333-4444-555555555555}"` + "\nEndProject\n"
	assert.Equal(t, want, string(written))

	_, err = os.Stat(filepath.Join(dst, "new_co", "App", "App.csproj"))
	assert.NoError(t, err)
}

func TestRun_StrictOrphanFailsWithoutApplying(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"All.sln":       `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Gone", "old_co\Gone\Gone.csproj", "{99999999-9999-9999-9999-999999999999}"` + "\n",
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	cfg := rerootConfig()
	cfg.Sln = &config.SlnOptions{OrphanPolicy: "strict"}

	r := run(t, cfg, Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	require.NotEmpty(t, r.Errors)
	assert.Equal(t, 1, r.ExitCode())

	// nothing at all was written: no partial apply under strict violations
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_WarnOrphanContinues(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"All.sln": `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Gone", "old_co\Gone\Gone.csproj", "{99999999-9999-9999-9999-999999999999}"` + "\n",
	})

	// a user logger exercises the apply-time warning feed as well
	userLog := report.NewUserLogger(testCtx(), false)
	r := run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true, UserLog: userLog})

	assert.Empty(t, r.Errors)
	require.NotEmpty(t, r.Warnings)
	assert.Equal(t, 0, r.ExitCode())
	_, err := os.Stat(filepath.Join(dst, "All.sln"))
	assert.NoError(t, err, "warn policy still syncs the solution")
}

func TestRun_SyncbackBackfill(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	// forward layout exists on both sides
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "using OldCompany.Util;\n",
	})
	writeTree(t, dst, map[string]string{
		"new_co/App.cs":   "using NewCompany.Util;\nclass Added {}\n",
		"new_co/Fresh.cs": "using NewCompany.Fresh;\n",
		"elsewhere/X.cs":  "using NewCompany.X;\n",
	})
	cfg := rerootConfig()

	r := run(t, cfg, Options{SourceRoot: src, TargetRoot: dst, Apply: true, Syncback: true})

	// edited file flows back with reversed replacements
	updated, err := os.ReadFile(filepath.Join(src, "old_co", "App.cs"))
	require.NoError(t, err)
	assert.Equal(t, "using OldCompany.Util;\nclass Added {}\n", string(updated))

	// missing file under an existing source directory is backfilled
	fresh, err := os.ReadFile(filepath.Join(src, "old_co", "Fresh.cs"))
	require.NoError(t, err)
	assert.Equal(t, "using OldCompany.Fresh;\n", string(fresh))

	// a file whose source directory does not exist is skipped with a warning
	_, err = os.Stat(filepath.Join(src, "elsewhere", "X.cs"))
	assert.True(t, os.IsNotExist(err))
	found := false
	for _, w := range r.Warnings {
		if w.Stage == "write" {
			found = true
		}
	}
	assert.True(t, found, "skipped backfill surfaces a warning")
}

func TestRun_LegacyEncodingPreserved(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	// "café OldCompany" in Windows-1252: é is 0xE9, invalid UTF-8
	raw := []byte{'c', 'a', 'f', 0xe9, ' ', 'O', 'l', 'd', 'C', 'o', 'm', 'p', 'a', 'n', 'y'}
	require.NoError(t, os.MkdirAll(filepath.Join(src, "old_co"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "old_co", "notes.txt"), raw, 0o644))

	run(t, rerootConfig(), Options{SourceRoot: src, TargetRoot: dst, Apply: true})

	written, err := os.ReadFile(filepath.Join(dst, "new_co", "notes.txt"))
	require.NoError(t, err)
	want := []byte{'c', 'a', 'f', 0xe9, ' ', 'N', 'e', 'w', 'C', 'o', 'm', 'p', 'a', 'n', 'y'}
	assert.Equal(t, want, written, "content rewritten, encoding preserved")
}

func TestRun_MissingWalkRootIsFatal(t *testing.T) {
	_, err := New(rerootConfig()).Run(testCtx(), Options{
		SourceRoot: filepath.Join(t.TempDir(), "does-not-exist"),
		TargetRoot: t.TempDir(),
		NoVerify:   true,
	})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	assert.Equal(t, report.ActionCreate, classify(path, []byte("x")))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.Equal(t, report.ActionSkipUnchanged, classify(path, []byte("x")))
	assert.Equal(t, report.ActionUpdate, classify(path, []byte("y")))
}

func TestBuildPlan_MappingReplacementsAttached(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"old_co/App.cs": "x",
	})
	cfg := rerootConfig()

	plan, err := BuildPlan(testCtx(), src, t.TempDir(), cfg, pathmap.Forward)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)

	action := plan.Actions[0]
	assert.Equal(t, "new_co/App.cs", action.TargetRel)
	// content replacements carry both the content rule and the path mapping
	assert.Contains(t, action.Replacements, text.Replacement{From: "OldCompany", To: "NewCompany"})
	assert.Contains(t, action.Replacements, text.Replacement{From: "old_co", To: "new_co"})
}
