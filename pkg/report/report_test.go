package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_Counters(t *testing.T) {
	r := &Report{}
	r.AddFile(FileResult{SourceRel: "a.cs", TargetRel: "b.cs", Action: ActionCreate, Hits: 2})
	r.AddFile(FileResult{SourceRel: "c.cs", TargetRel: "d.cs", Action: ActionUpdate, Hits: 1})
	r.AddFile(FileResult{SourceRel: "e.cs", TargetRel: "e.cs", Action: ActionSkipUnchanged})
	r.AddFile(FileResult{SourceRel: "f.png", TargetRel: "f.png", Action: ActionSkipBinary})
	r.AddFile(FileResult{SourceRel: "g.log", Action: ActionSkipIgnored})

	assert.Equal(t, 1, r.Created)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Unchanged)
	assert.Equal(t, 1, r.SkippedBinary)
	assert.Equal(t, 1, r.IgnoredByGit)
	assert.Equal(t, 3, r.ReplacementHits)
}

func TestReport_ExitCode(t *testing.T) {
	tests := []struct {
		name string
		prep func(r *Report)
		want int
	}{
		{
			name: "clean_run",
			prep: func(r *Report) {},
			want: 0,
		},
		{
			name: "warnings_do_not_fail",
			prep: func(r *Report) { r.Warn("a.sln", "structural", "orphan") },
			want: 0,
		},
		{
			name: "errors_exit_1",
			prep: func(r *Report) { r.Error("a.sln", "structural", "orphan (strict)") },
			want: 1,
		},
		{
			name: "verify_failure_exits_2",
			prep: func(r *Report) {
				r.Verify = append(r.Verify, VerifyResult{Name: "dotnet build", OK: false})
			},
			want: 2,
		},
		{
			name: "errors_trump_verify",
			prep: func(r *Report) {
				r.Error("", "walk", "boom")
				r.Verify = append(r.Verify, VerifyResult{Name: "dotnet build", OK: false})
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{}
			tt.prep(r)
			assert.Equal(t, tt.want, r.ExitCode())
		})
	}
}

func TestRender(t *testing.T) {
	r := &Report{DryRun: true}
	r.Scanned = 2
	r.AddFile(FileResult{SourceRel: "old_co/App.cs", TargetRel: "new_co/App.cs", Action: ActionCreate, Hits: 1})
	r.AddFile(FileResult{SourceRel: "readme.md", TargetRel: "readme.md", Action: ActionSkipUnchanged})
	r.Warn("x.sln", "structural", "orphan project reference: gone.csproj")
	r.Verify = append(r.Verify, VerifyResult{Name: "dotnet build All.sln", OK: true})

	out := Render(r, RenderOptions{Color: false, Level: LevelDebug})

	assert.Contains(t, out, "DRY-RUN")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "replacement hits  1")
	assert.Contains(t, out, "old_co/App.cs")
	assert.Contains(t, out, "new_co/App.cs")
	assert.Contains(t, out, "orphan project reference")
	assert.Contains(t, out, "dotnet build All.sln")
	assert.Contains(t, out, "= readme.md", "unchanged files get their own debug section")
	assert.NotContains(t, out, "+ readme.md", "unchanged files are not listed as changed")
}

func TestRender_UnchangedSectionOnlyAtDebug(t *testing.T) {
	r := &Report{}
	r.AddFile(FileResult{SourceRel: "a.cs", TargetRel: "a.cs", Action: ActionSkipUnchanged})

	out := Render(r, RenderOptions{Color: false, Level: LevelNormal})
	assert.NotContains(t, out, "Unchanged Files")

	out = Render(r, RenderOptions{Color: false, Level: LevelDebug})
	assert.Contains(t, out, "Unchanged Files")
	assert.Contains(t, out, "= a.cs -> a.cs")
}

func TestRender_DebugCapsUnchangedRows(t *testing.T) {
	r := &Report{}
	for i := 0; i < unchangedRowCap+5; i++ {
		r.AddFile(FileResult{SourceRel: "u.cs", TargetRel: "u.cs", Action: ActionSkipUnchanged})
	}
	out := Render(r, RenderOptions{Color: false, Level: LevelDebug})
	assert.Equal(t, unchangedRowCap, strings.Count(out, "= u.cs"))
	assert.Contains(t, out, "... 5 more unchanged files")
}

func TestRender_SummaryLevelHidesRows(t *testing.T) {
	r := &Report{}
	r.AddFile(FileResult{SourceRel: "a.cs", TargetRel: "b.cs", Action: ActionCreate})

	out := Render(r, RenderOptions{Color: false, Level: LevelSummary})
	assert.NotContains(t, out, "Changed Files")
	assert.Contains(t, out, "created           1")
}

func TestRender_NormalLevelCapsRows(t *testing.T) {
	r := &Report{}
	for i := 0; i < normalRowCap+10; i++ {
		r.AddFile(FileResult{SourceRel: "f.cs", TargetRel: "g.cs", Action: ActionUpdate})
	}
	out := Render(r, RenderOptions{Color: false, Level: LevelNormal})
	assert.Contains(t, out, "... 10 more changed files")
	assert.Equal(t, normalRowCap, strings.Count(out, "g.cs (hits=0)"))
}
