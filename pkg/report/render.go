package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Display configuration
const (
	fileIndent  = 2  // spaces to indent file entries
	sourceWidth = 45 // base width for the source path column
	actionWidth = 16 // width for the action column
)

// Level gates how much per-file detail the console report carries.
type Level string

const (
	LevelSummary Level = "summary"
	LevelNormal  Level = "normal"
	LevelDebug   Level = "debug"
)

// normalRowCap limits changed-file rows at the normal level.
const normalRowCap = 50

// unchangedRowCap limits unchanged-file rows at the debug level.
const unchangedRowCap = 50

// RenderOptions controls console rendering.
type RenderOptions struct {
	Color bool
	Level Level
}

// Render produces the console report: a summary block, per-file rows gated
// by level, then warnings, errors and verification results.
func Render(r *Report, opts RenderOptions) string {
	color.NoColor = !opts.Color
	level := opts.Level
	if level == "" {
		level = LevelDebug
	}

	mode := "APPLY"
	if r.DryRun {
		mode = "DRY-RUN"
	}
	direction := "forward"
	if r.Syncback {
		direction = "syncback"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", color.New(color.Bold, color.FgCyan).Sprintf("reroot | %s | %s", mode, direction))

	b.WriteString(section("Summary"))
	fmt.Fprintf(&b, "  scanned           %d\n", r.Scanned)
	fmt.Fprintf(&b, "  created           %d\n", r.Created)
	fmt.Fprintf(&b, "  updated           %d\n", r.Updated)
	fmt.Fprintf(&b, "  unchanged         %d\n", r.Unchanged)
	fmt.Fprintf(&b, "  gitignored        %d\n", r.IgnoredByGit)
	fmt.Fprintf(&b, "  binary            %d\n", r.SkippedBinary)
	fmt.Fprintf(&b, "  replacement hits  %d\n", r.ReplacementHits)

	if level != LevelSummary {
		changed := changedFiles(r)
		if len(changed) > 0 {
			b.WriteString(section("Changed Files"))
			rows := changed
			if level == LevelNormal && len(rows) > normalRowCap {
				rows = rows[:normalRowCap]
			}
			for _, f := range rows {
				b.WriteString(fileRow(f))
				b.WriteByte('\n')
			}
			if remaining := len(changed) - len(rows); remaining > 0 {
				fmt.Fprintf(&b, "  ... %d more changed files\n", remaining)
			}
		}
	}

	if level == LevelDebug {
		unchanged := unchangedFiles(r)
		if len(unchanged) > 0 {
			b.WriteString(section("Unchanged Files"))
			rows := unchanged
			if len(rows) > unchangedRowCap {
				rows = rows[:unchangedRowCap]
			}
			for _, f := range rows {
				fmt.Fprintf(&b, "  = %s -> %s\n", f.SourceRel, f.TargetRel)
			}
			if remaining := len(unchanged) - len(rows); remaining > 0 {
				fmt.Fprintf(&b, "  ... %d more unchanged files\n", remaining)
			}
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString(section("Warnings"))
		for _, d := range r.Warnings {
			fmt.Fprintf(&b, "%s\n", color.YellowString("  ! [%s] %s", d.Stage, diagLine(d)))
		}
	}
	if len(r.Errors) > 0 {
		b.WriteString(section("Errors"))
		for _, d := range r.Errors {
			fmt.Fprintf(&b, "%s\n", color.RedString("  x [%s] %s", d.Stage, diagLine(d)))
		}
	}

	if len(r.Verify) > 0 {
		b.WriteString(section("Verification"))
		for _, v := range r.Verify {
			status := color.GreenString("OK")
			if !v.OK {
				status = color.RedString("FAILED")
			}
			fmt.Fprintf(&b, "  %s: %s\n", v.Name, status)
			if output := strings.TrimSpace(v.Output); output != "" && (!v.OK || level == LevelDebug) {
				fmt.Fprintf(&b, "    %s\n", output)
			}
		}
	}

	return b.String()
}

func changedFiles(r *Report) []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

func unchangedFiles(r *Report) []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Action == ActionSkipUnchanged {
			out = append(out, f)
		}
	}
	return out
}

// fileRow formats one changed file with a colored prefix and padded columns.
func fileRow(f FileResult) string {
	var prefix string
	switch f.Action {
	case ActionCreate:
		prefix = color.GreenString("+")
	case ActionUpdate:
		prefix = color.YellowString("~")
	default:
		prefix = color.HiBlackString("-")
	}
	sourcePart := fmt.Sprintf("%-*s", sourceWidth, f.SourceRel)
	actionPart := fmt.Sprintf("%-*s", actionWidth, string(f.Action))
	return fmt.Sprintf("%s%s %s %s-> %s (hits=%d)",
		strings.Repeat(" ", fileIndent), prefix, sourcePart, actionPart, f.TargetRel, f.Hits)
}

func diagLine(d Diagnostic) string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

func section(title string) string {
	return color.New(color.Bold, color.FgMagenta).Sprintf("%s", title) + "\n"
}
