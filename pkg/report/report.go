// Package report collects per-file outcomes and diagnostics for one run and
// renders them for the console.
package report

// Action classifies what the engine decided for one planned file.
type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionSkipUnchanged Action = "skip-unchanged"
	ActionSkipBinary    Action = "skip-binary"
	ActionSkipIgnored   Action = "skip-ignored"
)

// FileResult is the outcome for a single planned file.
type FileResult struct {
	SourceRel string
	TargetRel string
	Action    Action
	Hits      int // replacement hits in this file
}

// Changed reports whether the destination was (or would be) written.
func (f FileResult) Changed() bool {
	return f.Action == ActionCreate || f.Action == ActionUpdate
}

// VerifyResult is the outcome of one external verification tool.
type VerifyResult struct {
	Name   string
	OK     bool
	Output string
}

// Diagnostic is a warning or error keyed by file and pipeline stage.
type Diagnostic struct {
	Path    string // file the finding is about, empty for run-level findings
	Stage   string // matcher | read | content | structural | verify
	Message string
}

// Report is everything one invocation produced for its caller.
type Report struct {
	DryRun   bool
	Syncback bool

	Scanned         int
	Created         int
	Updated         int
	Unchanged       int
	SkippedBinary   int
	IgnoredByGit    int
	ReplacementHits int

	Files    []FileResult
	Warnings []Diagnostic
	Errors   []Diagnostic
	Verify   []VerifyResult
}

// AddFile records a file outcome and maintains the summary counters.
func (r *Report) AddFile(result FileResult) {
	r.Files = append(r.Files, result)
	r.ReplacementHits += result.Hits
	switch result.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdate:
		r.Updated++
	case ActionSkipUnchanged:
		r.Unchanged++
	case ActionSkipBinary:
		r.SkippedBinary++
	case ActionSkipIgnored:
		r.IgnoredByGit++
	}
}

// Warn records a non-fatal diagnostic.
func (r *Report) Warn(path, stage, message string) {
	r.Warnings = append(r.Warnings, Diagnostic{Path: path, Stage: stage, Message: message})
}

// Error records a run-level error.
func (r *Report) Error(path, stage, message string) {
	r.Errors = append(r.Errors, Diagnostic{Path: path, Stage: stage, Message: message})
}

// VerifyFailed reports whether any verification tool failed.
func (r *Report) VerifyFailed() bool {
	for _, result := range r.Verify {
		if !result.OK {
			return true
		}
	}
	return false
}

// ExitCode maps the report to the process exit status: 0 success, 1 run
// errors (including strict orphan violations), 2 verification failures.
func (r *Report) ExitCode() int {
	if len(r.Errors) > 0 {
		return 1
	}
	if r.VerifyFailed() {
		return 2
	}
	return 0
}
