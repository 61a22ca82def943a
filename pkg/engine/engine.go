// Package engine orchestrates one re-rooting run: plan the tree, transform
// every planned file, then either report the plan or apply it. The run is
// strictly sequential; rule lists and the ignore set are read-only after
// planning, so the ordering of diagnostics and rule application is
// deterministic.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rerootdev/reroot/pkg/config"
	"github.com/rerootdev/reroot/pkg/pathmap"
	"github.com/rerootdev/reroot/pkg/report"
	"github.com/rerootdev/reroot/pkg/structural"
	"github.com/rerootdev/reroot/pkg/text"
	"github.com/rerootdev/reroot/pkg/textenc"
	"github.com/rerootdev/reroot/pkg/verify"
)

// Options selects the roots and mode for one run.
type Options struct {
	SourceRoot string
	TargetRoot string
	Apply      bool // default is dry-run
	Syncback   bool // walk the target tree and backfill the source tree
	NoVerify   bool
	UserLog    *report.UserLogger // optional live feedback, may be nil
}

// Engine runs the sync. Construct one per invocation; it holds no state
// across runs beyond the written destination tree itself.
type Engine struct {
	cfg      *config.Config
	replacer *text.Replacer
	sln      structural.Editor
	csproj   structural.Editor
}

// New creates an engine for the given resolved configuration.
func New(cfg *config.Config) *Engine {
	return &Engine{
		cfg:      cfg,
		replacer: text.NewReplacer(),
		sln:      &structural.SlnEditor{Policy: cfg.OrphanPolicy()},
		csproj:   &structural.CsprojEditor{},
	}
}

// processed is one fully transformed plan entry, ready to write.
type processed struct {
	action  FileAction
	result  report.FileResult
	payload []byte // bytes to write; nil when nothing needs writing
}

// Run executes INIT -> PLAN -> (REPORT | APPLY) -> VERIFY. Per-file errors
// are recorded in the report and do not abort the run; strict orphan
// violations fail the run at the end of planning, before any write.
func (e *Engine) Run(ctx context.Context, opts Options) (*report.Report, error) {
	logger := zerolog.Ctx(ctx)

	walkRoot, outputRoot := opts.SourceRoot, opts.TargetRoot
	dir := pathmap.Forward
	if opts.Syncback {
		walkRoot, outputRoot = opts.TargetRoot, opts.SourceRoot
		dir = pathmap.Reverse
	}

	r := &report.Report{DryRun: !opts.Apply, Syncback: opts.Syncback}

	e.stage(opts, "planning file actions")
	plan, err := BuildPlan(ctx, walkRoot, outputRoot, e.cfg, dir)
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		r.Warn(walkRoot, "matcher", w)
	}

	var results []processed
	var orphanErrs []error
	for _, action := range plan.Actions {
		if action.Ignored {
			r.AddFile(report.FileResult{SourceRel: action.SourceRel, Action: report.ActionSkipIgnored})
			continue
		}
		r.Scanned++

		p, err := e.processFile(ctx, plan, action, r)
		if err != nil {
			if errors.Is(err, structural.ErrOrphan) {
				orphanErrs = append(orphanErrs, err)
				continue
			}
			// recorded against the file already, run continues
			logger.Debug().Err(err).Str("file", action.SourceRel).Msg("file skipped")
			continue
		}
		results = append(results, p)
	}

	// Strict orphan violations fail the whole run with nothing applied.
	if len(orphanErrs) > 0 {
		for _, oe := range orphanErrs {
			r.Error("", "structural", oe.Error())
		}
		return r, nil
	}

	for _, p := range results {
		r.AddFile(p.result)
	}

	if !opts.Apply {
		return r, nil
	}

	e.stage(opts, "applying plan")
	for _, p := range results {
		if p.payload == nil {
			continue
		}
		if err := e.writeFile(ctx, p, opts.Syncback, r); err != nil {
			r.Error(p.action.TargetAbs, "write", err.Error())
		} else if opts.UserLog != nil {
			opts.UserLog.LogFile(p.result)
		}
	}
	if opts.UserLog != nil {
		for _, d := range r.Warnings {
			opts.UserLog.LogWarning(d)
		}
	}

	if e.cfg.Verify.IsEnabled() && !opts.NoVerify {
		e.stage(opts, "running verification")
		r.Verify = e.runVerification(ctx, outputRoot, results)
	}

	return r, nil
}

// processFile transforms one planned file and classifies its action.
// Strict-orphan violations come back wrapping structural.ErrOrphan so the
// caller can fail the run before applying; every other error has already
// been recorded against the file.
func (e *Engine) processFile(ctx context.Context, plan *Plan, action FileAction, r *report.Report) (processed, error) {
	if action.Binary {
		return e.processBinary(action, r)
	}

	raw, err := os.ReadFile(action.SourceAbs)
	if err != nil {
		r.Warn(action.SourceAbs, "read", "unreadable file skipped: "+err.Error())
		return processed{}, err
	}

	content, enc, err := textenc.Decode(raw)
	if err != nil {
		r.Warn(action.SourceAbs, "read", "no candidate encoding decodes this file, skipped")
		return processed{}, err
	}

	hits := 0
	switch {
	case e.sln.CanEdit(action.SourceRel):
		rewritten, diags, err := e.sln.Rewrite(content, action.SourceAbs, action.TargetAbs, plan.Index)
		for _, d := range diags {
			r.Warn(d.Path, d.Stage, d.Message)
		}
		if err != nil {
			return processed{}, err
		}
		content = rewritten
		result := e.replacer.Apply(content, action.Replacements)
		content, hits = result.Content, result.Hits
	case e.csproj.CanEdit(action.SourceRel):
		result := e.replacer.Apply(content, action.Replacements)
		content, hits = result.Content, result.Hits
		rewritten, diags, _ := e.csproj.Rewrite(content, action.SourceAbs, action.TargetAbs, plan.Index)
		for _, d := range diags {
			r.Warn(d.Path, d.Stage, d.Message)
		}
		content = rewritten
	default:
		result := e.replacer.Apply(content, action.Replacements)
		content, hits = result.Content, result.Hits
	}

	payload, err := textenc.Encode(content, enc)
	if err != nil {
		r.Warn(action.SourceAbs, "content", "cannot re-encode rewritten content, skipped: "+err.Error())
		return processed{}, err
	}

	p := processed{
		action: action,
		result: report.FileResult{
			SourceRel: action.SourceRel,
			TargetRel: action.TargetRel,
			Hits:      hits,
		},
	}
	p.result.Action = classify(action.TargetAbs, payload)
	if p.result.Changed() {
		p.payload = payload
	}
	return p, nil
}

// processBinary plans a verbatim copy: binary files are path-mapped but
// never content-rewritten.
func (e *Engine) processBinary(action FileAction, r *report.Report) (processed, error) {
	raw, err := os.ReadFile(action.SourceAbs)
	if err != nil {
		r.Warn(action.SourceAbs, "read", "unreadable file skipped: "+err.Error())
		return processed{}, err
	}

	p := processed{
		action: action,
		result: report.FileResult{
			SourceRel: action.SourceRel,
			TargetRel: action.TargetRel,
		},
	}
	switch classify(action.TargetAbs, raw) {
	case report.ActionCreate:
		p.result.Action = report.ActionCreate
		p.payload = raw
	case report.ActionUpdate:
		p.result.Action = report.ActionUpdate
		p.payload = raw
	default:
		p.result.Action = report.ActionSkipBinary
	}
	return p, nil
}

// classify compares the transformed payload against the current destination
// content by xxhash digest: absent destination is a create, differing digest
// an update.
func classify(targetAbs string, payload []byte) report.Action {
	existing, err := os.ReadFile(targetAbs)
	if err != nil {
		return report.ActionCreate
	}
	if xxhash.Sum64(existing) == xxhash.Sum64(payload) {
		return report.ActionSkipUnchanged
	}
	return report.ActionUpdate
}

// runVerification builds the tool list from the planned files that now exist
// on disk: a dotnet build per solution and a python compileall per rerooted
// package root.
func (e *Engine) runVerification(ctx context.Context, outputRoot string, results []processed) []report.VerifyResult {
	var slns, pyFiles []string
	for _, p := range results {
		switch strings.ToLower(filepath.Ext(p.action.TargetAbs)) {
		case ".sln":
			if _, err := os.Stat(p.action.TargetAbs); err == nil {
				slns = append(slns, p.action.TargetAbs)
			}
		case ".py":
			if _, err := os.Stat(p.action.TargetAbs); err == nil {
				pyFiles = append(pyFiles, p.action.TargetAbs)
			}
		}
	}

	var tools []verify.Tool
	if e.cfg.Verify.WantDotnetBuild() {
		tools = append(tools, verify.DotnetBuild(slns)...)
	}
	if e.cfg.Verify.WantPythonCompileall() {
		tools = append(tools, verify.CompileAll(verify.PythonRoots(outputRoot, pyFiles), outputRoot)...)
	}
	if len(tools) == 0 {
		return nil
	}
	concurrent := e.cfg.Verify != nil && e.cfg.Verify.Concurrent
	return verify.Run(ctx, tools, concurrent)
}

func (e *Engine) stage(opts Options, msg string) {
	if opts.UserLog != nil {
		opts.UserLog.LogStage(msg)
	}
}
