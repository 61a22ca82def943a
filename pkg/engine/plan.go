package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rerootdev/reroot/pkg/config"
	"github.com/rerootdev/reroot/pkg/matcher"
	"github.com/rerootdev/reroot/pkg/pathmap"
	"github.com/rerootdev/reroot/pkg/structural"
	"github.com/rerootdev/reroot/pkg/text"
)

// FileAction is one planned file: where it comes from, where it goes, and
// which replacements apply to its content.
type FileAction struct {
	SourceAbs string
	SourceRel string // slash-separated, relative to the walked root
	TargetAbs string
	TargetRel string
	Binary    bool
	Ignored   bool // excluded by the root's ignore file

	// Replacements is the file's matching content-rule replacements merged
	// with the path-mapping pairs, so path-shaped tokens inside the content
	// follow the same rules as the tree itself. Empty for binary files.
	Replacements []text.Replacement
}

// Plan is the immutable set of per-file decisions for one run. Dry-run
// renders it; apply executes it.
type Plan struct {
	SourceRoot string
	TargetRoot string
	Direction  pathmap.Direction
	Actions    []FileAction

	// Index maps planned absolute source paths to absolute destinations;
	// the structural editors consult it to resolve project references.
	Index structural.PathIndex

	// Warnings collects non-fatal planning problems, like an unreadable
	// ignore file.
	Warnings []string
}

// BuildPlan walks srcRoot depth-first in lexical order and computes the
// destination for every eligible file. Walk failures are fatal: they abort
// the run before any write.
func BuildPlan(ctx context.Context, srcRoot, dstRoot string, cfg *config.Config, dir pathmap.Direction) (*Plan, error) {
	info, err := os.Stat(srcRoot)
	if err != nil {
		return nil, errors.Errorf("resolving walk root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("walk root is not a directory: %s", srcRoot)
	}

	m := matcher.New(ctx, srcRoot, cfg.IncludeGlobs, cfg.ExcludeGlobs, cfg.IgnoreExtensions)
	replacer := text.NewReplacer()
	mappingReplacements := pathmap.Replacements(cfg.PathMappings, dir)

	plan := &Plan{
		SourceRoot: srcRoot,
		TargetRoot: dstRoot,
		Direction:  dir,
		Index:      structural.PathIndex{},
	}
	if m.Warning != "" {
		plan.Warnings = append(plan.Warnings, m.Warning)
	}

	walkErr := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if m.Ignored(rel) {
			plan.Actions = append(plan.Actions, FileAction{
				SourceAbs: path,
				SourceRel: rel,
				Ignored:   true,
			})
			return nil
		}
		if !m.Eligible(rel) {
			return nil
		}

		targetRel := pathmap.Apply(rel, cfg.PathMappings, dir)
		targetAbs := filepath.Join(dstRoot, filepath.FromSlash(targetRel))

		action := FileAction{
			SourceAbs: path,
			SourceRel: rel,
			TargetAbs: targetAbs,
			TargetRel: targetRel,
			Binary:    matcher.IsBinary(path, rel),
		}
		if !action.Binary {
			selected := replacer.Select(rel, cfg.ContentRules, dir == pathmap.Reverse)
			action.Replacements = text.Merge(selected, mappingReplacements)
		}

		plan.Actions = append(plan.Actions, action)
		plan.Index[filepath.Clean(path)] = filepath.Clean(targetAbs)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	zerolog.Ctx(ctx).Debug().
		Int("actions", len(plan.Actions)).
		Str("root", srcRoot).
		Msg("plan ready")
	return plan, nil
}
