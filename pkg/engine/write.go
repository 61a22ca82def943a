package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rerootdev/reroot/pkg/report"
)

// writeFile lands one processed entry on disk. Writes go through a temp
// file and rename so an interrupted run never leaves a half-written file.
//
// Syncback asymmetry: when backfilling the original source tree, a missing
// destination directory means the file has no home there and is skipped
// with a warning; a missing file under an existing directory is created.
// Forward runs create parent directories unconditionally.
func (e *Engine) writeFile(ctx context.Context, p processed, syncback bool, r *report.Report) error {
	dir := filepath.Dir(p.action.TargetAbs)

	if syncback {
		if _, err := os.Stat(dir); err != nil {
			r.Warn(p.action.TargetAbs, "write", "skip create, missing source directory")
			return nil
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	if err := writeFileAtomic(p.action.TargetAbs, p.payload); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("target", p.action.TargetAbs).
		Str("action", string(p.result.Action)).
		Msg("wrote file")
	return nil
}

// writeFileAtomic writes content to a sibling temp file and renames it into
// place, so readers only ever observe complete files.
func writeFileAtomic(path string, content []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
