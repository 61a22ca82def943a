package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/rerootdev/reroot/pkg/config"
	"github.com/rerootdev/reroot/pkg/engine"
	"github.com/rerootdev/reroot/pkg/report"
)

var (
	// Flags
	srcFlag   string
	dstFlag   string
	mapConfig string
	mapFlags  []string
	replFlags []string
	includes  []string
	excludes  []string
	applyFlag bool
	syncback  bool
	noVerify  bool
	noColor   bool
	logLevel  string
	debug     bool
)

// addRootFlags wires the shared flags onto the root command.
func addRootFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&srcFlag, "src", "", "source root path (overrides config 'source')")
	cmd.Flags().StringVar(&dstFlag, "dst", "", "destination root path (overrides config 'target')")
	cmd.Flags().StringVarP(&mapConfig, "mapconfig", "c", "", "path to .json/.yaml/.yml/.hcl config")
	cmd.Flags().StringArrayVar(&mapFlags, "map", nil, "path mapping from=to (repeatable, appended after config rules)")
	cmd.Flags().StringArrayVar(&replFlags, "replace", nil, "content replacement from=to (repeatable)")
	cmd.Flags().StringArrayVar(&includes, "include", nil, "include glob (repeatable)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "exclude glob (repeatable)")
	cmd.Flags().BoolVar(&applyFlag, "apply", false, "apply changes (default dry-run)")
	cmd.Flags().BoolVar(&syncback, "syncback", false, "reverse sync, target tree back to source")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip verification steps")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored console output")
	cmd.Flags().StringVar(&logLevel, "log-level", "debug", "console detail level: summary|normal|debug")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags.
func setupLogging(cmd *cobra.Command) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// runSync resolves configuration, runs the engine, renders the report, and
// exits with 0 (success), 1 (run errors) or 2 (verification failures).
func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	srcRoot, dstRoot, err := resolveRoots(cfg)
	if err != nil {
		return err
	}

	userLog := report.NewUserLogger(ctx, applyFlag && !noColor)
	eng := engine.New(cfg)
	r, err := eng.Run(ctx, engine.Options{
		SourceRoot: srcRoot,
		TargetRoot: dstRoot,
		Apply:      applyFlag,
		Syncback:   syncback,
		NoVerify:   noVerify,
		UserLog:    userLog,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(r, report.RenderOptions{
		Color: !noColor,
		Level: report.Level(logLevel),
	}))

	if code := r.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// buildConfig loads the config file (when given) and appends CLI overrides.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if mapConfig != "" {
		loaded, err := config.Load(cmd.Context(), mapConfig)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	mappings, err := config.ParseInlineMappings(mapFlags)
	if err != nil {
		return nil, err
	}
	replacements, err := config.ParseInlineReplacements(replFlags)
	if err != nil {
		return nil, err
	}
	if err := cfg.MergeOverrides(mappings, replacements, includes, excludes); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRoots applies the flag-over-config precedence and makes both roots
// absolute. The source root must exist; the target root is created on apply.
func resolveRoots(cfg *config.Config) (string, string, error) {
	srcValue := srcFlag
	if srcValue == "" {
		srcValue = cfg.Source
	}
	dstValue := dstFlag
	if dstValue == "" {
		dstValue = cfg.Target
	}
	if srcValue == "" {
		return "", "", errors.New("missing source path: pass --src or set 'source' in --mapconfig")
	}
	if dstValue == "" {
		return "", "", errors.New("missing target path: pass --dst or set 'target' in --mapconfig")
	}

	srcRoot, err := filepath.Abs(srcValue)
	if err != nil {
		return "", "", errors.Errorf("resolving source root: %w", err)
	}
	dstRoot, err := filepath.Abs(dstValue)
	if err != nil {
		return "", "", errors.Errorf("resolving target root: %w", err)
	}

	info, err := os.Stat(srcRoot)
	if err != nil || !info.IsDir() {
		return "", "", errors.Errorf("source root not found or not a directory: %s", srcRoot)
	}
	return srcRoot, dstRoot, nil
}
