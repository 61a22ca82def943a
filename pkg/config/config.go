package config

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/rerootdev/reroot/pkg/pathmap"
	"github.com/rerootdev/reroot/pkg/structural"
	"github.com/rerootdev/reroot/pkg/text"
)

// SlnOptions controls solution-file rewriting.
type SlnOptions struct {
	OrphanPolicy string `json:"orphan_policy" yaml:"orphan_policy" hcl:"orphan_policy,optional"`
}

// VerifyOptions controls the optional post-apply verification stage.
// Enabled, DotnetBuild and PythonCompileall default to true when unset.
type VerifyOptions struct {
	Enabled          *bool `json:"enabled" yaml:"enabled" hcl:"enabled,optional"`
	DotnetBuild      *bool `json:"dotnet_build" yaml:"dotnet_build" hcl:"dotnet_build,optional"`
	PythonCompileall *bool `json:"python_compileall" yaml:"python_compileall" hcl:"python_compileall,optional"`
	Concurrent       bool  `json:"concurrent" yaml:"concurrent" hcl:"concurrent,optional"`
}

// IsEnabled reports whether verification should run after an apply.
func (v *VerifyOptions) IsEnabled() bool {
	return v == nil || v.Enabled == nil || *v.Enabled
}

// WantDotnetBuild reports whether written solutions get a dotnet build.
func (v *VerifyOptions) WantDotnetBuild() bool {
	return v == nil || v.DotnetBuild == nil || *v.DotnetBuild
}

// WantPythonCompileall reports whether written Python package roots get a
// compileall pass.
func (v *VerifyOptions) WantPythonCompileall() bool {
	return v == nil || v.PythonCompileall == nil || *v.PythonCompileall
}

// Config is the resolved rule set for one run. It is read-only input to the
// engine: rule order is load-bearing and CLI overrides append, never
// substitute.
type Config struct {
	Source           string         `json:"source" yaml:"source" hcl:"source,optional"`
	Target           string         `json:"target" yaml:"target" hcl:"target,optional"`
	PathMappings     []pathmap.Rule `json:"path_mappings" yaml:"path_mappings" hcl:"mapping,block"`
	ContentRules     []text.Rule    `json:"content_rules" yaml:"content_rules" hcl:"content_rule,block"`
	Sln              *SlnOptions    `json:"sln" yaml:"sln" hcl:"sln,block"`
	Verify           *VerifyOptions `json:"verify" yaml:"verify" hcl:"verify,block"`
	IncludeGlobs     []string       `json:"include_globs" yaml:"include_globs" hcl:"include_globs,optional"`
	ExcludeGlobs     []string       `json:"exclude_globs" yaml:"exclude_globs" hcl:"exclude_globs,optional"`
	IgnoreExtensions []string       `json:"ignore_extensions" yaml:"ignore_extensions" hcl:"ignore_extensions,optional"`
}

// OrphanPolicy returns the effective solution orphan policy.
func (cfg *Config) OrphanPolicy() structural.OrphanPolicy {
	if cfg.Sln == nil || cfg.Sln.OrphanPolicy == "" {
		return structural.OrphanWarn
	}
	return structural.OrphanPolicy(strings.ToLower(cfg.Sln.OrphanPolicy))
}

// Validate checks the rule fields the engine depends on. A validation
// failure is fatal before planning starts.
func (cfg *Config) Validate() error {
	switch cfg.OrphanPolicy() {
	case structural.OrphanWarn, structural.OrphanStrict:
	default:
		return errors.Errorf("sln.orphan_policy must be %q or %q", structural.OrphanWarn, structural.OrphanStrict)
	}
	for i, mapping := range cfg.PathMappings {
		if mapping.From == "" {
			return errors.Errorf("path_mappings[%d].from cannot be empty", i)
		}
	}
	return text.NewReplacer().ValidateRules(cfg.ContentRules)
}

// ParseInlineMappings parses repeatable --map from=to flag values.
func ParseInlineMappings(values []string) ([]pathmap.Rule, error) {
	rules := make([]pathmap.Rule, 0, len(values))
	for _, value := range values {
		from, to, err := splitPair(value, "mapping")
		if err != nil {
			return nil, err
		}
		rules = append(rules, pathmap.Rule{From: from, To: to})
	}
	return rules, nil
}

// ParseInlineReplacements parses repeatable --replace old=new flag values.
func ParseInlineReplacements(values []string) ([]text.Replacement, error) {
	replacements := make([]text.Replacement, 0, len(values))
	for _, value := range values {
		from, to, err := splitPair(value, "replacement")
		if err != nil {
			return nil, err
		}
		replacements = append(replacements, text.Replacement{From: from, To: to})
	}
	return replacements, nil
}

// MergeOverrides appends CLI-level rules on top of the config-file rules.
// Inline replacements become one trailing catch-all content rule so they run
// after every file-scoped rule, preserving the ordered-application contract.
func (cfg *Config) MergeOverrides(mappings []pathmap.Rule, replacements []text.Replacement, includes, excludes []string) error {
	cfg.PathMappings = append(cfg.PathMappings, mappings...)
	if len(replacements) > 0 {
		cfg.ContentRules = append(cfg.ContentRules, text.Rule{
			PathGlob:     "**/*",
			Replacements: replacements,
		})
	}
	cfg.IncludeGlobs = append(cfg.IncludeGlobs, includes...)
	cfg.ExcludeGlobs = append(cfg.ExcludeGlobs, excludes...)
	return cfg.Validate()
}

func splitPair(value, kind string) (string, string, error) {
	from, to, found := strings.Cut(value, "=")
	if !found {
		return "", "", errors.Errorf("invalid %s %q, expected from=to", kind, value)
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return "", "", errors.Errorf("invalid %s %q, empty from", kind, value)
	}
	return from, strings.TrimSpace(to), nil
}
