// Package config holds the settings passed to each stage of a deploy run.
//
// The compiled-in defaults reproduce the fixed layout of the grader project.
// An optional YAML file may override any of them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/savaki/grader-deployer/internal/constants"
	"github.com/savaki/grader-deployer/internal/errors"
	"gopkg.in/yaml.v3"
)

// StripMode selects how archive entry names are derived from walked paths
type StripMode string

const (
	// StripPositional drops a fixed number of leading characters, equal to
	// the length of the output directory name plus its separator
	StripPositional StripMode = "positional"

	// StripSemantic uses the path relative to the output directory
	StripSemantic StripMode = "semantic"
)

// SyncDir is one directory copied from the external project into the working tree
type SyncDir struct {
	From string `yaml:"from"` // Relative to Config.SourceRoot
	To   string `yaml:"to"`   // Relative to the working directory
}

// Compiler describes the external compiler invocation
type Compiler struct {
	Command     string `yaml:"command"`      // Compiler binary, e.g. tsc
	ProjectFlag string `yaml:"project_flag"` // Project mode flag, e.g. -p
	ProjectDir  string `yaml:"project_dir"`  // Directory holding the compiler config
}

// Args returns the compiler arguments
func (c Compiler) Args() []string {
	return []string{c.ProjectFlag, c.ProjectDir}
}

// Config holds every setting used by a deploy run
type Config struct {
	SourceRoot string    `yaml:"source_root"` // External project root; defaults to the credential file's mobius_directory
	SyncDirs   []SyncDir `yaml:"sync_dirs"`
	Compiler   Compiler  `yaml:"compiler"`

	OutputDir    string    `yaml:"output_dir"`    // Build output walked by the archive stage
	StripMode    StripMode `yaml:"strip_mode"`    // positional or semantic
	MetadataFile string    `yaml:"metadata_file"` // JSON file copied into OutputDir before archiving
	ArchivePath  string    `yaml:"archive_path"`

	Region         string            `yaml:"region"`
	Targets        []string          `yaml:"targets"` // Ordered function names or ARNs
	Aliases        map[string]string `yaml:"aliases"` // Short names for targets, e.g. dev, main
	PublishVersion bool              `yaml:"publish_version"`

	TargetsParameter string `yaml:"targets_parameter"` // Optional SSM parameter holding a comma separated target list
	ArtifactBucket   string `yaml:"artifact_bucket"`   // Optional S3 bucket receiving a copy of each archive
	ArtifactPrefix   string `yaml:"artifact_prefix"`
	HistoryTable     string `yaml:"history_table"` // Optional DynamoDB table recording releases
}

// Default returns the configuration of the grader project
func Default() Config {
	return Config{
		SyncDirs: []SyncDir{
			{From: "src/assets/core", To: "src/core"},
			{From: "src/assets/libs", To: "src/libs"},
			{From: "src/app/shared/decorators", To: "src/decorators"},
			{From: "src/app/shared/models", To: "src/model"},
			{From: "src/app/shared/utils", To: "src/utils"},
		},
		Compiler: Compiler{
			Command:     constants.CompilerCommand,
			ProjectFlag: constants.ProjectFlag,
			ProjectDir:  ".",
		},
		OutputDir:    constants.OutputDir,
		StripMode:    StripPositional,
		MetadataFile: constants.MetadataFile,
		ArchivePath:  constants.ArchivePath,
		Region:       constants.DefaultRegion,
		Targets:      []string{constants.DevFunctionARN},
		Aliases: map[string]string{
			"dev":  constants.DevFunctionARN,
			"main": constants.MainFunctionARN,
		},
		ArtifactPrefix: "grader",
	}
}

// Load reads path and applies it on top of Default. Fields absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the settings needed by every stage
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.ArchivePath == "" {
		return fmt.Errorf("archive_path is required")
	}
	if c.Compiler.Command == "" {
		return fmt.Errorf("compiler.command is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}

	switch c.StripMode {
	case StripPositional, StripSemantic:
	default:
		return fmt.Errorf("strip_mode must be %q or %q, got %q", StripPositional, StripSemantic, c.StripMode)
	}

	// An archive written inside the output directory would be packed into the next run
	rel, err := filepath.Rel(filepath.Clean(c.OutputDir), filepath.Clean(c.ArchivePath))
	if err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("archive_path %s must not be inside output_dir %s", c.ArchivePath, c.OutputDir)
	}

	return nil
}

// ResolveTargets maps names to target identifiers, preserving order. Names
// matching an alias are replaced by the aliased identifier; any other name is
// used as-is. With no names, the configured Targets are returned.
func (c Config) ResolveTargets(names ...string) ([]string, error) {
	if len(names) == 0 {
		names = c.Targets
	}

	var targets []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: blank target name", errors.ErrUnknownTarget)
		}
		if arn, ok := c.Aliases[name]; ok {
			name = arn
		}
		targets = append(targets, name)
	}

	if len(targets) == 0 {
		return nil, errors.ErrNoTargets
	}

	return targets, nil
}

// SyncPairs returns absolute-from, working-tree-relative-to pairs for every SyncDir
func (c Config) SyncPairs() []SyncDir {
	pairs := make([]SyncDir, 0, len(c.SyncDirs))
	for _, d := range c.SyncDirs {
		pairs = append(pairs, SyncDir{
			From: filepath.Join(c.SourceRoot, filepath.FromSlash(d.From)),
			To:   filepath.FromSlash(d.To),
		})
	}
	return pairs
}
