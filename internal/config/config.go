package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileNames are the config file names tried, in order.
var FileNames = []string{"codewiki.yml", "codewiki.yaml"}

// ProjectConfig holds project-level settings loaded from codewiki.yml.
type ProjectConfig struct {
	OutputDir    string          `yaml:"outputDir,omitempty"`
	Languages    []string        `yaml:"languages,omitempty"`
	ExcludeDirs  []string        `yaml:"excludeDirs,omitempty"`
	SourceRoots  []string        `yaml:"sourceRoots,omitempty"`
	PackageDir   string          `yaml:"packageDir,omitempty"`
	IncludeTests bool            `yaml:"includeTests,omitempty"`
	Concurrency  int             `yaml:"concurrency,omitempty"`
	StatusFile   string          `yaml:"statusFile,omitempty"`
	Calls        CallsConfig     `yaml:"calls,omitempty"`
	Diagrams     DiagramsConfig  `yaml:"diagrams,omitempty"`
	Staleness    StalenessConfig `yaml:"staleness,omitempty"`
}

// CallsConfig tunes call-graph noise filtering.
type CallsConfig struct {
	Denylist      []string `yaml:"denylist,omitempty"` // replaces the built-in list
	ExtraDenylist []string `yaml:"extraDenylist,omitempty"`
}

// DiagramsConfig bounds generated diagrams.
type DiagramsConfig struct {
	MaxNodes      int `yaml:"maxNodes,omitempty"`
	SequenceDepth int `yaml:"sequenceDepth,omitempty"`
	MaxExternal   int `yaml:"maxExternal,omitempty"`
}

// StalenessConfig sets how far sources may run ahead of a page.
type StalenessConfig struct {
	ThresholdHours int `yaml:"thresholdHours,omitempty"`
}

// Default values filled in by Defaults.
const (
	DefaultOutputDir      = "wiki"
	DefaultConcurrency    = 8
	DefaultMaxNodes       = 40
	DefaultSequenceDepth  = 4
	DefaultMaxExternal    = 8
	DefaultThresholdHours = 24
)

// DefaultExcludeDirs are never walked.
var DefaultExcludeDirs = []string{".git", "node_modules", "vendor", "target", "dist", "build", "__pycache__", ".venv"}

// Defaults fills every zero field with its default value.
func (c *ProjectConfig) Defaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if len(c.ExcludeDirs) == 0 {
		c.ExcludeDirs = append([]string(nil), DefaultExcludeDirs...)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.StatusFile == "" {
		c.StatusFile = filepath.Join(c.OutputDir, ".codewiki", "status.json")
	}
	if c.Diagrams.MaxNodes <= 0 {
		c.Diagrams.MaxNodes = DefaultMaxNodes
	}
	if c.Diagrams.SequenceDepth <= 0 {
		c.Diagrams.SequenceDepth = DefaultSequenceDepth
	}
	if c.Diagrams.MaxExternal < 0 {
		c.Diagrams.MaxExternal = 0
	} else if c.Diagrams.MaxExternal == 0 {
		c.Diagrams.MaxExternal = DefaultMaxExternal
	}
	if c.Staleness.ThresholdHours <= 0 {
		c.Staleness.ThresholdHours = DefaultThresholdHours
	}
}

// Threshold returns the staleness threshold as a duration.
func (c *ProjectConfig) Threshold() time.Duration {
	return time.Duration(c.Staleness.ThresholdHours) * time.Hour
}

// Load attempts to read codewiki.yml or codewiki.yaml from the given
// directory and fills defaults. A missing config file is not an error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}
	cfg.Defaults()
	return cfg, nil
}
