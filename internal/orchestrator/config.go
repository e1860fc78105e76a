package orchestrator

import (
	"log/slog"

	"github.com/dusk-indust/codewiki/internal/config"
	"github.com/dusk-indust/codewiki/internal/graph"
)

// Config holds runtime configuration for an analysis run.
type Config struct {
	// Root is the repository directory to analyze.
	Root string

	// Languages restricts the walk. Empty means every supported language.
	Languages []graph.Language

	// ExcludeDirs are directory names skipped anywhere in the tree.
	ExcludeDirs []string

	// Modules controls module identifiers for the dependency graph.
	Modules graph.ModuleOptions

	// Concurrency bounds parallel parsing. Zero means config.DefaultConcurrency.
	Concurrency int

	// CallFilter drops noise from call graphs. Nil means the default denylist.
	CallFilter *graph.CallFilter

	// PageFor maps a module identifier to its wiki page path. Nil means
	// ModulePage.
	PageFor func(module string) string

	// Logger receives per-file failures and run summaries. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// FromProject builds a Config for root from a loaded project config.
func FromProject(root string, pc *config.ProjectConfig) Config {
	cfg := Config{
		Root:        root,
		ExcludeDirs: pc.ExcludeDirs,
		Modules: graph.ModuleOptions{
			SourceRoots:  pc.SourceRoots,
			PackageDir:   pc.PackageDir,
			IncludeTests: pc.IncludeTests,
		},
		Concurrency: pc.Concurrency,
		CallFilter:  graph.NewCallFilter(pc.Calls.Denylist, pc.Calls.ExtraDenylist...),
	}
	for _, l := range pc.Languages {
		cfg.Languages = append(cfg.Languages, graph.Language(l))
	}
	return cfg
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return config.DefaultConcurrency
}

func (c Config) pageFor(module string) string {
	if c.PageFor != nil {
		return c.PageFor(module)
	}
	return ModulePage(module)
}
