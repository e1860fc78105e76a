package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline implements Orchestrator. It walks the repository, parses files
// through a FanOut, builds the derived graphs and the entity registry, and
// persists the result to an optional graph store.
type Pipeline struct {
	cfg      Config
	parser   graph.Parser
	store    graph.Store
	sources  fs.FS
	progress *ProgressReporter
}

// NewPipeline creates a Pipeline reading sources from cfg.Root. store may
// be nil, in which case nothing is persisted.
func NewPipeline(cfg Config, parser graph.Parser, store graph.Store) *Pipeline {
	var sources fs.FS
	if cfg.Root != "" {
		sources = os.DirFS(cfg.Root)
	}
	return &Pipeline{
		cfg:      cfg,
		parser:   parser,
		store:    store,
		sources:  sources,
		progress: NewProgressReporter(),
	}
}

// WithSources replaces the file system the pipeline reads from.
func (p *Pipeline) WithSources(sources fs.FS) *Pipeline {
	p.sources = sources
	return p
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}

func (p *Pipeline) emit(ev ProgressEvent) {
	p.progress.Emit(ev)
	LogProgress(p.cfg.logger())(ev)
}

// Analyze runs every stage. Per-file failures are recorded in
// Analysis.Results and never abort the run; only a failed walk, a canceled
// context or a store error does.
func (p *Pipeline) Analyze(ctx context.Context) (*Analysis, error) {
	start := time.Now()
	logger := p.cfg.logger()
	if p.sources == nil {
		return nil, fmt.Errorf("pipeline: no source root configured")
	}

	p.emit(ProgressEvent{Stage: StageWalk, Section: FormatStageHeader(p.cfg.Root, StageWalk), Status: ProgressWorking})
	files, err := Walk(p.sources, p.cfg.Languages, p.cfg.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.emit(ProgressEvent{Stage: StageWalk, Section: p.cfg.Root, Status: ProgressComplete, Message: fmt.Sprintf("%d files", len(files))})

	fan := NewFanOut(p.parser, p.sources, p.cfg.concurrency(), p.emit)
	parsed, results, err := fan.Run(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse: %w", err)
	}

	a := p.build(files, parsed, results)

	if p.store != nil {
		p.emit(ProgressEvent{Stage: StagePersist, Section: "store", Status: ProgressWorking})
		if err := Persist(ctx, p.store, a); err != nil {
			p.emit(ProgressEvent{Stage: StagePersist, Section: "store", Status: ProgressFailed, Message: err.Error()})
			return nil, fmt.Errorf("pipeline: persist: %w", err)
		}
		p.emit(ProgressEvent{Stage: StagePersist, Section: "store", Status: ProgressComplete})
	}

	if ambiguous := a.Registry.AmbiguousAliases(); len(ambiguous) > 0 {
		logger.Debug("ambiguous aliases left unlinked", "aliases", ambiguous)
	}
	logger.Info("analysis complete",
		"root", p.cfg.Root,
		"language", PrimaryLanguage(files),
		"files", len(a.Files),
		"failed", len(a.Failed()),
		"chunks", len(a.Chunks),
		"modules", len(a.Dependencies.Modules),
		"cycles", len(a.Cycles),
		"pages", len(a.Pages),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return a, nil
}

// build derives the graphs and the registry from parse results. The
// registry is filled sequentially here, after every parse has finished,
// and frozen before it is handed out.
func (p *Pipeline) build(files []SourceFile, parsed []*graph.ParseResult, results []FileResult) *Analysis {
	a := &Analysis{
		Root:      p.cfg.Root,
		Languages: DetectLanguages(files),
		Results:   results,
		Pages:     make(map[string][]string),
	}

	p.emit(ProgressEvent{Stage: StageGraph, Section: "graphs", Status: ProgressWorking})
	var ok []*graph.ParseResult
	var imports []graph.FileImports
	var paths []string
	for _, res := range parsed {
		if res == nil {
			continue
		}
		ok = append(ok, res)
		a.Files = append(a.Files, res.File)
		a.Chunks = append(a.Chunks, res.Chunks...)
		paths = append(paths, res.File.Path)
		imports = append(imports, graph.FileImports{
			Path:     res.File.Path,
			Language: res.File.Language,
			Lines:    res.Imports(),
		})
	}

	resolver := graph.NewResolver(p.cfg.Root, paths)
	a.Dependencies = graph.BuildDependencyGraph(imports, p.cfg.Modules, resolver)
	a.Cycles = graph.DetectCycles(a.Dependencies.Internal)
	a.Clusters = graph.NamespaceClusters(a.Dependencies)
	a.CallGraph = graph.BuildCallGraph(a.Chunks, p.cfg.CallFilter)
	a.Classes = graph.BuildClassNodes(a.Chunks)
	p.emit(ProgressEvent{Stage: StageGraph, Section: "graphs", Status: ProgressComplete})

	p.emit(ProgressEvent{Stage: StageRegistry, Section: "entities", Status: ProgressWorking})
	modOpts := p.cfg.Modules
	modOpts.PackageDir = a.Dependencies.PackageDir
	builder := wiki.NewRegistryBuilder()
	for i := range a.Files {
		f := &a.Files[i]
		module, found := a.Dependencies.FileModules[f.Path]
		if !found {
			module = graph.ModuleID(f.Path, modOpts)
		}
		f.Module = module
		page := p.cfg.pageFor(module)
		a.Pages[page] = append(a.Pages[page], f.Path)
		builder.RegisterFromChunks(ok[i].Definitions(), page)
	}
	a.Registry = builder.Build()
	p.emit(ProgressEvent{Stage: StageRegistry, Section: "entities", Status: ProgressComplete, Message: fmt.Sprintf("%d entities", a.Registry.Len())})
	return a
}

// Persist writes an analysis to store: files, chunks, DEFINES, IMPORTS,
// CALLS and INHERITS edges, and namespace clusters with BELONGS edges.
func Persist(ctx context.Context, store graph.Store, a *Analysis) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	for _, f := range a.Files {
		if err := store.AddFile(ctx, f); err != nil {
			return fmt.Errorf("add file %s: %w", f.Path, err)
		}
	}
	for _, c := range a.Chunks {
		if err := store.AddChunk(ctx, c); err != nil {
			return fmt.Errorf("add chunk %s: %w", c.ID, err)
		}
		if err := store.AddEdge(ctx, graph.Edge{SourceID: c.FilePath, TargetID: c.ID, Kind: graph.EdgeKindDefines}); err != nil {
			return err
		}
	}

	var edges []graph.Edge
	for _, e := range a.Dependencies.Edges() {
		edges = append(edges, graph.Edge{SourceID: e.From, TargetID: e.To, Kind: graph.EdgeKindImports})
	}
	for _, caller := range a.CallGraph.Callers() {
		for _, callee := range a.CallGraph[caller] {
			edges = append(edges, graph.Edge{SourceID: caller, TargetID: callee, Kind: graph.EdgeKindCalls})
		}
	}
	for _, name := range a.Classes.Names() {
		for _, parent := range a.Classes.ResolvedParents(name) {
			edges = append(edges, graph.Edge{SourceID: name, TargetID: parent, Kind: graph.EdgeKindInherits})
		}
	}
	for _, e := range edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("add %s edge: %w", e.Kind, err)
		}
	}

	if _, err := graph.ComputeClusters(ctx, store, a.Dependencies); err != nil {
		return fmt.Errorf("clusters: %w", err)
	}
	return nil
}
