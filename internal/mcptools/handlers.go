package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/codewiki/internal/config"
	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/orchestrator"
	"github.com/dusk-indust/codewiki/internal/status"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

var errNoAnalysis = errors.New("no analysis loaded; call analyze_repo first")

// CodeIntelService holds the latest analysis and serves the MCP tool
// handlers from it.
type CodeIntelService struct {
	parser   graph.Parser
	newStore func() (graph.Store, error)
	metadata func(repoDir string) status.MetadataSource
	logger   *slog.Logger

	mu       sync.RWMutex
	repo     string
	cfg      *config.ProjectConfig
	analysis *orchestrator.Analysis
	store    graph.Store
	linker   *wiki.CrossLinker
}

// NewCodeIntelService creates a CodeIntelService. newStore opens the graph
// store for each analysis; nil means an in-memory store.
func NewCodeIntelService(parser graph.Parser, newStore func() (graph.Store, error)) *CodeIntelService {
	if newStore == nil {
		newStore = func() (graph.Store, error) { return graph.NewMemStore(), nil }
	}
	return &CodeIntelService{
		parser:   parser,
		newStore: newStore,
		metadata: func(repoDir string) status.MetadataSource { return status.NewGitMetadata(repoDir) },
		logger:   slog.Default(),
	}
}

// SetLogger replaces the service logger.
func (s *CodeIntelService) SetLogger(l *slog.Logger) {
	s.logger = l
}

// SetMetadataSource replaces the version-control metadata used by check_page.
func (s *CodeIntelService) SetMetadataSource(f func(repoDir string) status.MetadataSource) {
	s.metadata = f
}

// Close releases the store of the current analysis.
func (s *CodeIntelService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

type snapshot struct {
	repo     string
	cfg      *config.ProjectConfig
	analysis *orchestrator.Analysis
	store    graph.Store
	linker   *wiki.CrossLinker
}

func (s *CodeIntelService) current() (snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analysis == nil {
		return snapshot{}, errNoAnalysis
	}
	return snapshot{repo: s.repo, cfg: s.cfg, analysis: s.analysis, store: s.store, linker: s.linker}, nil
}

// AnalyzeRepo walks and parses a repository, builds every graph and the
// entity registry, and makes the result current for the other tools.
func (s *CodeIntelService) AnalyzeRepo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeRepoInput,
) (*mcp.CallToolResult, AnalyzeRepoOutput, error) {
	if input.RepoPath == "" {
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("repoPath is required")
	}
	info, err := os.Stat(input.RepoPath)
	if err != nil {
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("repoPath is not a directory: %s", input.RepoPath)
	}

	pc, err := config.Load(input.RepoPath)
	if err != nil {
		return nil, AnalyzeRepoOutput{}, err
	}
	if len(input.Languages) > 0 {
		pc.Languages = nil
		for _, l := range input.Languages {
			pc.Languages = append(pc.Languages, strings.ToLower(l))
		}
	}
	pc.ExcludeDirs = append(pc.ExcludeDirs, input.ExcludeDirs...)
	pc.IncludeTests = pc.IncludeTests || input.IncludeTests

	// The previous store is released first: a file-backed database can only
	// be opened once.
	s.mu.Lock()
	if s.store != nil {
		s.store.Close()
	}
	s.analysis, s.store, s.linker = nil, nil, nil
	s.mu.Unlock()

	store, err := s.newStore()
	if err != nil {
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("open store: %w", err)
	}
	ocfg := orchestrator.FromProject(input.RepoPath, pc)
	ocfg.Logger = s.logger
	pipeline := orchestrator.NewPipeline(ocfg, s.parser, store)
	defer pipeline.Close()

	a, err := pipeline.Analyze(ctx)
	if err != nil {
		store.Close()
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("analyze: %w", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		store.Close()
		return nil, AnalyzeRepoOutput{}, fmt.Errorf("stats: %w", err)
	}

	s.mu.Lock()
	s.repo, s.cfg, s.analysis, s.store, s.linker = input.RepoPath, pc, a, store, a.CrossLinker()
	s.mu.Unlock()

	e := a.Export(time.Now())
	return nil, AnalyzeRepoOutput{
		Summary:   e.Summary,
		Languages: a.Languages,
		Pages:     a.PagePaths(),
		Failed:    e.Errors,
		Stats:     *stats,
	}, nil
}

// QueryChunks searches chunks by name substring.
func (s *CodeIntelService) QueryChunks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryChunksInput,
) (*mcp.CallToolResult, QueryChunksOutput, error) {
	snap, err := s.current()
	if err != nil {
		return nil, QueryChunksOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	chunks, err := snap.store.QueryChunks(ctx, input.Query, graph.ChunkKind(strings.ToLower(input.Kind)), limit)
	if err != nil {
		return nil, QueryChunksOutput{}, fmt.Errorf("query chunks: %w", err)
	}

	hits := make([]ChunkHit, 0, len(chunks))
	for _, c := range chunks {
		hit := ChunkHit{QualifiedName: c.QualifiedName()}
		if e, ok := snap.analysis.Registry.Lookup(hit.QualifiedName); ok {
			hit.PagePath = e.PagePath
		}
		switch c.Kind {
		case graph.ChunkKindFunction, graph.ChunkKindMethod:
			sig := graph.NewFunctionSignature(c, c.ParentName)
			hit.Signature = &sig
		case graph.ChunkKindClass:
			var methods []graph.Chunk
			for _, m := range snap.analysis.ChunksIn(c.FilePath) {
				if m.Kind == graph.ChunkKindMethod && m.ParentName == c.Name {
					methods = append(methods, m)
				}
			}
			sig := graph.NewClassSignature(c, methods)
			hit.Class = &sig
		}
		if !input.IncludeContent {
			c.Content = ""
		}
		hit.Chunk = c
		hits = append(hits, hit)
	}
	return nil, QueryChunksOutput{Chunks: hits, Total: len(hits)}, nil
}

// GetCallGraph returns the call graph with its diagram and a sequence view.
func (s *CodeIntelService) GetCallGraph(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetCallGraphInput,
) (*mcp.CallToolResult, GetCallGraphOutput, error) {
	snap, err := s.current()
	if err != nil {
		return nil, GetCallGraphOutput{}, err
	}
	cg := snap.analysis.CallGraph
	maxNodes := input.MaxNodes
	if maxNodes <= 0 {
		maxNodes = snap.cfg.Diagrams.MaxNodes
	}
	depth := input.SequenceDepth
	if depth <= 0 {
		depth = snap.cfg.Diagrams.SequenceDepth
	}
	entry := input.Entry
	if entry == "" {
		entry = cg.EntryPoint()
	}

	events := cg.SequenceFrom(entry, depth)
	return nil, GetCallGraphOutput{
		Calls:      cg,
		EdgeCount:  cg.EdgeCount(),
		EntryPoint: entry,
		Diagram:    export.CallGraphDiagram(cg, maxNodes),
		Sequence:   events,
		SeqDiagram: export.SequenceDiagram(events),
	}, nil
}

// GetDependencyGraph returns the module graph, its cycles and clusters, and
// optionally the dependency chains around one module.
func (s *CodeIntelService) GetDependencyGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependencyGraphInput,
) (*mcp.CallToolResult, GetDependencyGraphOutput, error) {
	snap, err := s.current()
	if err != nil {
		return nil, GetDependencyGraphOutput{}, err
	}
	dg := snap.analysis.Dependencies
	maxExternal := input.MaxExternal
	switch {
	case maxExternal < 0:
		maxExternal = 0
	case maxExternal == 0:
		maxExternal = snap.cfg.Diagrams.MaxExternal
	}

	out := GetDependencyGraphOutput{
		Modules:  dg.Modules,
		Cycles:   snap.analysis.Cycles.Sorted(),
		Clusters: snap.analysis.Clusters,
		Diagram:  export.DependencyDiagram(dg, snap.analysis.Cycles, export.DependencyOptions{MaxExternal: maxExternal}),
	}
	if maxExternal > 0 {
		out.External = dg.TopExternal(maxExternal)
	}

	if input.NodeID != "" {
		if _, ok := dg.Internal[input.NodeID]; !ok {
			return nil, GetDependencyGraphOutput{}, fmt.Errorf("unknown module %q", input.NodeID)
		}
		maxDepth := input.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 5
		}
		dir := graph.ParseDirection(strings.ToLower(input.Direction))
		chains, err := snap.store.GetDependencies(ctx, input.NodeID, graph.EdgeKindImports, dir, maxDepth)
		if err != nil {
			return nil, GetDependencyGraphOutput{}, fmt.Errorf("get dependencies: %w", err)
		}
		out.Chains = chains
	}
	return nil, out, nil
}

// CrosslinkPage rewrites a wiki page so mentions of known entities link to
// their pages.
func (s *CodeIntelService) CrosslinkPage(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CrosslinkPageInput,
) (*mcp.CallToolResult, CrosslinkPageOutput, error) {
	if input.PagePath == "" {
		return nil, CrosslinkPageOutput{}, fmt.Errorf("pagePath is required")
	}
	snap, err := s.current()
	if err != nil {
		return nil, CrosslinkPageOutput{}, err
	}
	page := snap.linker.Rewrite(wiki.Page{Path: input.PagePath, Content: input.Content})
	return nil, CrosslinkPageOutput{Content: page.Content, Changed: page.Content != input.Content}, nil
}

// CheckPage reports whether a page must be regenerated and whether its
// sources changed after it was generated.
func (s *CodeIntelService) CheckPage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CheckPageInput,
) (*mcp.CallToolResult, CheckPageOutput, error) {
	if input.PagePath == "" {
		return nil, CheckPageOutput{}, fmt.Errorf("pagePath is required")
	}
	snap, err := s.current()
	if err != nil {
		return nil, CheckPageOutput{}, err
	}
	files := input.Files
	if len(files) == 0 {
		files = snap.analysis.Pages[input.PagePath]
	}
	if len(files) == 0 {
		return nil, CheckPageOutput{}, fmt.Errorf("no source files known for page %q", input.PagePath)
	}

	statusPath := snap.cfg.StatusFile
	if !filepath.IsAbs(statusPath) {
		statusPath = filepath.Join(snap.repo, statusPath)
	}
	tracker, err := status.LoadTracker(statusPath, os.DirFS(snap.repo))
	if err != nil {
		return nil, CheckPageOutput{}, err
	}

	out := CheckPageOutput{
		PagePath:          input.PagePath,
		Files:             files,
		NeedsRegeneration: tracker.NeedsRegeneration(input.PagePath, files),
	}
	rec, err := tracker.Get(input.PagePath)
	if errors.Is(err, status.ErrNoRecord) {
		return nil, out, nil
	}
	if err != nil {
		return nil, CheckPageOutput{}, err
	}
	out.Recorded = true
	out.GeneratedAt = rec.GeneratedAt.Format(time.RFC3339)

	meta, err := s.metadata(snap.repo).LastModified(ctx, files)
	if err != nil {
		s.logger.Warn("source history unavailable", "page", input.PagePath, "error", err)
		return nil, out, nil
	}
	checker := status.Checker{Threshold: snap.cfg.Threshold()}
	if stale := checker.Check(input.PagePath, rec.GeneratedAt, files, meta); stale != nil {
		out.Stale = true
		out.DaysStale = stale.DaysStale
		out.NewestFile = stale.NewestFile
		out.Banner = status.FormatBanner(*stale)
	}
	return nil, out, nil
}
