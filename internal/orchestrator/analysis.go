package orchestrator

import (
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

// Analysis is everything derived from one run over a repository. It is
// read-only once returned.
type Analysis struct {
	Root         string
	Files        []graph.FileNode
	Languages    []LanguageCount
	Chunks       []graph.Chunk
	Results      []FileResult
	Dependencies *graph.DependencyGraph
	Cycles       graph.EdgeSet
	Clusters     []graph.ClusterNode
	CallGraph    graph.CallGraph
	Classes      graph.ClassMap
	Registry     *wiki.Registry

	// Pages maps each wiki page to the source files it documents.
	Pages map[string][]string
}

// ModulePage maps a module identifier to a wiki page path:
// "shop.models" becomes "shop/models.md".
func ModulePage(module string) string {
	return strings.ReplaceAll(module, ".", "/") + ".md"
}

// Failed returns the files that could not be analyzed.
func (a *Analysis) Failed() []FileResult {
	var out []FileResult
	for _, r := range a.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// ChunksIn returns the chunks extracted from one file, in extraction order.
func (a *Analysis) ChunksIn(path string) []graph.Chunk {
	var out []graph.Chunk
	for _, c := range a.Chunks {
		if c.FilePath == path {
			out = append(out, c)
		}
	}
	return out
}

// PagePaths returns every planned wiki page, sorted.
func (a *Analysis) PagePaths() []string {
	out := make([]string, 0, len(a.Pages))
	for p := range a.Pages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CrossLinker returns a cross-linker over the analysis registry.
func (a *Analysis) CrossLinker() *wiki.CrossLinker {
	return wiki.NewCrossLinker(a.Registry)
}

// Export converts the analysis to its JSON export form.
func (a *Analysis) Export(exportedAt time.Time) *export.AnalysisExport {
	e := &export.AnalysisExport{
		Repo:         a.Root,
		ExportedAt:   exportedAt.UTC().Format(time.RFC3339),
		Files:        a.Files,
		Chunks:       a.Chunks,
		CallGraph:    a.CallGraph,
		EntryPoint:   a.CallGraph.EntryPoint(),
		Dependencies: a.Dependencies,
		Cycles:       a.Cycles.Sorted(),
		Clusters:     a.Clusters,
		Classes:      export.ClassList(a.Classes),
	}
	if a.Registry != nil {
		e.Entities = a.Registry.Entities()
	}
	for _, r := range a.Failed() {
		e.Errors = append(e.Errors, export.FileError{Path: r.Path, Error: r.Err.Error()})
	}
	e.Summarize()
	return e
}
