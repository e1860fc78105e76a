package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

// AnalysisExport is the top-level JSON export of one analysis run.
type AnalysisExport struct {
	Repo         string                 `json:"repo"`
	ExportedAt   string                 `json:"exportedAt"`
	Summary      Summary                `json:"summary"`
	Files        []graph.FileNode       `json:"files"`
	Chunks       []graph.Chunk          `json:"chunks"`
	CallGraph    graph.CallGraph        `json:"callGraph"`
	EntryPoint   string                 `json:"entryPoint,omitempty"`
	Dependencies *graph.DependencyGraph `json:"dependencies,omitempty"`
	Cycles       []graph.ModuleEdge     `json:"cycles,omitempty"`
	Clusters     []graph.ClusterNode    `json:"clusters,omitempty"`
	Classes      []*graph.ClassNode     `json:"classes,omitempty"`
	Entities     []wiki.EntityInfo      `json:"entities,omitempty"`
	Errors       []FileError            `json:"errors,omitempty"`
}

// Summary holds the headline counts of an analysis.
type Summary struct {
	Files     int `json:"files"`
	Chunks    int `json:"chunks"`
	Classes   int `json:"classes"`
	Functions int `json:"functions"`
	Methods   int `json:"methods"`
	CallEdges int `json:"callEdges"`
	Modules   int `json:"modules"`
	Cycles    int `json:"cycles"`
	Failed    int `json:"failed"`
}

// FileError records a file that could not be analyzed.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summarize fills e.Summary from the exported collections.
func (e *AnalysisExport) Summarize() {
	s := Summary{
		Files:     len(e.Files),
		Chunks:    len(e.Chunks),
		CallEdges: e.CallGraph.EdgeCount(),
		Cycles:    len(e.Cycles),
		Failed:    len(e.Errors),
	}
	for _, c := range e.Chunks {
		switch c.Kind {
		case graph.ChunkKindClass:
			s.Classes++
		case graph.ChunkKindFunction:
			s.Functions++
		case graph.ChunkKindMethod:
			s.Methods++
		}
	}
	if e.Dependencies != nil {
		s.Modules = len(e.Dependencies.Modules)
	}
	e.Summary = s
}

// ClassList flattens a ClassMap into a name-sorted slice.
func ClassList(classes graph.ClassMap) []*graph.ClassNode {
	out := make([]*graph.ClassNode, 0, len(classes))
	for _, name := range classes.Names() {
		out = append(out, classes[name])
	}
	return out
}

// WriteJSON encodes e as indented JSON. Chunk bodies are dropped unless
// includeContent is set.
func WriteJSON(w io.Writer, e *AnalysisExport, includeContent bool) error {
	out := *e
	if !includeContent {
		out.Chunks = make([]graph.Chunk, len(e.Chunks))
		for i, c := range e.Chunks {
			c.Content = ""
			out.Chunks[i] = c
		}
	}
	out.Errors = append([]FileError(nil), e.Errors...)
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Path < out.Errors[j].Path })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return nil
}

// WriteJSONFile writes the export to path, creating parent directories.
func WriteJSONFile(path string, e *AnalysisExport, includeContent bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteJSON(f, e, includeContent); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON decodes an export previously written by WriteJSON.
func ReadJSON(r io.Reader) (*AnalysisExport, error) {
	var e AnalysisExport
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &e, nil
}
