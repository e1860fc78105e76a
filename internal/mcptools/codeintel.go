package mcptools

import (
	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/orchestrator"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// AnalyzeRepoInput is the input for the analyze_repo MCP tool.
type AnalyzeRepoInput struct {
	RepoPath     string   `json:"repoPath" jsonschema:"the absolute path to the repository to analyze"`
	Languages    []string `json:"languages,omitempty" jsonschema:"languages to analyze (default: all). Values: go, typescript, python, rust"`
	ExcludeDirs  []string `json:"excludeDirs,omitempty" jsonschema:"extra directory names to skip (e.g. generated)"`
	IncludeTests bool     `json:"includeTests,omitempty" jsonschema:"include test files in the dependency graph"`
}

// AnalyzeRepoOutput is the result of the analyze_repo MCP tool.
type AnalyzeRepoOutput struct {
	Summary   export.Summary               `json:"summary"`
	Languages []orchestrator.LanguageCount `json:"languages"`
	Pages     []string                     `json:"pages"`
	Failed    []export.FileError           `json:"failed,omitempty"`
	Stats     graph.GraphStats             `json:"stats"`
}

// QueryChunksInput is the input for the query_chunks MCP tool.
type QueryChunksInput struct {
	Query          string `json:"query" jsonschema:"substring of the chunk name, case-insensitive"`
	Kind           string `json:"kind,omitempty" jsonschema:"filter by chunk kind: class, function, method, import"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
	IncludeContent bool   `json:"includeContent,omitempty" jsonschema:"return chunk source text"`
}

// QueryChunksOutput is the result of the query_chunks MCP tool.
type QueryChunksOutput struct {
	Chunks []ChunkHit `json:"chunks"`
	Total  int        `json:"total"`
}

// ChunkHit is one query_chunks result with its page and signature.
type ChunkHit struct {
	Chunk         graph.Chunk              `json:"chunk"`
	QualifiedName string                   `json:"qualifiedName"`
	PagePath      string                   `json:"pagePath,omitempty"`
	Signature     *graph.FunctionSignature `json:"signature,omitempty"`
	Class         *graph.ClassSignature    `json:"class,omitempty"`
}

// GetCallGraphInput is the input for the get_call_graph MCP tool.
type GetCallGraphInput struct {
	Entry         string `json:"entry,omitempty" jsonschema:"entry function for the sequence view (default: the caller with most callees)"`
	MaxNodes      int    `json:"maxNodes,omitempty" jsonschema:"maximum nodes in the call diagram (default: 40)"`
	SequenceDepth int    `json:"sequenceDepth,omitempty" jsonschema:"maximum depth of the sequence view (default: 4)"`
}

// GetCallGraphOutput is the result of the get_call_graph MCP tool.
type GetCallGraphOutput struct {
	Calls      graph.CallGraph       `json:"calls"`
	EdgeCount  int                   `json:"edgeCount"`
	EntryPoint string                `json:"entryPoint,omitempty"`
	Diagram    string                `json:"diagram,omitempty"`
	Sequence   []graph.SequenceEvent `json:"sequence,omitempty"`
	SeqDiagram string                `json:"sequenceDiagram,omitempty"`
}

// GetDependencyGraphInput is the input for the get_dependency_graph MCP tool.
type GetDependencyGraphInput struct {
	NodeID      string `json:"nodeId,omitempty" jsonschema:"module to traverse from; omit for the whole graph"`
	Direction   string `json:"direction,omitempty" jsonschema:"downstream (what it imports) or upstream (what imports it). Default: downstream"`
	MaxDepth    int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
	MaxExternal int    `json:"maxExternal,omitempty" jsonschema:"external packages shown in the diagram (default: 8, negative hides them)"`
}

// GetDependencyGraphOutput is the result of the get_dependency_graph MCP tool.
type GetDependencyGraphOutput struct {
	Modules  []string                `json:"modules"`
	Cycles   []graph.ModuleEdge      `json:"cycles,omitempty"`
	Clusters []graph.ClusterNode     `json:"clusters,omitempty"`
	External []string                `json:"external,omitempty"`
	Chains   []graph.DependencyChain `json:"chains,omitempty"`
	Diagram  string                  `json:"diagram,omitempty"`
}

// CrosslinkPageInput is the input for the crosslink_page MCP tool.
type CrosslinkPageInput struct {
	PagePath string `json:"pagePath" jsonschema:"wiki-relative path of the page, e.g. shop/models.md"`
	Content  string `json:"content" jsonschema:"markdown content of the page"`
}

// CrosslinkPageOutput is the result of the crosslink_page MCP tool.
type CrosslinkPageOutput struct {
	Content string `json:"content"`
	Changed bool   `json:"changed"`
}

// CheckPageInput is the input for the check_page MCP tool.
type CheckPageInput struct {
	PagePath string   `json:"pagePath" jsonschema:"wiki-relative path of the page"`
	Files    []string `json:"files,omitempty" jsonschema:"source files of the page (default: the files planned for it by analyze_repo)"`
}

// CheckPageOutput is the result of the check_page MCP tool.
type CheckPageOutput struct {
	PagePath          string   `json:"pagePath"`
	Files             []string `json:"files"`
	Recorded          bool     `json:"recorded"`
	GeneratedAt       string   `json:"generatedAt,omitempty"`
	NeedsRegeneration bool     `json:"needsRegeneration"`
	Stale             bool     `json:"stale"`
	DaysStale         int      `json:"daysStale,omitempty"`
	NewestFile        string   `json:"newestFile,omitempty"`
	Banner            string   `json:"banner,omitempty"`
}
