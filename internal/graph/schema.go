package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// --- Enums ---

// Language identifies a programming language for parsing.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// SupportedLanguages lists every language with an extraction rule table.
var SupportedLanguages = []Language{LangGo, LangTypeScript, LangPython, LangRust}

// ChunkKind classifies extracted structural units.
type ChunkKind string

const (
	ChunkKindClass    ChunkKind = "class"
	ChunkKindFunction ChunkKind = "function"
	ChunkKindMethod   ChunkKind = "method"
	ChunkKindImport   ChunkKind = "import"
	ChunkKindOther    ChunkKind = "other"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeKindDefines  EdgeKind = "DEFINES"
	EdgeKindImports  EdgeKind = "IMPORTS"
	EdgeKindCalls    EdgeKind = "CALLS"
	EdgeKindInherits EdgeKind = "INHERITS"
	EdgeKindBelongs  EdgeKind = "BELONGS"
)

// --- Models ---

// ChunkMetadata carries the per-kind details gathered during extraction.
// Fields that do not apply to a chunk's kind are left empty.
type ChunkMetadata struct {
	Parents    []string    `json:"parents,omitempty"`
	Decorators []string    `json:"decorators,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"returnType,omitempty"`
	IsAsync    bool        `json:"isAsync,omitempty"`
	IsProperty bool        `json:"isProperty,omitempty"`
	IsAbstract bool        `json:"isAbstract,omitempty"`
	Calls      []string    `json:"calls,omitempty"`
}

// Chunk is one extracted structural unit of a source file. Chunks are
// produced once per parse pass and never modified afterwards.
type Chunk struct {
	ID         string        `json:"id"`
	FilePath   string        `json:"filePath"`
	Language   Language      `json:"language"`
	Kind       ChunkKind     `json:"kind"`
	Name       string        `json:"name,omitempty"`
	ParentName string        `json:"parentName,omitempty"`
	StartLine  int           `json:"startLine"`
	EndLine    int           `json:"endLine"`
	Content    string        `json:"content"`
	Docstring  string        `json:"docstring,omitempty"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// QualifiedName returns "Parent.name" for methods and the bare name otherwise.
func (c Chunk) QualifiedName() string {
	if c.ParentName != "" {
		return c.ParentName + "." + c.Name
	}
	return c.Name
}

// chunkNamespace seeds the UUIDv5 chunk identifiers.
var chunkNamespace = uuid.MustParse("6f1c3a52-8d0e-4f7b-9a51-3c2d7e8b9f10")

// ChunkID derives a stable identifier from a chunk's location and identity.
// Re-parsing an unchanged file yields the same IDs.
func ChunkID(filePath string, kind ChunkKind, qualifiedName string, startLine int) string {
	key := strings.Join([]string{filePath, string(kind), qualifiedName, fmt.Sprint(startLine)}, "\x00")
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// FileNode represents a source file in the code graph.
type FileNode struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`
	LOC      int      `json:"loc"`
	Module   string   `json:"module,omitempty"`
}

// ClassNode is one vertex of the inheritance graph, rebuilt per analysis run.
type ClassNode struct {
	Name       string   `json:"name"`
	FilePath   string   `json:"filePath"`
	Parents    []string `json:"parents,omitempty"`  // as written in source
	Children   []string `json:"children,omitempty"` // known classes naming this one as a parent
	IsAbstract bool     `json:"isAbstract"`
	Docstring  string   `json:"docstring,omitempty"`
}

// ClusterNode groups modules that share a top-level namespace.
type ClusterNode struct {
	Name          string   `json:"name"`
	CohesionScore float64  `json:"cohesionScore"`
	Members       []string `json:"members"` // module IDs
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored analysis.
type GraphStats struct {
	FileCount    int `json:"fileCount"`
	ChunkCount   int `json:"chunkCount"`
	ClusterCount int `json:"clusterCount"`
	EdgeCount    int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of nodes forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}
