package graph

import (
	"context"
	"io"
)

// Store persists an analysis: files, chunks, clusters and the edges between
// them. MemStore backs tests and single-run tools, KuzuStore backs
// persistent graph indexes.
//
// Node identifiers used by edges:
//   - DEFINES:  file path -> chunk ID
//   - IMPORTS:  module ID -> module ID
//   - CALLS:    qualified caller -> callee name
//   - INHERITS: class name -> parent class name
//   - BELONGS:  module ID -> cluster name
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error

	AddFile(ctx context.Context, node FileNode) error
	AddChunk(ctx context.Context, chunk Chunk) error
	AddCluster(ctx context.Context, node ClusterNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// GetFile and GetChunk return nil, nil when nothing matches.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	// QueryChunks matches chunk names containing query, case-insensitively.
	// An empty kind matches every kind; limit <= 0 means no limit.
	QueryChunks(ctx context.Context, query string, kind ChunkKind, limit int) ([]Chunk, error)

	// GetDependencies walks edges of the given kind (every kind when empty)
	// breadth-first from nodeID.
	GetDependencies(ctx context.Context, nodeID string, kind EdgeKind, direction Direction, maxDepth int) ([]DependencyChain, error)
	GetClusters(ctx context.Context) ([]ClusterNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // who points at this node?
	DirectionDownstream Direction = "downstream" // what does this node point at?
)

// ParseDirection maps a user-supplied string to a Direction, defaulting to
// downstream.
func ParseDirection(s string) Direction {
	if Direction(s) == DirectionUpstream {
		return DirectionUpstream
	}
	return DirectionDownstream
}
