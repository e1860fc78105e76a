package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore implements Store with maps guarded by an RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	files    map[string]FileNode
	chunks   map[string]Chunk
	order    []string // chunk IDs in insertion order
	edges    []Edge
	edgeSeen map[Edge]bool
	clusters map[string]ClusterNode
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		files:    make(map[string]FileNode),
		chunks:   make(map[string]Chunk),
		edgeSeen: make(map[Edge]bool),
		clusters: make(map[string]ClusterNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

// AddChunk stores a chunk keyed by ID. Re-adding an ID replaces the chunk
// but keeps its original position.
func (m *MemStore) AddChunk(_ context.Context, c Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chunks[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.chunks[c.ID] = c
	return nil
}

func (m *MemStore) AddCluster(_ context.Context, node ClusterNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters[node.Name] = node
	return nil
}

// AddEdge records an edge once; duplicates are ignored.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edgeSeen[edge] {
		return nil
	}
	m.edgeSeen[edge] = true
	m.edges = append(m.edges, edge)
	return nil
}

func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *MemStore) GetChunk(_ context.Context, id string) (*Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// QueryChunks returns matches in insertion order.
func (m *MemStore) QueryChunks(_ context.Context, query string, kind ChunkKind, limit int) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	var out []Chunk
	for _, id := range m.order {
		c := m.chunks[id]
		if kind != "" && c.Kind != kind {
			continue
		}
		if !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetDependencies returns one chain per node reachable within maxDepth hops.
func (m *MemStore) GetDependencies(_ context.Context, nodeID string, kind EdgeKind, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return bfsChains(nodeID, maxDepth, func(id string) ([]string, error) {
		return m.neighbors(id, kind, direction), nil
	})
}

func (m *MemStore) neighbors(id string, kind EdgeKind, direction Direction) []string {
	var out []string
	for _, e := range m.edges {
		if kind != "" && e.Kind != kind {
			continue
		}
		switch direction {
		case DirectionDownstream:
			if e.SourceID == id {
				out = append(out, e.TargetID)
			}
		case DirectionUpstream:
			if e.TargetID == id {
				out = append(out, e.SourceID)
			}
		}
	}
	return out
}

// bfsChains walks next breadth-first from start, visiting each node once.
func bfsChains(start string, maxDepth int, next func(string) ([]string, error)) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}
	visited := map[string]bool{start: true}
	frontier := [][]string{{start}}
	var chains []DependencyChain
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier [][]string
		for _, p := range frontier {
			nbs, err := next(p[len(p)-1])
			if err != nil {
				return nil, err
			}
			for _, nb := range nbs {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				np := append(append(make([]string, 0, len(p)+1), p...), nb)
				chains = append(chains, DependencyChain{Nodes: np, Depth: depth})
				nextFrontier = append(nextFrontier, np)
			}
		}
		frontier = nextFrontier
	}
	return chains, nil
}

// GetClusters returns clusters sorted by name.
func (m *MemStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClusterNode, 0, len(m.clusters))
	for _, c := range m.clusters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount:    len(m.files),
		ChunkCount:   len(m.chunks),
		ClusterCount: len(m.clusters),
		EdgeCount:    len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
