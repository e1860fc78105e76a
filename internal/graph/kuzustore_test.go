//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKuzuTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestKuzuStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newKuzuTestStore(t)
	})
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s := newKuzuTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestKuzuStore_AddFileUpserts(t *testing.T) {
	ctx := context.Background()
	s := newKuzuTestStore(t)

	require.NoError(t, s.AddFile(ctx, FileNode{Path: "main.go", Language: LangGo, LOC: 10}))
	require.NoError(t, s.AddFile(ctx, FileNode{Path: "main.go", Language: LangGo, LOC: 25, Module: "."}))

	got, err := s.GetFile(ctx, "main.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 25, got.LOC)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
}

func TestKuzuStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index", "graph.kuzu")

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	c := Chunk{ID: "c1", FilePath: "lib.rs", Language: LangRust, Kind: ChunkKindFunction, Name: "normalize", StartLine: 1, EndLine: 3}
	require.NoError(t, s.AddChunk(ctx, c))
	require.NoError(t, s.AddEdge(ctx, Edge{SourceID: "lib.rs", TargetID: "c1", Kind: EdgeKindDefines}))
	require.NoError(t, s.Close())

	reopened, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.InitSchema(ctx))

	got, err := reopened.GetChunk(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "normalize", got.Name)

	edges, err := reopened.GetAllEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{SourceID: "lib.rs", TargetID: "c1", Kind: EdgeKindDefines}}, edges)
}
