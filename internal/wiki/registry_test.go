package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codewiki/internal/graph"
)

func TestCamelToSpaced(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"UserService", "User Service", true},
		{"HTTPServer", "HTTP Server", true},
		{"parseJSON", "parse JSON", true},
		{"OAuth2Client", "O Auth2 Client", true},
		{"getHTTPResponseCode", "get HTTP Response Code", true},
		{"User", "", false},
		{"URL", "", false},
		{"snake_case", "", false},
		{"My_Class", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CamelToSpaced(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryBuilder_RegisterFromChunks(t *testing.T) {
	chunks := []graph.Chunk{
		{Kind: graph.ChunkKindClass, Name: "UserService", FilePath: "src/service.ts"},
		{Kind: graph.ChunkKindMethod, Name: "fetchUser", ParentName: "UserService", FilePath: "src/service.ts"},
		{Kind: graph.ChunkKindFunction, Name: "formatUser", FilePath: "src/service.ts"},
		{Kind: graph.ChunkKindImport, Content: `import axios from "axios";`, FilePath: "src/service.ts"},
		{Kind: graph.ChunkKindOther, Name: "config", FilePath: "src/service.ts"},
	}
	b := NewRegistryBuilder()
	b.RegisterFromChunks(chunks, "service.md")
	reg := b.Build()

	names := make([]string, 0)
	for _, e := range reg.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"UserService", "UserService.fetchUser", "fetchUser", "formatUser"}, names)

	e, ok := reg.Lookup("UserService.fetchUser")
	require.True(t, ok)
	assert.Equal(t, EntityInfo{
		Name:       "UserService.fetchUser",
		Kind:       graph.ChunkKindMethod,
		PagePath:   "service.md",
		FilePath:   "src/service.ts",
		ParentName: "UserService",
	}, e)

	canonical, e, ok := reg.LookupAlias("User Service")
	require.True(t, ok)
	assert.Equal(t, "UserService", canonical)
	assert.Equal(t, graph.ChunkKindClass, e.Kind)

	_, _, ok = reg.LookupAlias("fetch User")
	assert.True(t, ok, "methods get aliases too")
	assert.True(t, reg.IsClass("UserService"))
	assert.False(t, reg.IsClass("formatUser"))
	assert.False(t, reg.IsClass("Missing"))
}

func TestRegistryBuilder_LastWriteWins(t *testing.T) {
	b := NewRegistryBuilder()
	b.Register("Config", graph.ChunkKindClass, "a.md", "a.py", "")
	b.Register("Config", graph.ChunkKindClass, "b.md", "b.py", "")
	b.Register("", graph.ChunkKindClass, "c.md", "c.py", "")
	reg := b.Build()

	e, ok := reg.Lookup("Config")
	require.True(t, ok)
	assert.Equal(t, "b.md", e.PagePath)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryBuilder_AmbiguousAliases(t *testing.T) {
	b := NewRegistryBuilder()
	b.RegisterAlias("User Service", "UserService")
	b.RegisterAlias("User Service", "UserService")
	b.RegisterAlias("Data Store", "DataStore")
	b.RegisterAlias("Data Store", "dataStore")
	b.Register("UserService", graph.ChunkKindClass, "a.md", "a.go", "")
	reg := b.Build()

	assert.Equal(t, []string{"Data Store"}, reg.AmbiguousAliases())
	assert.Equal(t, []string{"User Service"}, reg.Aliases())
	_, _, ok := reg.LookupAlias("Data Store")
	assert.False(t, ok)
	_, _, ok = reg.LookupAlias("Nothing Here")
	assert.False(t, ok)
}

func TestRegistry_SnapshotIsFrozen(t *testing.T) {
	b := NewRegistryBuilder()
	b.Register("First", graph.ChunkKindFunction, "a.md", "a.go", "")
	snap := b.Build()

	b.Register("Second", graph.ChunkKindFunction, "a.md", "a.go", "")
	b.Register("First", graph.ChunkKindFunction, "z.md", "a.go", "")

	assert.Equal(t, 1, snap.Len())
	e, _ := snap.Lookup("First")
	assert.Equal(t, "a.md", e.PagePath)
	assert.Equal(t, 2, b.Build().Len())
}

func TestRegistry_AliasOrder(t *testing.T) {
	b := NewRegistryBuilder()
	for _, a := range []string{"User Store", "User Service Client", "Admin Store"} {
		b.RegisterAlias(a, a)
	}
	assert.Equal(t, []string{"User Service Client", "Admin Store", "User Store"}, b.Build().Aliases())
}
