package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := NewCodeIntelMCPServer(newTestService(t))
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() { session.Close() })
	return session
}

func callTool[Out any](t *testing.T, session *mcp.ClientSession, name string, args any) Out {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, result.IsError, "%s returned an error", name)
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out Out
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"analyze_repo",
		"check_page",
		"crosslink_page",
		"get_call_graph",
		"get_dependency_graph",
		"query_chunks",
	}, names)
}

func TestMCPAnalyzeAndQuery(t *testing.T) {
	session := setupServerClient(t)

	analysis := callTool[AnalyzeRepoOutput](t, session, "analyze_repo", AnalyzeRepoInput{
		RepoPath:  fixtureAbsPath(t, "go_project"),
		Languages: []string{"go"},
	})
	assert.Equal(t, 3, analysis.Stats.FileCount)
	assert.Positive(t, analysis.Stats.ChunkCount)
	assert.Equal(t, []string{"root.md"}, analysis.Pages)

	chunks := callTool[QueryChunksOutput](t, session, "query_chunks", QueryChunksInput{Query: "Run", Limit: 10})
	found := false
	for _, hit := range chunks.Chunks {
		if hit.QualifiedName == "Run" {
			found = true
			assert.Equal(t, "root.md", hit.PagePath)
		}
	}
	assert.True(t, found, "expected a chunk named Run")

	calls := callTool[GetCallGraphOutput](t, session, "get_call_graph", GetCallGraphInput{Entry: "Run"})
	assert.Contains(t, calls.Calls["Run"], "NewUserService")

	linked := callTool[CrosslinkPageOutput](t, session, "crosslink_page", CrosslinkPageInput{
		PagePath: "guide.md",
		Content:  "Start with `UserService`.\n",
	})
	assert.True(t, linked.Changed)
	assert.Contains(t, linked.Content, "[`UserService`](root.md)")
}

func TestMCPToolBeforeAnalyze(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_dependency_graph",
		Arguments: GetDependencyGraphInput{},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})
	// The SDK reports unknown tools either as a protocol error or via IsError.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}
