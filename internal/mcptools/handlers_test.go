package mcptools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/status"
)

func fixtureAbsPath(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", name))
	require.NoError(t, err)
	return p
}

func newTestService(t *testing.T) *CodeIntelService {
	t.Helper()
	svc := NewCodeIntelService(graph.NewTreeSitterParser(), nil)
	svc.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { svc.Close() })
	return svc
}

func analyzed(t *testing.T, fixture string) *CodeIntelService {
	t.Helper()
	svc := newTestService(t)
	_, _, err := svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{RepoPath: fixtureAbsPath(t, fixture)})
	require.NoError(t, err)
	return svc
}

type fixedMetadata map[string]status.FileMetadata

func (m fixedMetadata) LastModified(_ context.Context, files []string) (map[string]status.FileMetadata, error) {
	out := make(map[string]status.FileMetadata)
	for _, f := range files {
		if md, ok := m[f]; ok {
			out[f] = md
		}
	}
	return out, nil
}

func TestAnalyzeRepo(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{RepoPath: fixtureAbsPath(t, "py_project")})
	require.NoError(t, err)

	assert.Equal(t, 6, out.Summary.Files)
	assert.Equal(t, 6, out.Stats.FileCount)
	assert.Equal(t, out.Summary.Chunks, out.Stats.ChunkCount)
	assert.Equal(t, graph.LangPython, out.Languages[0].Language)
	assert.Contains(t, out.Pages, "models.md")
	assert.Empty(t, out.Failed)
}

func TestAnalyzeRepo_LanguageFilter(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{
		RepoPath:  fixtureAbsPath(t, "go_project"),
		Languages: []string{"Python"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Summary.Files)
}

func TestAnalyzeRepo_InvalidPath(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{})
	assert.ErrorContains(t, err, "repoPath is required")

	_, _, err = svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{RepoPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "cannot access repoPath")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, _, err = svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{RepoPath: file})
	assert.ErrorContains(t, err, "not a directory")
}

func TestToolsRequireAnalysis(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, _, err := svc.QueryChunks(ctx, nil, QueryChunksInput{Query: "x"})
	assert.ErrorIs(t, err, errNoAnalysis)
	_, _, err = svc.GetCallGraph(ctx, nil, GetCallGraphInput{})
	assert.ErrorIs(t, err, errNoAnalysis)
	_, _, err = svc.GetDependencyGraph(ctx, nil, GetDependencyGraphInput{})
	assert.ErrorIs(t, err, errNoAnalysis)
	_, _, err = svc.CrosslinkPage(ctx, nil, CrosslinkPageInput{PagePath: "a.md"})
	assert.ErrorIs(t, err, errNoAnalysis)
	_, _, err = svc.CheckPage(ctx, nil, CheckPageInput{PagePath: "a.md"})
	assert.ErrorIs(t, err, errNoAnalysis)
}

func TestQueryChunks(t *testing.T) {
	svc := analyzed(t, "py_project")

	_, out, err := svc.QueryChunks(t.Context(), nil, QueryChunksInput{Query: "checkout", Kind: "method"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total)
	hit := out.Chunks[0]
	assert.Equal(t, "CartService.checkout", hit.QualifiedName)
	assert.Equal(t, "services.md", hit.PagePath)
	assert.Empty(t, hit.Chunk.Content)
	require.NotNil(t, hit.Signature)
	assert.True(t, hit.Signature.IsAsync)

	_, out, err = svc.QueryChunks(t.Context(), nil, QueryChunksInput{Query: "Product", Kind: "class", IncludeContent: true})
	require.NoError(t, err)
	require.NotZero(t, out.Total)
	for _, h := range out.Chunks {
		assert.Equal(t, graph.ChunkKindClass, h.Chunk.Kind)
		assert.NotEmpty(t, h.Chunk.Content)
		assert.Nil(t, h.Signature)
		require.NotNil(t, h.Class)
	}
	for _, h := range out.Chunks {
		if h.QualifiedName == "Product" {
			require.Len(t, h.Class.Methods, 1)
			assert.Equal(t, "validate", h.Class.Methods[0].Name)
			require.Len(t, h.Class.Properties, 1)
			assert.Equal(t, "label", h.Class.Properties[0].Name)
			assert.Equal(t, []string{"BaseModel"}, h.Class.Parents)
		}
	}

	_, out, err = svc.QueryChunks(t.Context(), nil, QueryChunksInput{Query: "", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
}

func TestGetCallGraph(t *testing.T) {
	svc := analyzed(t, "go_project")

	_, out, err := svc.GetCallGraph(t.Context(), nil, GetCallGraphInput{Entry: "Run"})
	require.NoError(t, err)
	assert.Equal(t, "Run", out.EntryPoint)
	assert.Contains(t, out.Calls["Run"], "NewUserService")
	assert.Positive(t, out.EdgeCount)
	assert.True(t, strings.HasPrefix(out.Diagram, "graph TD"))
	require.NotEmpty(t, out.Sequence)
	assert.True(t, strings.HasPrefix(out.SeqDiagram, "sequenceDiagram"))

	_, def, err := svc.GetCallGraph(t.Context(), nil, GetCallGraphInput{})
	require.NoError(t, err)
	assert.Equal(t, out.Calls.EntryPoint(), def.EntryPoint)
}

func TestGetDependencyGraph(t *testing.T) {
	svc := analyzed(t, "py_project")

	_, out, err := svc.GetDependencyGraph(t.Context(), nil, GetDependencyGraphInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"models", "services", "shop", "storage", "storage.repo"}, out.Modules)
	assert.Contains(t, out.Cycles, graph.ModuleEdge{From: "services", To: "storage.repo"})
	assert.True(t, strings.HasPrefix(out.Diagram, "graph LR"))
	assert.Empty(t, out.Chains)

	_, out, err = svc.GetDependencyGraph(t.Context(), nil, GetDependencyGraphInput{NodeID: "services", MaxDepth: 1})
	require.NoError(t, err)
	var targets []string
	for _, c := range out.Chains {
		targets = append(targets, c.Nodes[len(c.Nodes)-1])
	}
	assert.ElementsMatch(t, []string{"models", "storage.repo"}, targets)

	_, out, err = svc.GetDependencyGraph(t.Context(), nil, GetDependencyGraphInput{NodeID: "models", Direction: "upstream", MaxDepth: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Chains)

	_, out, err = svc.GetDependencyGraph(t.Context(), nil, GetDependencyGraphInput{MaxExternal: -1})
	require.NoError(t, err)
	assert.Empty(t, out.External)
	assert.NotContains(t, out.Diagram, "stroke-dasharray")

	_, _, err = svc.GetDependencyGraph(t.Context(), nil, GetDependencyGraphInput{NodeID: "nope"})
	assert.ErrorContains(t, err, `unknown module "nope"`)
}

func TestCrosslinkPage(t *testing.T) {
	svc := analyzed(t, "py_project")

	_, out, err := svc.CrosslinkPage(t.Context(), nil, CrosslinkPageInput{
		PagePath: "services.md",
		Content:  "`CartService` stores `Product` values.\n",
	})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Contains(t, out.Content, "[`Product`](models.md)")

	_, out, err = svc.CrosslinkPage(t.Context(), nil, CrosslinkPageInput{PagePath: "services.md", Content: "nothing here\n"})
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, "nothing here\n", out.Content)

	_, _, err = svc.CrosslinkPage(t.Context(), nil, CrosslinkPageInput{Content: "x"})
	assert.ErrorContains(t, err, "pagePath is required")
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"models.py":   "class Cart:\n    def total(self):\n        return 0\n",
		"services.py": "from models import Cart\n\n\ndef checkout():\n    return Cart().total()\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestCheckPage(t *testing.T) {
	repo := writeRepo(t)
	svc := newTestService(t)
	_, _, err := svc.AnalyzeRepo(t.Context(), nil, AnalyzeRepoInput{RepoPath: repo})
	require.NoError(t, err)

	t.Run("unrecorded", func(t *testing.T) {
		_, out, err := svc.CheckPage(t.Context(), nil, CheckPageInput{PagePath: "models.md"})
		require.NoError(t, err)
		assert.Equal(t, []string{"models.py"}, out.Files)
		assert.False(t, out.Recorded)
		assert.True(t, out.NeedsRegeneration)
	})

	tracker := status.NewTracker(filepath.Join(repo, "wiki", ".codewiki", "status.json"), os.DirFS(repo))
	require.NoError(t, tracker.Record("models.md", []string{"models.py"}, "# models\n"))
	require.NoError(t, tracker.Save())

	t.Run("fresh", func(t *testing.T) {
		svc.SetMetadataSource(func(string) status.MetadataSource { return fixedMetadata{} })
		_, out, err := svc.CheckPage(t.Context(), nil, CheckPageInput{PagePath: "models.md"})
		require.NoError(t, err)
		assert.True(t, out.Recorded)
		assert.NotEmpty(t, out.GeneratedAt)
		assert.False(t, out.NeedsRegeneration)
		assert.False(t, out.Stale)
		assert.Empty(t, out.Banner)
	})

	t.Run("stale", func(t *testing.T) {
		svc.SetMetadataSource(func(string) status.MetadataSource {
			return fixedMetadata{"models.py": {LastModified: time.Now().Add(73 * time.Hour)}}
		})
		_, out, err := svc.CheckPage(t.Context(), nil, CheckPageInput{PagePath: "models.md"})
		require.NoError(t, err)
		assert.True(t, out.Stale)
		assert.Equal(t, 3, out.DaysStale)
		assert.Equal(t, "models.py", out.NewestFile)
		assert.NotEmpty(t, out.Banner)
	})

	t.Run("source changed", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(repo, "models.py"), []byte("class Cart:\n    pass\n"), 0o644))
		_, out, err := svc.CheckPage(t.Context(), nil, CheckPageInput{PagePath: "models.md"})
		require.NoError(t, err)
		assert.True(t, out.NeedsRegeneration)
	})

	t.Run("unknown page", func(t *testing.T) {
		_, _, err := svc.CheckPage(t.Context(), nil, CheckPageInput{PagePath: "nope.md"})
		assert.ErrorContains(t, err, "no source files known")
	})
}
