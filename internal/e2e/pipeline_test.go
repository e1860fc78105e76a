//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/status"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

// TestPipeline_E2E_AllFixtures analyzes every fixture into a store and
// checks that the graphs, registry and store agree.
func TestPipeline_E2E_AllFixtures(t *testing.T) {
	for _, fixture := range fixtures {
		t.Run(fixture, func(t *testing.T) {
			store := graph.NewMemStore()
			a := analyze(t, fixtureRoot(fixture), store)

			assert.Empty(t, a.Failed())
			assert.NotEmpty(t, a.Files)
			assert.NotEmpty(t, a.Chunks)
			assert.Positive(t, a.Registry.Len())
			assert.NotEmpty(t, a.PagePaths())

			stats, err := store.Stats(t.Context())
			require.NoError(t, err)
			assert.Equal(t, len(a.Files), stats.FileCount)
			assert.Equal(t, len(a.Chunks), stats.ChunkCount)

			for _, e := range a.Registry.Entities() {
				_, ok := a.Pages[e.PagePath]
				assert.True(t, ok, "entity %s points at unplanned page %s", e.Name, e.PagePath)
			}
			for _, c := range a.Chunks {
				got, err := store.GetChunk(t.Context(), c.ID)
				require.NoError(t, err)
				require.NotNil(t, got, c.QualifiedName())
			}
		})
	}
}

// writePages renders one page per planned wiki page listing its entities as
// code spans plus a mention of another entity, then cross-links each page.
func writePages(t *testing.T, dir string, reg *wiki.Registry, pages []string, mention string) {
	t.Helper()
	linker := wiki.NewCrossLinker(reg)
	byPage := map[string][]string{}
	for _, e := range reg.Entities() {
		byPage[e.PagePath] = append(byPage[e.PagePath], e.Name)
	}
	for _, p := range pages {
		var b strings.Builder
		b.WriteString("# " + p + "\n\n")
		for _, name := range byPage[p] {
			b.WriteString("- `" + name + "`\n")
		}
		b.WriteString("\nSee also `" + mention + "`.\n")

		page := linker.Rewrite(wiki.Page{Path: p, Content: b.String()})
		path := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(page.Content), 0o644))
	}
}

// TestPipeline_E2E_WikiLifecycle generates a wiki for a copy of the Python
// fixture, records it, edits a source file and expects exactly the affected
// page to need regeneration.
func TestPipeline_E2E_WikiLifecycle(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.CopyFS(repo, os.DirFS(fixtureRoot("py_project"))))

	a := analyze(t, repo, nil)
	wikiDir := filepath.Join(repo, "wiki")
	writePages(t, wikiDir, a.Registry, a.PagePaths(), "Product")

	pages, err := status.ScanPages(wikiDir)
	require.NoError(t, err)
	assert.Equal(t, a.PagePaths(), pages)

	services, err := os.ReadFile(filepath.Join(wikiDir, "services.md"))
	require.NoError(t, err)
	assert.Contains(t, string(services), "[`Product`](models.md)")
	relinked := wiki.NewCrossLinker(a.Registry).Rewrite(wiki.Page{Path: "services.md", Content: string(services)})
	assert.Equal(t, string(services), relinked.Content)

	statusPath := filepath.Join(wikiDir, status.DefaultStatusFile)
	tracker := status.NewTracker(statusPath, os.DirFS(repo))
	for _, p := range pages {
		content, err := os.ReadFile(filepath.Join(wikiDir, filepath.FromSlash(p)))
		require.NoError(t, err)
		require.NoError(t, tracker.Record(p, a.Pages[p], string(content)))
	}
	require.NoError(t, tracker.Save())

	src := filepath.Join(repo, "src", "shop", "models.py")
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, append(data, []byte("\n\ndef added():\n    pass\n")...), 0o644))

	reloaded, err := status.LoadTracker(statusPath, os.DirFS(repo))
	require.NoError(t, err)
	var regenerate []string
	for _, p := range pages {
		if reloaded.NeedsRegeneration(p, a.Pages[p]) {
			regenerate = append(regenerate, p)
		}
	}
	assert.Equal(t, []string{"models.md"}, regenerate)
}
