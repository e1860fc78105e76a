package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/status"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), err
}

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestAnalyze(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "analysis.json")
	out, err := execute(t, "analyze", fixture("go_project"), "--json", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:")
	assert.Contains(t, out, "Pages:      1")

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	e, err := export.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Summary.Files)
	for _, c := range e.Chunks {
		assert.Empty(t, c.Content)
	}
}

func TestDiagram(t *testing.T) {
	tests := []struct {
		kind   string
		prefix string
	}{
		{"deps", "graph LR"},
		{"calls", "graph TD"},
		{"sequence", "sequenceDiagram"},
		{"classes", "classDiagram"},
		{"tree", "BaseModel"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			out, err := execute(t, "diagram", fixture("py_project"), "--kind", tt.kind)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, tt.prefix), out)
		})
	}

	_, err := execute(t, "diagram", fixture("py_project"), "--kind", "pie")
	assert.ErrorContains(t, err, `unknown diagram kind "pie"`)
}

func gitCmd(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Ada", "GIT_AUTHOR_EMAIL=ada@example.com",
		"GIT_COMMITTER_NAME=Ada", "GIT_COMMITTER_EMAIL=ada@example.com",
		"GIT_CONFIG_NOSYSTEM=1", "HOME="+dir)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func commitFile(t *testing.T, dir, name, content string, when time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	gitCmd(t, dir, nil, "add", name)
	date := when.Format(time.RFC3339)
	gitCmd(t, dir, []string{"GIT_AUTHOR_DATE=" + date, "GIT_COMMITTER_DATE=" + date}, "commit", "-q", "-m", "update "+name)
}

func writePage(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readPage(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

// wikiRepo creates a committed two-module Python repository with one page
// per module.
func wikiRepo(t *testing.T) (repo, wikiDir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo = t.TempDir()
	gitCmd(t, repo, nil, "init", "-q")
	past := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	commitFile(t, repo, "models.py", "class Cart:\n    def total(self):\n        return 0\n", past)
	commitFile(t, repo, "services.py", "from models import Cart\n\n\ndef checkout():\n    return Cart().total()\n", past)

	wikiDir = filepath.Join(repo, "wiki")
	writePage(t, wikiDir, "models.md", "# models\n\nThe cart.\n")
	writePage(t, wikiDir, "services.md", "# services\n\n`checkout` builds a `Cart`.\n")
	return repo, wikiDir
}

func TestLink(t *testing.T) {
	repo, wikiDir := wikiRepo(t)

	out, err := execute(t, "link", "--repo", repo, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "linked services.md")
	assert.NotContains(t, readPage(t, wikiDir, "services.md"), "](models.md)")

	_, err = execute(t, "link", "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, readPage(t, wikiDir, "services.md"), "[`Cart`](models.md)")

	out, err = execute(t, "link", wikiDir, "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 2 pages changed")
}

func TestRecordAndStatus(t *testing.T) {
	repo, wikiDir := wikiRepo(t)
	writePage(t, wikiDir, "notes.md", "# notes\n")

	out, err := execute(t, "record", "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "recorded 2 of 3 pages")

	out, err = execute(t, "status", "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "3 of 3 pages fresh")
	assert.Contains(t, out, "## Untracked pages\n\n- notes.md")
	assert.NotContains(t, out, "Sources changed")

	future := time.Now().Add(73 * time.Hour)
	commitFile(t, repo, "models.py", "class Cart:\n    pass\n", future)

	out, err = execute(t, "status", "--repo", repo, "--banners")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 3 pages fresh")
	assert.Contains(t, out, "| models.md | 3 |")
	assert.Contains(t, out, "## Sources changed since generation\n\n- models.md")
	assert.True(t, status.HasBanner(readPage(t, wikiDir, "models.md")))
	assert.False(t, status.HasBanner(readPage(t, wikiDir, "services.md")))

	bannered := readPage(t, wikiDir, "models.md")
	_, err = execute(t, "status", "--repo", repo, "--banners")
	require.NoError(t, err)
	assert.Equal(t, bannered, readPage(t, wikiDir, "models.md"))
}

func TestStatusNoticesNewSourceFile(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo := t.TempDir()
	gitCmd(t, repo, nil, "init", "-q")
	past := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	commitFile(t, repo, "a.go", "package shop\n\n// Cart holds items.\ntype Cart struct{}\n", past)
	wikiDir := filepath.Join(repo, "wiki")
	writePage(t, wikiDir, "root.md", "# root\n")

	out, err := execute(t, "record", "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "recorded 1 of 1 pages")

	out, err = execute(t, "status", "--repo", repo)
	require.NoError(t, err)
	assert.NotContains(t, out, "Sources changed")

	commitFile(t, repo, "b.go", "package shop\n\nfunc NewCart() *Cart { return &Cart{} }\n", past)

	out, err = execute(t, "status", "--repo", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "## Sources changed since generation\n\n- root.md")
}
