package status

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitCmd(t, dir, nil, "init", "-q")
	return dir
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

func TestGitMetadata_LastModified(t *testing.T) {
	dir := gitRepo(t)
	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(72 * time.Hour)
	commitFile(t, dir, "a.py", "a", first)
	commitFile(t, dir, "b.py", "b", first)
	commitFile(t, dir, "a.py", "a2", second)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.py"), []byte("u"), 0o644))

	g := NewGitMetadata(dir)
	g.Concurrency = 2
	meta, err := g.LastModified(context.Background(), []string{"a.py", "b.py", "untracked.py"})
	require.NoError(t, err)

	require.Len(t, meta, 2, "files without history are omitted")
	assert.True(t, meta["a.py"].LastModified.Equal(second))
	assert.True(t, meta["b.py"].LastModified.Equal(first))
	assert.Equal(t, "Ada", meta["a.py"].Author)

	s := Checker{}.Check("a.md", first, []string{"a.py", "b.py"}, meta)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.DaysStale)
}

func TestGitMetadata_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	_, err := NewGitMetadata(t.TempDir()).LastModified(context.Background(), []string{"a.py"})
	assert.Error(t, err)
}

func TestParseLogLine(t *testing.T) {
	m, err := parseLogLine("2024-01-02T03:04:05+02:00\x1fGrace Hopper")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", m.Author)
	assert.True(t, m.LastModified.Equal(time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)))

	_, err = parseLogLine("yesterday\x1fsomeone")
	assert.Error(t, err)
}
