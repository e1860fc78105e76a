package status

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, sources fstest.MapFS) *Tracker {
	t.Helper()
	tr := NewTracker(filepath.Join(t.TempDir(), ".codewiki", "status.json"), sources)
	tr.now = func() time.Time { return fixedNow }
	return tr
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.Equal(t, a, FingerprintString("hello"))
	assert.NotEqual(t, a, FingerprintString("hello!"))

	sources := fstest.MapFS{"src/a.py": {Data: []byte("hello")}}
	f, err := FingerprintFile(sources, "src/a.py")
	require.NoError(t, err)
	assert.Equal(t, a, f)

	_, err = FingerprintFile(sources, "src/missing.py")
	assert.Error(t, err)
}

func TestTracker_NeedsRegeneration(t *testing.T) {
	sources := fstest.MapFS{
		"src/a.py": {Data: []byte("a = 1\n")},
		"src/b.py": {Data: []byte("b = 2\n")},
	}
	tr := newTestTracker(t, sources)

	assert.True(t, tr.NeedsRegeneration("a.md", []string{"src/a.py"}), "no record yet")

	require.NoError(t, tr.Record("a.md", []string{"src/b.py", "src/a.py"}, "# A\n"))
	assert.False(t, tr.NeedsRegeneration("a.md", []string{"src/a.py", "src/b.py"}))
	assert.False(t, tr.NeedsRegeneration("a.md", []string{"src/b.py", "src/a.py", "src/a.py"}), "order and duplicates do not matter")

	assert.True(t, tr.NeedsRegeneration("a.md", []string{"src/a.py"}), "source removed")
	assert.True(t, tr.NeedsRegeneration("a.md", []string{"src/a.py", "src/b.py", "src/c.py"}), "source added")

	sources["src/b.py"] = &fstest.MapFile{Data: []byte("b = 3\n")}
	assert.True(t, tr.NeedsRegeneration("a.md", []string{"src/a.py", "src/b.py"}), "content changed")

	require.NoError(t, tr.Record("a.md", []string{"src/a.py", "src/b.py"}, "# A\n"))
	assert.False(t, tr.NeedsRegeneration("a.md", []string{"src/a.py", "src/b.py"}))

	delete(sources, "src/a.py")
	assert.True(t, tr.NeedsRegeneration("a.md", []string{"src/a.py", "src/b.py"}), "unreadable source")
}

func TestTracker_Record(t *testing.T) {
	sources := fstest.MapFS{"src/a.py": {Data: []byte("x")}}
	tr := newTestTracker(t, sources)

	require.NoError(t, tr.Record("a.md", []string{"src/a.py"}, "content"))
	ps, err := tr.Get("a.md")
	require.NoError(t, err)
	assert.Equal(t, PageStatus{
		PagePath:     "a.md",
		SourceFiles:  []string{"src/a.py"},
		SourceHashes: map[string]string{"src/a.py": FingerprintString("x")},
		ContentHash:  FingerprintString("content"),
		GeneratedAt:  fixedNow,
	}, ps)

	err = tr.Record("b.md", []string{"src/missing.py"}, "content")
	assert.Error(t, err)
	_, err = tr.Get("b.md")
	assert.True(t, errors.Is(err, ErrNoRecord))

	tr.Forget("a.md")
	assert.Empty(t, tr.Pages())
}

func TestTracker_SaveAndLoad(t *testing.T) {
	sources := fstest.MapFS{"src/a.py": {Data: []byte("x")}, "src/b.py": {Data: []byte("y")}}
	tr := newTestTracker(t, sources)
	require.NoError(t, tr.Record("b.md", []string{"src/b.py"}, "B"))
	require.NoError(t, tr.Record("a.md", []string{"src/a.py"}, "A"))
	require.NoError(t, tr.Save())

	loaded, err := LoadTracker(tr.path, sources)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, loaded.Pages())
	want, _ := tr.Get("a.md")
	got, err := loaded.Get("a.md")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, loaded.NeedsRegeneration("a.md", []string{"src/a.py"}))

	entries, err := os.ReadDir(filepath.Dir(tr.path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLoadTracker_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	tr, err := LoadTracker(filepath.Join(dir, "nope.json"), fstest.MapFS{})
	require.NoError(t, err)
	assert.Empty(t, tr.Pages())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{broken"), 0o644))
	_, err = LoadTracker(bad, fstest.MapFS{})
	assert.Error(t, err)

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte("null"), 0o644))
	tr, err = LoadTracker(null, fstest.MapFS{})
	require.NoError(t, err)
	require.NoError(t, tr.Record("a.md", nil, ""))
}

func TestScanPages(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"index.md", "api/users.md", "api/notes.txt", ".codewiki/cache.md"} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	pages, err := ScanPages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"api/users.md", "index.md"}, pages)

	_, err = ScanPages(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
