// Package status tracks which generated wiki pages are out of date: it keeps
// a fingerprint of every source file a page was generated from, compares
// source timestamps from version control against generation times, and
// renders staleness reports and page banners.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultStatusFile is the status file location relative to the wiki output.
const DefaultStatusFile = ".codewiki/status.json"

// ErrNoRecord is returned when a page has never been recorded.
var ErrNoRecord = errors.New("status: no record for page")

// PageStatus is the generation record of one page.
type PageStatus struct {
	PagePath     string            `json:"pagePath"`
	SourceFiles  []string          `json:"sourceFiles"`
	SourceHashes map[string]string `json:"sourceHashes"` // path -> fingerprint at generation
	ContentHash  string            `json:"contentHash"`
	GeneratedAt  time.Time         `json:"generatedAt"`
}

// Tracker holds page records and decides which pages need regeneration.
// Source files are read through sources, rooted at the repository.
type Tracker struct {
	mu      sync.RWMutex
	path    string
	sources fs.FS
	pages   map[string]PageStatus
	now     func() time.Time
}

// NewTracker returns an empty tracker persisted at statusPath.
func NewTracker(statusPath string, sources fs.FS) *Tracker {
	return &Tracker{
		path:    statusPath,
		sources: sources,
		pages:   make(map[string]PageStatus),
		now:     time.Now,
	}
}

// LoadTracker reads statusPath. A missing file yields an empty tracker.
func LoadTracker(statusPath string, sources fs.FS) (*Tracker, error) {
	t := NewTracker(statusPath, sources)
	data, err := os.ReadFile(statusPath)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status file: %w", err)
	}
	if err := json.Unmarshal(data, &t.pages); err != nil {
		return nil, fmt.Errorf("parse status file %s: %w", statusPath, err)
	}
	if t.pages == nil {
		t.pages = make(map[string]PageStatus)
	}
	return t, nil
}

// Save writes every record as a JSON object keyed by page path. The file is
// replaced atomically.
func (t *Tracker) Save() error {
	t.mu.RLock()
	data, err := json.MarshalIndent(t.pages, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".status-*.json")
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close status: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}

// Get returns the record of pagePath or ErrNoRecord.
func (t *Tracker) Get(pagePath string) (PageStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ps, ok := t.pages[pagePath]
	if !ok {
		return PageStatus{}, fmt.Errorf("%s: %w", pagePath, ErrNoRecord)
	}
	return ps, nil
}

// Pages returns the recorded page paths in sorted order.
func (t *Tracker) Pages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.pages))
	for p := range t.pages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NeedsRegeneration reports true when pagePath has no record, when its
// recorded source set differs from files, or when any recorded source now
// fingerprints differently. An unreadable source counts as changed.
func (t *Tracker) NeedsRegeneration(pagePath string, files []string) bool {
	t.mu.RLock()
	ps, ok := t.pages[pagePath]
	t.mu.RUnlock()
	if !ok {
		return true
	}
	if !sameSet(ps.SourceFiles, files) {
		return true
	}
	for _, f := range ps.SourceFiles {
		h, err := FingerprintFile(t.sources, f)
		if err != nil || h != ps.SourceHashes[f] {
			return true
		}
	}
	return false
}

// Record stores a fresh record for pagePath after the page was written.
// Every source file must be readable.
func (t *Tracker) Record(pagePath string, files []string, content string) error {
	hashes := make(map[string]string, len(files))
	for _, f := range files {
		h, err := FingerprintFile(t.sources, f)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", f, err)
		}
		hashes[f] = h
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[pagePath] = PageStatus{
		PagePath:     pagePath,
		SourceFiles:  sorted,
		SourceHashes: hashes,
		ContentHash:  FingerprintString(content),
		GeneratedAt:  t.now().UTC(),
	}
	return nil
}

// Forget drops the record of pagePath.
func (t *Tracker) Forget(pagePath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pages, pagePath)
}

// ScanPages lists the markdown pages below wikiDir as slash-separated
// relative paths, sorted. Hidden directories are skipped.
func ScanPages(wikiDir string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(wikiDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != wikiDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(wikiDir, p)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

func sameSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	other := make(map[string]bool, len(b))
	for _, s := range b {
		if !set[s] {
			return false
		}
		other[s] = true
	}
	return len(set) == len(other)
}
