package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultThreshold is how far sources must run ahead of a page before it is
// reported stale.
const DefaultThreshold = 24 * time.Hour

// StalePage describes a page whose sources changed after it was generated.
type StalePage struct {
	PagePath     string    `json:"pagePath"`
	DaysStale    int       `json:"daysStale"`
	NewestSource time.Time `json:"newestSource"`
	NewestFile   string    `json:"newestFile"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Checker compares source timestamps against page generation times. A zero
// Threshold means DefaultThreshold.
type Checker struct {
	Threshold time.Duration
}

func (c Checker) threshold() time.Duration {
	if c.Threshold <= 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

// Check returns a StalePage when the newest timestamp in meta among files is
// strictly after generatedAt by at least the threshold, and nil otherwise.
// Files missing from meta are ignored.
func (c Checker) Check(pagePath string, generatedAt time.Time, files []string, meta map[string]FileMetadata) *StalePage {
	var newest time.Time
	newestFile := ""
	for _, f := range files {
		m, ok := meta[f]
		if !ok {
			continue
		}
		if m.LastModified.After(newest) || (m.LastModified.Equal(newest) && f < newestFile) {
			newest, newestFile = m.LastModified, f
		}
	}
	if newestFile == "" || !newest.After(generatedAt) {
		return nil
	}
	lag := newest.Sub(generatedAt)
	if lag < c.threshold() {
		return nil
	}
	return &StalePage{
		PagePath:     pagePath,
		DaysStale:    int(lag / (24 * time.Hour)),
		NewestSource: newest,
		NewestFile:   newestFile,
		GeneratedAt:  generatedAt,
	}
}

// CheckTracked checks every page recorded in tracker with one metadata
// query covering all of their sources.
func (c Checker) CheckTracked(ctx context.Context, tracker *Tracker, src MetadataSource) ([]StalePage, error) {
	pages := tracker.Pages()
	seen := make(map[string]bool)
	var files []string
	records := make([]PageStatus, 0, len(pages))
	for _, p := range pages {
		ps, err := tracker.Get(p)
		if err != nil {
			return nil, err
		}
		records = append(records, ps)
		for _, f := range ps.SourceFiles {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)

	meta, err := src.LastModified(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("source metadata: %w", err)
	}
	var stale []StalePage
	for _, ps := range records {
		if s := c.Check(ps.PagePath, ps.GeneratedAt, ps.SourceFiles, meta); s != nil {
			stale = append(stale, *s)
		}
	}
	return stale, nil
}

// --- Report ---

// Report aggregates staleness across a wiki.
type Report struct {
	Stale            []StalePage `json:"stale"`
	TotalPages       int         `json:"totalPages"`
	FreshPages       int         `json:"freshPages"`
	FreshnessPercent float64     `json:"freshnessPercent"`
}

// BuildReport orders stale pages by descending days stale, ties by page
// path, and computes the share of fresh pages. A wiki without pages is 100%
// fresh.
func BuildReport(stale []StalePage, totalPages int) Report {
	sorted := append([]StalePage(nil), stale...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DaysStale != sorted[j].DaysStale {
			return sorted[i].DaysStale > sorted[j].DaysStale
		}
		return sorted[i].PagePath < sorted[j].PagePath
	})
	fresh := max(totalPages-len(sorted), 0)
	percent := 100.0
	if totalPages > 0 {
		percent = float64(fresh) / float64(totalPages) * 100
	}
	return Report{Stale: sorted, TotalPages: totalPages, FreshPages: fresh, FreshnessPercent: percent}
}

// RenderReport formats a report as markdown.
func RenderReport(r Report) string {
	var b strings.Builder
	b.WriteString("# Documentation freshness\n\n")
	fmt.Fprintf(&b, "%d of %d pages fresh (%.1f%%).\n", r.FreshPages, r.TotalPages, r.FreshnessPercent)
	if len(r.Stale) == 0 {
		b.WriteString("\nAll pages are up to date.\n")
		return b.String()
	}
	b.WriteString("\n| Page | Days stale | Newest source | Changed |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, s := range r.Stale {
		fmt.Fprintf(&b, "| %s | %d | `%s` | %s |\n",
			s.PagePath, s.DaysStale, s.NewestFile, s.NewestSource.UTC().Format(time.DateOnly))
	}
	return b.String()
}
