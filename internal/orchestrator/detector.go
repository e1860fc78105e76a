package orchestrator

import (
	"sort"

	"github.com/dusk-indust/codewiki/internal/graph"
)

// LanguageCount is the number of files of one language.
type LanguageCount struct {
	Language graph.Language `json:"language"`
	Files    int            `json:"files"`
}

// DetectLanguages counts files per language, most common first, ties by
// language name.
func DetectLanguages(files []SourceFile) []LanguageCount {
	counts := make(map[graph.Language]int)
	for _, f := range files {
		counts[f.Language]++
	}
	out := make([]LanguageCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, LanguageCount{Language: l, Files: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Files != out[j].Files {
			return out[i].Files > out[j].Files
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// PrimaryLanguage returns the most common language, or "" for no files.
func PrimaryLanguage(files []SourceFile) graph.Language {
	if counts := DetectLanguages(files); len(counts) > 0 {
		return counts[0].Language
	}
	return ""
}
