package orchestrator

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/dusk-indust/codewiki/internal/graph"
)

// SourceFile is one parseable file found by Walk.
type SourceFile struct {
	Path     string // slash separated, relative to the walked root
	Language graph.Language
}

// Walk lists the source files below the root of fsys whose language is in
// languages (every supported language when empty). Hidden directories and
// directories named in exclude are skipped. The result is sorted by path.
func Walk(fsys fs.FS, languages []graph.Language, exclude []string) ([]SourceFile, error) {
	wanted := make(map[graph.Language]bool)
	for _, l := range languages {
		wanted[l] = true
	}
	skip := make(map[string]bool, len(exclude))
	for _, d := range exclude {
		skip[d] = true
	}

	var files []SourceFile
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && (skip[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		lang, ok := graph.LanguageForPath(p)
		if !ok || (len(wanted) > 0 && !wanted[lang]) {
			return nil
		}
		if strings.HasSuffix(p, ".d.ts") {
			return nil
		}
		files = append(files, SourceFile{Path: p, Language: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
