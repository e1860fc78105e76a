package graph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedLanguage is returned when no grammar or rule table exists
// for the requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseResult holds the chunks extracted from a single file.
type ParseResult struct {
	File   FileNode `json:"file"`
	Chunks []Chunk  `json:"chunks"`
}

// Imports returns the raw import lines of the file in source order.
func (r *ParseResult) Imports() []string {
	var lines []string
	for _, c := range r.Chunks {
		if c.Kind == ChunkKindImport {
			lines = append(lines, c.Content)
		}
	}
	return lines
}

// Definitions returns the class, function and method chunks.
func (r *ParseResult) Definitions() []Chunk {
	var out []Chunk
	for _, c := range r.Chunks {
		if c.Kind != ChunkKindImport {
			out = append(out, c)
		}
	}
	return out
}

// Parser extracts structural chunks from source files.
// Implementations: TreeSitterParser (production).
type Parser interface {
	// Parse extracts chunks from a single source file.
	// source is the file content. lang determines which grammar to use.
	Parse(ctx context.Context, path string, source []byte, lang Language) (*ParseResult, error)

	// SupportedLanguages returns the languages this parser can handle.
	SupportedLanguages() []Language

	// Close releases parser resources.
	Close() error
}

var extToLanguage = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".py":  LangPython,
	".rs":  LangRust,
}

// LanguageForPath maps a file extension to its Language.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}
