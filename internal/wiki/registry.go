// Package wiki links generated documentation pages together: an entity
// registry records which page documents each class, function and method, and
// the cross-linker rewrites page prose so mentions of those entities point at
// their pages.
package wiki

import (
	"sort"
	"unicode"

	"github.com/dusk-indust/codewiki/internal/graph"
)

// EntityInfo records where an entity is documented and defined.
type EntityInfo struct {
	Name       string          `json:"name"`
	Kind       graph.ChunkKind `json:"kind"`
	PagePath   string          `json:"pagePath"`
	FilePath   string          `json:"filePath"`
	ParentName string          `json:"parentName,omitempty"`
}

// RegistryBuilder collects entities during the build phase. It is not safe
// for concurrent use; callers register sequentially once parsing is done.
type RegistryBuilder struct {
	entities  map[string]EntityInfo
	aliases   map[string]string // spaced alias -> canonical name
	ambiguous map[string]bool
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		entities:  make(map[string]EntityInfo),
		aliases:   make(map[string]string),
		ambiguous: make(map[string]bool),
	}
}

// Register inserts or overwrites the entity stored under name.
func (b *RegistryBuilder) Register(name string, kind graph.ChunkKind, pagePath, filePath, parentName string) {
	if name == "" {
		return
	}
	b.entities[name] = EntityInfo{
		Name:       name,
		Kind:       kind,
		PagePath:   pagePath,
		FilePath:   filePath,
		ParentName: parentName,
	}
}

// RegisterAlias maps a spaced alias to a canonical name. The first mapping
// wins; a later mapping to a different name marks the alias ambiguous.
func (b *RegistryBuilder) RegisterAlias(alias, canonical string) {
	if existing, ok := b.aliases[alias]; ok {
		if existing != canonical {
			b.ambiguous[alias] = true
		}
		return
	}
	b.aliases[alias] = canonical
}

// RegisterFromChunks registers every class, function and method chunk as
// documented on pagePath. Methods are also registered under
// "Parent.method". Names that split into at least two CamelCase words get a
// spaced alias.
func (b *RegistryBuilder) RegisterFromChunks(chunks []graph.Chunk, pagePath string) {
	for _, c := range chunks {
		switch c.Kind {
		case graph.ChunkKindClass, graph.ChunkKindFunction, graph.ChunkKindMethod:
		default:
			continue
		}
		if c.Name == "" {
			continue
		}
		b.Register(c.Name, c.Kind, pagePath, c.FilePath, c.ParentName)
		if c.Kind == graph.ChunkKindMethod && c.ParentName != "" {
			b.Register(c.QualifiedName(), c.Kind, pagePath, c.FilePath, c.ParentName)
		}
		if alias, ok := CamelToSpaced(c.Name); ok {
			b.RegisterAlias(alias, c.Name)
		}
	}
}

// Build freezes the current contents into a read-only Registry. Later writes
// to the builder do not affect registries already built.
func (b *RegistryBuilder) Build() *Registry {
	r := &Registry{
		entities:  make(map[string]EntityInfo, len(b.entities)),
		aliases:   make(map[string]string, len(b.aliases)),
		ambiguous: make(map[string]bool, len(b.ambiguous)),
	}
	for k, v := range b.entities {
		r.entities[k] = v
	}
	for k, v := range b.aliases {
		r.aliases[k] = v
	}
	for k := range b.ambiguous {
		r.ambiguous[k] = true
	}
	return r
}

// Registry is an immutable entity snapshot, safe for concurrent reads.
type Registry struct {
	entities  map[string]EntityInfo
	aliases   map[string]string
	ambiguous map[string]bool
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	return len(r.entities)
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (EntityInfo, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// LookupAlias resolves a spaced alias to its canonical name and entity.
// Ambiguous aliases do not resolve.
func (r *Registry) LookupAlias(alias string) (string, EntityInfo, bool) {
	if r.ambiguous[alias] {
		return "", EntityInfo{}, false
	}
	canonical, ok := r.aliases[alias]
	if !ok {
		return "", EntityInfo{}, false
	}
	e, ok := r.entities[canonical]
	return canonical, e, ok
}

// Entities returns every entity sorted by name.
func (r *Registry) Entities() []EntityInfo {
	out := make([]EntityInfo, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Aliases returns the resolvable aliases, longest first and then
// alphabetically.
func (r *Registry) Aliases() []string {
	out := make([]string, 0, len(r.aliases))
	for a := range r.aliases {
		if !r.ambiguous[a] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// AmbiguousAliases returns the aliases claimed by more than one name, sorted.
func (r *Registry) AmbiguousAliases() []string {
	out := make([]string, 0, len(r.ambiguous))
	for a := range r.ambiguous {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// IsClass reports whether name is a registered class.
func (r *Registry) IsClass(name string) bool {
	e, ok := r.entities[name]
	return ok && e.Kind == graph.ChunkKindClass
}

// CamelToSpaced splits a CamelCase identifier into space-separated words.
// Words break on a lower-case letter or digit followed by an upper-case one,
// and before the last capital of an upper-case run that is followed by a
// lower-case letter ("HTTPServer" -> "HTTP Server"). It reports false when
// fewer than two words result or s holds anything but letters and digits.
func CamelToSpaced(s string) (string, bool) {
	runes := []rune(s)
	var out []rune
	words := 1
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", false
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				out = append(out, ' ')
				words++
			}
		}
		out = append(out, r)
	}
	if words < 2 {
		return "", false
	}
	return string(out), true
}
