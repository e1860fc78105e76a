package graph

import (
	"sort"
	"strings"
)

// ClassMap indexes class nodes by name.
type ClassMap map[string]*ClassNode

// BuildClassNodes builds the inheritance graph from class chunks. Children
// are the transpose of parents restricted to classes present in chunks. When
// two classes share a name the later chunk wins.
func BuildClassNodes(chunks []Chunk) ClassMap {
	classes := make(ClassMap)
	for _, c := range chunks {
		if c.Kind != ChunkKindClass || c.Name == "" {
			continue
		}
		classes[c.Name] = &ClassNode{
			Name:       c.Name,
			FilePath:   c.FilePath,
			Parents:    append([]string(nil), c.Metadata.Parents...),
			IsAbstract: c.Metadata.IsAbstract,
			Docstring:  c.Docstring,
		}
	}
	for _, name := range classes.Names() {
		for _, parent := range classes[name].Parents {
			if p, ok := classes.resolve(parent); ok && p.Name != name && !containsString(p.Children, name) {
				p.Children = append(p.Children, name)
			}
		}
	}
	for _, cn := range classes {
		sort.Strings(cn.Children)
	}
	return classes
}

// Names returns the class names in sorted order.
func (m ClassMap) Names() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// resolve looks a parent reference up as written, then by its last dotted
// segment ("abc.Base" -> "Base"), ignoring type arguments.
func (m ClassMap) resolve(ref string) (*ClassNode, bool) {
	if idx := strings.IndexAny(ref, "<["); idx >= 0 {
		ref = ref[:idx]
	}
	if cn, ok := m[ref]; ok {
		return cn, true
	}
	for _, sep := range []string{".", "::"} {
		if idx := strings.LastIndex(ref, sep); idx >= 0 {
			if cn, ok := m[ref[idx+len(sep):]]; ok {
				return cn, true
			}
		}
	}
	return nil, false
}

// ResolvedParents returns the parents of a class that are known classes.
func (m ClassMap) ResolvedParents(name string) []string {
	cn, ok := m[name]
	if !ok {
		return nil
	}
	var out []string
	for _, p := range cn.Parents {
		if pn, ok := m.resolve(p); ok && pn.Name != name {
			out = append(out, pn.Name)
		}
	}
	return out
}

// FindRootClasses returns the classes that have at least one child and no
// parent resolvable within the map, sorted by name. A class with neither
// parents nor children is never a root.
func (m ClassMap) FindRootClasses() []string {
	var roots []string
	for _, name := range m.Names() {
		if len(m[name].Children) > 0 && len(m.ResolvedParents(name)) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// InheritanceTree renders an indented text tree below each root class.
// Each root gets its own visited set; a class reached twice within one tree
// (diamond or cycle) is printed once more with a marker and not expanded.
func (m ClassMap) InheritanceTree() string {
	var b strings.Builder
	for _, root := range m.FindRootClasses() {
		m.writeTree(&b, root, 0, make(map[string]bool))
	}
	return b.String()
}

func (m ClassMap) writeTree(b *strings.Builder, name string, depth int, visited map[string]bool) {
	b.WriteString(strings.Repeat("  ", depth))
	if visited[name] {
		b.WriteString(name + " (see above)\n")
		return
	}
	visited[name] = true
	b.WriteString(name)
	if cn, ok := m[name]; ok && cn.IsAbstract {
		b.WriteString(" [abstract]")
	}
	b.WriteString("\n")
	cn, ok := m[name]
	if !ok {
		return
	}
	for _, child := range cn.Children {
		m.writeTree(b, child, depth+1, visited)
	}
}
