package graph

import (
	"regexp"
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// extraction holds the state of one pass over a parsed file.
type extraction struct {
	rules *langRules
	src   []byte
	path  string
	lang  Language

	defs        []Chunk // classes and top-level functions, source order
	methods     []Chunk
	imports     []Chunk
	implParents map[string][]string
}

// ExtractChunks walks a parsed tree using the rule table for lang and
// returns the file's chunks: classes and top-level functions in source
// order, each class followed by its methods, then methods whose class is not
// declared in this file, then import chunks. Definitions without a usable
// name are skipped.
func ExtractChunks(root *tree_sitter.Node, src []byte, path string, lang Language) ([]Chunk, error) {
	rules, ok := rulesByLang[lang]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}
	e := &extraction{
		rules:       rules,
		src:         src,
		path:        path,
		lang:        lang,
		implParents: make(map[string][]string),
	}

	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor)

	return e.assemble(), nil
}

func (e *extraction) walk(cursor *tree_sitter.TreeCursor) {
	node := cursor.Node()

	switch e.rules.category(node.Kind()) {
	case CategoryClass:
		if c, ok := e.classChunk(node); ok {
			e.defs = append(e.defs, c)
		}
	case CategoryContainer:
		e.recordImpl(node)
	case CategoryFunction:
		e.functionChunk(node)
	case CategoryImport:
		e.imports = append(e.imports, e.importChunk(node))
		return
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor)
		for cursor.GotoNextSibling() {
			e.walk(cursor)
		}
		cursor.GotoParent()
	}
}

// assemble orders the collected chunks and applies the facts that are only
// known once the whole file has been seen.
func (e *extraction) assemble() []Chunk {
	abstractOwners := make(map[string]bool)
	byParent := make(map[string][]int)
	for i, m := range e.methods {
		byParent[m.ParentName] = append(byParent[m.ParentName], i)
		if m.Metadata.IsAbstract {
			abstractOwners[m.ParentName] = true
		}
	}

	used := make([]bool, len(e.methods))
	out := make([]Chunk, 0, len(e.defs)+len(e.methods)+len(e.imports))
	for _, d := range e.defs {
		if d.Kind == ChunkKindClass {
			if traits := e.implParents[d.Name]; len(traits) > 0 {
				parents := slices.Clone(d.Metadata.Parents)
				for _, t := range traits {
					if !slices.Contains(parents, t) {
						parents = append(parents, t)
					}
				}
				d.Metadata.Parents = parents
			}
			if abstractOwners[d.Name] || isABCLike(d.Metadata.Parents) {
				d.Metadata.IsAbstract = true
			}
		}
		out = append(out, d)
		if d.Kind != ChunkKindClass {
			continue
		}
		for _, idx := range byParent[d.Name] {
			if !used[idx] {
				used[idx] = true
				out = append(out, e.methods[idx])
			}
		}
	}
	for i, m := range e.methods {
		if !used[i] {
			out = append(out, m)
		}
	}
	return append(out, e.imports...)
}

// --- Definitions ---

func (e *extraction) classChunk(node *tree_sitter.Node) (Chunk, bool) {
	if e.rules.classFilter != nil && !e.rules.classFilter(node) {
		return Chunk{}, false
	}
	name := e.definitionName(node)
	if name == "" {
		return Chunk{}, false
	}

	c := e.newChunk(node, ChunkKindClass, name, "")
	if e.rules.bases != nil {
		c.Metadata.Parents = e.rules.bases(node, e.src)
	}
	c.Metadata.Decorators = e.decorators(node)
	c.Metadata.IsAbstract = e.rules.abstractKinds[node.Kind()] ||
		(e.rules.abstractType != nil && e.rules.abstractType(node)) ||
		mentionsAbstract(c)
	return c, true
}

func (e *extraction) functionChunk(node *tree_sitter.Node) {
	name := e.definitionName(node)
	if name == "" {
		return
	}

	owner, inClass, ok := e.owner(node)
	if !ok {
		return
	}
	kind := ChunkKindFunction
	if owner != "" {
		kind = ChunkKindMethod
	} else if inClass {
		// Defined inside a class but not directly in its body.
		return
	}

	c := e.newChunk(node, kind, name, owner)
	c.Metadata.Parameters = e.parameters(node)
	c.Metadata.ReturnType = e.returnType(node)
	c.Metadata.IsAsync = e.hasToken(node, "async")
	c.Metadata.Decorators = e.decorators(node)
	c.Metadata.IsProperty = e.isAccessor(node) || hasDecorator(c.Metadata.Decorators, "property", "cached_property")
	c.Metadata.IsAbstract = e.rules.abstractMethodKinds[node.Kind()] || hasDecorator(c.Metadata.Decorators, "abstractmethod")
	c.Metadata.Calls = e.calls(node)

	if kind == ChunkKindMethod {
		e.methods = append(e.methods, c)
	} else {
		e.defs = append(e.defs, c)
	}
}

// owner resolves the class a function belongs to. inClass reports whether
// any enclosing class or container exists, so nested helpers inside methods
// can be excluded from the top-level list. ok is false when the enclosing
// class has no usable name.
func (e *extraction) owner(node *tree_sitter.Node) (owner string, inClass, ok bool) {
	direct := true
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch e.rules.category(p.Kind()) {
		case CategoryFunction:
			direct = false
		case CategoryClass:
			if !direct {
				return "", true, true
			}
			name := e.definitionName(p)
			return name, true, name != ""
		case CategoryContainer:
			if !direct {
				return "", true, true
			}
			name := e.containerName(p)
			return name, true, name != ""
		}
	}
	if direct && e.rules.receiverParent != nil {
		return e.rules.receiverParent(node, e.src), false, true
	}
	return "", false, true
}

func (e *extraction) importChunk(node *tree_sitter.Node) Chunk {
	text := strings.TrimSpace(node.Utf8Text(e.src))
	start := int(node.StartPosition().Row) + 1
	return Chunk{
		ID:        ChunkID(e.path, ChunkKindImport, text, start),
		FilePath:  e.path,
		Language:  e.lang,
		Kind:      ChunkKindImport,
		StartLine: start,
		EndLine:   int(node.EndPosition().Row) + 1,
		Content:   text,
	}
}

func (e *extraction) recordImpl(node *tree_sitter.Node) {
	if e.rules.containerTraitField == "" {
		return
	}
	trait := node.ChildByFieldName(e.rules.containerTraitField)
	typ := e.containerName(node)
	if trait == nil || typ == "" {
		return
	}
	e.implParents[typ] = append(e.implParents[typ], stripTypeArgs(trait.Utf8Text(e.src)))
}

func (e *extraction) newChunk(node *tree_sitter.Node, kind ChunkKind, name, parent string) Chunk {
	anchor := e.anchor(node)
	start := int(anchor.StartPosition().Row) + 1
	end := int(node.EndPosition().Row) + 1
	if end < start {
		end = start
	}
	qualified := name
	if parent != "" {
		qualified = parent + "." + name
	}
	return Chunk{
		ID:         ChunkID(e.path, kind, qualified, start),
		FilePath:   e.path,
		Language:   e.lang,
		Kind:       kind,
		Name:       name,
		ParentName: parent,
		StartLine:  start,
		EndLine:    end,
		Content:    anchor.Utf8Text(e.src),
		Docstring:  e.docstring(node),
	}
}

// anchor returns the wrapper around a definition (decorated or exported
// form) when the wrapper holds only that definition, else the node itself.
func (e *extraction) anchor(node *tree_sitter.Node) *tree_sitter.Node {
	parent := node.Parent()
	if parent == nil || e.rules.category(parent.Kind()) != CategoryWrapper {
		return node
	}
	defs := 0
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		c := parent.NamedChild(i)
		if c == nil {
			continue
		}
		switch e.rules.category(c.Kind()) {
		case CategoryFunction, CategoryClass:
			defs++
		}
	}
	if defs == 1 {
		return parent
	}
	return node
}

func (e *extraction) definitionName(node *tree_sitter.Node) string {
	nameNode := node.ChildByFieldName(e.rules.nameField)
	if nameNode == nil {
		parent := node.Parent()
		if parent == nil || !e.rules.declaratorKinds[parent.Kind()] {
			return ""
		}
		nameNode = parent.ChildByFieldName("name")
		if nameNode == nil {
			return ""
		}
	}
	name := nameNode.Utf8Text(e.src)
	if !isIdentifier(name) {
		return ""
	}
	return name
}

func (e *extraction) containerName(node *tree_sitter.Node) string {
	t := node.ChildByFieldName(e.rules.containerNameField)
	if t == nil {
		return ""
	}
	name := stripTypeArgs(t.Utf8Text(e.src))
	if !isIdentifier(name) {
		return ""
	}
	return name
}

// --- Parameters ---

// parameters extracts the declared parameters in order. Receivers are
// dropped, unnamed parameters are skipped.
func (e *extraction) parameters(fn *tree_sitter.Node) []Parameter {
	list := fn.ChildByFieldName(e.rules.paramsField)
	if list == nil {
		// Single bare arrow-function parameter: x => x.
		if p := fn.ChildByFieldName("parameter"); p != nil && isIdentifier(p.Utf8Text(e.src)) {
			return []Parameter{{Name: p.Utf8Text(e.src)}}
		}
		return nil
	}

	var out []Parameter
	position := 0
	for i := uint(0); i < list.NamedChildCount(); i++ {
		child := list.NamedChild(i)
		if child == nil {
			continue
		}
		rule, ok := e.rules.params[child.Kind()]
		if !ok {
			continue
		}
		first := position == 0
		position++
		if rule.receiver {
			continue
		}

		typ := trimTypeAnnotation(e.fieldText(child, rule.typeField))
		def := e.fieldText(child, rule.valueField)
		for _, nameNode := range e.paramNameNodes(child, rule) {
			prefix := rule.prefix
			if p, ok := e.rules.splatKinds[nameNode.Kind()]; ok {
				prefix = p
				inner := nameNode.NamedChild(0)
				if inner == nil {
					continue
				}
				nameNode = inner
			}
			name := strings.TrimPrefix(nameNode.Utf8Text(e.src), "mut ")
			if name == "" {
				continue
			}
			if first && prefix == "" && e.rules.receiverNames[name] {
				continue
			}
			out = append(out, Parameter{Name: prefix + name, Type: typ, Default: def})
		}
	}
	return out
}

func (e *extraction) paramNameNodes(child *tree_sitter.Node, rule paramRule) []*tree_sitter.Node {
	switch {
	case rule.nameKind != "":
		var names []*tree_sitter.Node
		for i := uint(0); i < child.NamedChildCount(); i++ {
			if c := child.NamedChild(i); c != nil && c.Kind() == rule.nameKind {
				names = append(names, c)
			}
		}
		return names
	case rule.firstChild:
		if c := child.NamedChild(0); c != nil {
			return []*tree_sitter.Node{c}
		}
	case rule.nameField != "":
		if c := child.ChildByFieldName(rule.nameField); c != nil {
			return []*tree_sitter.Node{c}
		}
	default:
		return []*tree_sitter.Node{child}
	}
	return nil
}

func (e *extraction) returnType(fn *tree_sitter.Node) string {
	return trimTypeAnnotation(e.fieldText(fn, e.rules.returnField))
}

func (e *extraction) fieldText(node *tree_sitter.Node, field string) string {
	if field == "" {
		return ""
	}
	c := node.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Utf8Text(e.src))
}

// hasToken reports whether an anonymous keyword token appears among the
// node's children or inside one of its modifier lists.
func (e *extraction) hasToken(node *tree_sitter.Node, token string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		if c.Kind() == token {
			return true
		}
		if e.rules.modifierKinds[c.Kind()] {
			for j := uint(0); j < c.ChildCount(); j++ {
				if m := c.Child(j); m != nil && m.Kind() == token {
					return true
				}
			}
		}
	}
	return false
}

func (e *extraction) isAccessor(node *tree_sitter.Node) bool {
	for tok := range e.rules.accessorTokens {
		if e.hasToken(node, tok) {
			return true
		}
	}
	return false
}

// --- Decorators ---

// decorators collects decorator names top to bottom: leading decorator
// children of the definition, then preceding decorator siblings. Comments
// between decorators are skipped; any other sibling ends the walk.
func (e *extraction) decorators(node *tree_sitter.Node) []string {
	var out []string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(i)
		if c == nil || e.rules.category(c.Kind()) != CategoryDecorator {
			break
		}
		out = append(out, decoratorName(c.Utf8Text(e.src)))
	}

	var preceding []string
	for s := node.PrevNamedSibling(); s != nil; s = s.PrevNamedSibling() {
		cat := e.rules.category(s.Kind())
		if cat == CategoryComment {
			continue
		}
		if cat != CategoryDecorator {
			break
		}
		preceding = append(preceding, decoratorName(s.Utf8Text(e.src)))
	}
	slices.Reverse(preceding)
	out = append(preceding, out...)

	var names []string
	for _, d := range out {
		if d != "" {
			names = append(names, d)
		}
	}
	return names
}

func decoratorName(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "@")
	if strings.HasPrefix(text, "#[") {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "#["), "]")
	}
	if idx := strings.IndexAny(text, "(\n"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func hasDecorator(decorators []string, names ...string) bool {
	for _, d := range decorators {
		short := d
		if idx := strings.LastIndexByte(d, '.'); idx >= 0 {
			short = d[idx+1:]
		}
		if slices.Contains(names, short) {
			return true
		}
	}
	return false
}

// --- Calls ---

// calls returns the ordered, de-duplicated callee names invoked in the
// definition's body. Nested named definitions keep their own calls.
func (e *extraction) calls(fn *tree_sitter.Node) []string {
	body := fn.ChildByFieldName(e.rules.bodyField)
	if body == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		switch e.rules.category(n.Kind()) {
		case CategoryFunction, CategoryClass:
			if n.ChildByFieldName(e.rules.nameField) != nil {
				return
			}
		case CategoryCall:
			if callee := n.ChildByFieldName(e.rules.calleeFields[n.Kind()]); callee != nil {
				if name := e.calleeName(callee); name != "" && !seen[name] {
					seen[name] = true
					out = append(out, name)
				}
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c != nil {
				visit(c)
			}
		}
	}
	visit(body)
	return out
}

// calleeName resolves a callee expression to its final identifier segment.
func (e *extraction) calleeName(n *tree_sitter.Node) string {
	for n != nil {
		kind := n.Kind()
		if e.rules.identKinds[kind] {
			return n.Utf8Text(e.src)
		}
		field, ok := e.rules.memberFields[kind]
		if !ok {
			return ""
		}
		n = n.ChildByFieldName(field)
	}
	return ""
}

// --- Helpers ---

var abstractWord = regexp.MustCompile(`(?i)\babstract\b`)

// mentionsAbstract looks for the word "abstract" in the first lines of a
// class body or in the summary line of its docstring.
func mentionsAbstract(c Chunk) bool {
	lines := strings.Split(c.Content, "\n")
	if len(lines) > 4 {
		lines = lines[:4]
	}
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if abstractWord.MatchString(strings.Join(lines, "\n")) {
		return true
	}
	summary, _, _ := strings.Cut(c.Docstring, "\n")
	return abstractWord.MatchString(summary)
}

var abcBases = map[string]bool{"ABC": true, "ABCMeta": true, "Protocol": true}

func isABCLike(parents []string) bool {
	for _, p := range parents {
		if strings.HasPrefix(p, "metaclass=") {
			p = strings.TrimPrefix(p, "metaclass=")
		}
		if idx := strings.LastIndexByte(p, '.'); idx >= 0 {
			p = p[idx+1:]
		}
		if abcBases[p] {
			return true
		}
	}
	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r == '#' && i == 0:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r > 127:
		default:
			return false
		}
	}
	return true
}

func stripTypeArgs(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "&"))
	if idx := strings.IndexByte(s, '<'); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, "::"); idx >= 0 {
		s = s[idx+2:]
	}
	return strings.TrimSpace(s)
}

func trimTypeAnnotation(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}
