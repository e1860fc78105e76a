package graph

import (
	"regexp"
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// docstring returns the documentation attached to a definition, following
// the language's docMode. An empty string means no docstring.
func (e *extraction) docstring(node *tree_sitter.Node) string {
	switch e.rules.docMode {
	case docFirstStatement:
		return e.firstStatementDoc(node)
	case docLeadingComment:
		if doc := e.leadingCommentDoc(node); doc != "" {
			return doc
		}
		if anchor := e.anchor(node); anchor != node {
			return e.leadingCommentDoc(anchor)
		}
	}
	return ""
}

// firstStatementDoc inspects only the first statement of the body. Comments
// and pass-like statements are stepped over; anything other than a bare
// string literal means there is no docstring.
func (e *extraction) firstStatementDoc(node *tree_sitter.Node) string {
	body := node.ChildByFieldName(e.rules.bodyField)
	if body == nil {
		return ""
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt == nil {
			continue
		}
		if e.rules.category(stmt.Kind()) == CategoryComment || e.rules.passKinds[stmt.Kind()] {
			continue
		}
		if !e.rules.exprStmtKinds[stmt.Kind()] || stmt.NamedChildCount() != 1 {
			return ""
		}
		lit := stmt.NamedChild(0)
		if lit == nil || !e.rules.stringKinds[lit.Kind()] {
			return ""
		}
		return cleanDocstring(stringLiteralValue(lit.Utf8Text(e.src)))
	}
	return ""
}

// leadingCommentDoc gathers the contiguous comment block directly above the
// node. Decorators between the comment and the definition are stepped over.
func (e *extraction) leadingCommentDoc(node *tree_sitter.Node) string {
	var block []string
	nextRow := node.StartPosition().Row
	for s := node.PrevNamedSibling(); s != nil; s = s.PrevNamedSibling() {
		cat := e.rules.category(s.Kind())
		if cat == CategoryDecorator && len(block) == 0 {
			nextRow = s.StartPosition().Row
			continue
		}
		if cat != CategoryComment || s.EndPosition().Row+1 < nextRow {
			break
		}
		block = append(block, s.Utf8Text(e.src))
		nextRow = s.StartPosition().Row
	}
	if len(block) == 0 {
		return ""
	}
	slices.Reverse(block)
	var lines []string
	for _, c := range block {
		lines = append(lines, stripCommentMarkers(c)...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripCommentMarkers(comment string) []string {
	var out []string
	for _, line := range strings.Split(comment, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"///", "//!", "//", "/**", "/*", "#"} {
			if strings.HasPrefix(line, prefix) {
				line = line[len(prefix):]
				break
			}
		}
		line = strings.TrimSuffix(line, "*/")
		if strings.HasPrefix(line, "*") {
			line = line[1:]
		}
		out = append(out, strings.TrimPrefix(strings.TrimRight(line, " \t"), " "))
	}
	return out
}

// stringLiteralValue strips prefixes and quotes from a string literal.
func stringLiteralValue(raw string) string {
	if s := strings.TrimLeft(raw, "rRuUbBfF"); strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		raw = s
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)]
		}
	}
	return raw
}

// cleanDocstring removes the common indentation of every line after the
// first and trims leading and trailing blank lines.
func cleanDocstring(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "    "), "\n")
	indent := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if n := len(l) - len(trimmed); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " ")
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// --- Docstring dialects ---

// DocDialect names a structured docstring convention.
type DocDialect string

const (
	// DialectLabeled uses "Args:" / "Returns:" style section labels.
	DialectLabeled DocDialect = "labeled"
	// DialectDashed underlines section titles with dashes.
	DialectDashed DocDialect = "dashed"
)

// ParamDoc is the documented type and description of one parameter.
type ParamDoc struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParsedDocstring is the uniform result of either dialect.
type ParsedDocstring struct {
	Dialect     DocDialect          `json:"dialect"`
	Description string              `json:"description"`
	Params      map[string]ParamDoc `json:"params"`
	Returns     string              `json:"returns,omitempty"`
}

type docSection int

const (
	sectionNone docSection = iota
	sectionParams
	sectionReturns
	sectionOther
)

var sectionTitles = map[string]docSection{
	"args":       sectionParams,
	"arguments":  sectionParams,
	"parameters": sectionParams,
	"params":     sectionParams,
	"returns":    sectionReturns,
	"return":     sectionReturns,
	"yields":     sectionReturns,
	"raises":     sectionOther,
	"examples":   sectionOther,
	"example":    sectionOther,
	"notes":      sectionOther,
	"note":       sectionOther,
	"attributes": sectionOther,
	"see also":   sectionOther,
}

var (
	dashedUnderline = regexp.MustCompile(`^\s*-{3,}\s*$`)
	labeledParam    = regexp.MustCompile(`^(\*{0,2}\w+)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)
	dashedParam     = regexp.MustCompile(`^(\*{0,2}\w+)\s*(?::\s*(.*))?$`)
)

// DetectDialect reports the dashed dialect only when a known section title
// is immediately underlined with dashes; everything else is labeled.
func DetectDialect(doc string) DocDialect {
	lines := strings.Split(doc, "\n")
	for i := 0; i+1 < len(lines); i++ {
		title := strings.ToLower(strings.TrimSpace(lines[i]))
		if _, ok := sectionTitles[title]; ok && dashedUnderline.MatchString(lines[i+1]) {
			return DialectDashed
		}
	}
	return DialectLabeled
}

// ParseDocstring splits a docstring into its description (first paragraph),
// parameter docs and returns text.
func ParseDocstring(doc string) ParsedDocstring {
	doc = strings.TrimSpace(doc)
	out := ParsedDocstring{
		Dialect:     DetectDialect(doc),
		Description: firstParagraph(doc),
		Params:      make(map[string]ParamDoc),
	}
	if doc == "" {
		return out
	}
	if out.Dialect == DialectDashed {
		parseDashed(doc, &out)
	} else {
		parseLabeled(doc, &out)
	}
	return out
}

func firstParagraph(doc string) string {
	var para []string
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			break
		}
		if _, ok := labeledTitle(t); ok {
			break
		}
		if i+1 < len(lines) && dashedUnderline.MatchString(lines[i+1]) {
			break
		}
		para = append(para, t)
	}
	return strings.Join(para, " ")
}

func labeledTitle(line string) (docSection, bool) {
	if !strings.HasSuffix(line, ":") {
		return sectionNone, false
	}
	s, ok := sectionTitles[strings.ToLower(strings.TrimSuffix(line, ":"))]
	return s, ok
}

func parseLabeled(doc string, out *ParsedDocstring) {
	section := sectionNone
	var current string
	var returns []string
	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimSpace(raw)
		if s, ok := labeledTitle(line); ok {
			section = s
			current = ""
			continue
		}
		if line == "" {
			continue
		}
		switch section {
		case sectionParams:
			indented := len(raw)-len(strings.TrimLeft(raw, " \t")) > paramIndent(doc)
			if m := labeledParam.FindStringSubmatch(line); m != nil && (current == "" || !indented) {
				current = m[1]
				out.Params[current] = ParamDoc{Type: strings.TrimSpace(m[2]), Description: strings.TrimSpace(m[3])}
			} else if current != "" {
				appendParamText(out, current, line)
			}
		case sectionReturns:
			returns = append(returns, line)
		}
	}
	out.Returns = strings.Join(returns, " ")
}

// paramIndent is the indentation of the first entry under a parameter
// section; deeper lines continue the previous entry.
func paramIndent(doc string) int {
	lines := strings.Split(doc, "\n")
	for i, l := range lines {
		if s, ok := labeledTitle(strings.TrimSpace(l)); ok && s == sectionParams {
			for _, next := range lines[i+1:] {
				if strings.TrimSpace(next) != "" {
					return len(next) - len(strings.TrimLeft(next, " \t"))
				}
			}
		}
	}
	return 0
}

func parseDashed(doc string, out *ParsedDocstring) {
	lines := strings.Split(doc, "\n")
	section := sectionNone
	var current string
	var returns []string
	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		line := strings.TrimSpace(raw)
		if i+1 < len(lines) && dashedUnderline.MatchString(lines[i+1]) {
			if s, ok := sectionTitles[strings.ToLower(line)]; ok {
				section = s
				current = ""
				i++
				continue
			}
		}
		if line == "" {
			continue
		}
		indented := len(raw)-len(strings.TrimLeft(raw, " \t")) > 0
		switch section {
		case sectionParams:
			if m := dashedParam.FindStringSubmatch(line); m != nil && !indented {
				current = m[1]
				out.Params[current] = ParamDoc{Type: strings.TrimSpace(m[2])}
			} else if current != "" {
				appendParamText(out, current, line)
			}
		case sectionReturns:
			if !indented && len(returns) == 0 && !strings.Contains(line, " ") {
				// "int" type line; the description follows indented.
				returns = append(returns, line+":")
				continue
			}
			returns = append(returns, line)
		}
	}
	out.Returns = strings.TrimSuffix(strings.Join(returns, " "), ":")
}

func appendParamText(out *ParsedDocstring, name, text string) {
	p := out.Params[name]
	if p.Description == "" {
		p.Description = text
	} else {
		p.Description += " " + text
	}
	out.Params[name] = p
}
