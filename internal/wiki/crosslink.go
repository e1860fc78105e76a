package wiki

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// Page is one generated documentation page.
type Page struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// spanPattern finds, left to right, spans that are never touched (inline
// links, reference links with their definitions, HTML comments, anchors and
// tags) and inline code spans (candidates for linking).
var spanPattern = regexp2.MustCompile(
	`(?<link>!?\[(?:[^\[\]]|\[[^\]]*\])*\]\([^)\n]*\)`+
		`|^[ ]{0,3}\[[^\]\n]+\]:[^\n]*`+
		`|!?\[(?:[^\[\]\n]|\[[^\]\n]*\])*\](?:\[[^\]\n]*\])?`+
		`|<!--[\s\S]*?-->`+
		`|<[aA]\b[^>]*>[\s\S]*?</[aA]\s*>`+
		`|</?[A-Za-z][^<>\n]*>)`+
		"|(?<code>(?<ticks>`+)(?!`)(?<body>.+?)(?<!`)\\k<ticks>(?!`))",
	regexp2.Multiline)

// CrossLinker rewrites entity mentions in page prose into relative links.
type CrossLinker struct {
	reg     *Registry
	scanner *Scanner
	aliases []aliasPattern
}

type aliasPattern struct {
	alias string
	re    *regexp2.Regexp
}

// NewCrossLinker prepares a linker over a frozen registry.
func NewCrossLinker(reg *Registry) *CrossLinker {
	cl := &CrossLinker{reg: reg, scanner: NewScanner(reg.IsClass)}
	for _, a := range reg.Aliases() {
		re := regexp2.MustCompile(`(?<![\w\[])`+regexp2.Escape(a)+`(?![\w\]])`, regexp2.None)
		cl.aliases = append(cl.aliases, aliasPattern{alias: a, re: re})
	}
	return cl
}

// Rewrite returns a copy of page with entity mentions linked. Fenced code is
// left byte-identical, existing links are kept, entities documented on the
// page itself are not linked, and each inline code span is linked at most
// once. Rewriting an already rewritten page changes nothing.
func (cl *CrossLinker) Rewrite(page Page) Page {
	var b strings.Builder
	for _, seg := range cl.scanner.Scan(page.Content) {
		if seg.Code {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(cl.linkProse(seg.Text, page.Path, seg.Class))
	}
	return Page{Path: page.Path, Content: b.String()}
}

// linkProse walks the protected spans of text: links are copied, code spans
// may become links, and the plain text between them gets alias links.
func (cl *CrossLinker) linkProse(text, pagePath, class string) string {
	runes := []rune(text)
	var b strings.Builder
	pos := 0
	m, err := spanPattern.FindRunesMatch(runes)
	for err == nil && m != nil {
		b.WriteString(cl.linkAliases(string(runes[pos:m.Index]), pagePath))
		if g := m.GroupByName("link"); g.Length > 0 {
			b.WriteString(g.String())
		} else {
			ticks := m.GroupByName("ticks").String()
			b.WriteString(cl.linkCodeSpan(ticks, m.GroupByName("body").String(), pagePath, class))
		}
		pos = m.Index + m.Length
		m, err = spanPattern.FindNextMatch(m)
	}
	b.WriteString(cl.linkAliases(string(runes[pos:]), pagePath))
	return b.String()
}

// linkCodeSpan links a backticked bare or dotted name. In a class section a
// bare name resolves as a method of that class first. The qualifier of a
// dotted name stays outside the link.
func (cl *CrossLinker) linkCodeSpan(ticks, body, pagePath, class string) string {
	original := ticks + body + ticks
	name := strings.TrimSpace(body)
	suffix := ""
	if strings.HasSuffix(name, "()") {
		name, suffix = strings.TrimSuffix(name, "()"), "()"
	}
	if name == "" || strings.ContainsAny(name, " \t") {
		return original
	}

	if class != "" && !strings.Contains(name, ".") {
		if e, ok := cl.reg.Lookup(class + "." + name); ok {
			return cl.link(original, e, pagePath)
		}
	}
	if e, ok := cl.reg.Lookup(name); ok {
		return cl.link(original, e, pagePath)
	}

	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return original
	}
	qualifier, last := name[:idx+1], name[idx+1:]
	e, ok := cl.reg.Lookup(last)
	if !ok || e.PagePath == "" || e.PagePath == pagePath {
		return original
	}
	return ticks + qualifier + ticks + "[" + ticks + last + suffix + ticks + "](" + RelativePath(pagePath, e.PagePath) + ")"
}

// link wraps text in a link to e's page unless e lives on pagePath.
func (cl *CrossLinker) link(text string, e EntityInfo, pagePath string) string {
	if e.PagePath == "" || e.PagePath == pagePath {
		return text
	}
	return "[" + text + "](" + RelativePath(pagePath, e.PagePath) + ")"
}

type aliasMatch struct {
	start, end int
	alias      string
}

// linkAliases links whole-word alias mentions in plain text. Overlapping
// matches resolve to the leftmost, then longest.
func (cl *CrossLinker) linkAliases(text, pagePath string) string {
	if text == "" || len(cl.aliases) == 0 {
		return text
	}
	runes := []rune(text)
	var matches []aliasMatch
	for _, ap := range cl.aliases {
		_, e, ok := cl.reg.LookupAlias(ap.alias)
		if !ok || e.PagePath == "" || e.PagePath == pagePath {
			continue
		}
		m, err := ap.re.FindRunesMatch(runes)
		for err == nil && m != nil {
			matches = append(matches, aliasMatch{start: m.Index, end: m.Index + m.Length, alias: ap.alias})
			m, err = ap.re.FindNextMatch(m)
		}
	}
	if len(matches) == 0 {
		return text
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var b strings.Builder
	pos := 0
	for _, m := range matches {
		if m.start < pos {
			continue
		}
		_, e, _ := cl.reg.LookupAlias(m.alias)
		b.WriteString(string(runes[pos:m.start]))
		b.WriteString("[" + string(runes[m.start:m.end]) + "](" + RelativePath(pagePath, e.PagePath) + ")")
		pos = m.end
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}
