package graph

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// RootModule is the identifier of Go files at the repository root.
const RootModule = "root"

// DefaultSourceRoots are stripped from the front of file paths when deriving
// module identifiers.
var DefaultSourceRoots = []string{"src", "lib"}

// ModuleOptions controls module identifier derivation.
type ModuleOptions struct {
	SourceRoots  []string // nil means DefaultSourceRoots
	PackageDir   string   // stripped after the source root; empty means auto-detect
	IncludeTests bool
}

func (o ModuleOptions) roots() []string {
	if o.SourceRoots == nil {
		return DefaultSourceRoots
	}
	return o.SourceRoots
}

var indexStems = map[string]bool{"__init__": true, "index": true, "mod": true}

// ModuleID derives a dotted module identifier from a repo-relative file
// path: one leading source-root segment and one package-directory segment
// are stripped, the extension and index-like stems (__init__, index, mod) are
// dropped. Go files map to their directory because Go imports packages.
func ModuleID(filePath string, opts ModuleOptions) string {
	segs := strings.Split(path.Clean(strings.TrimPrefix(filePath, "./")), "/")
	if len(segs) > 1 && containsString(opts.roots(), segs[0]) {
		segs = segs[1:]
	}
	pkg := ""
	if opts.PackageDir != "" && len(segs) > 1 && segs[0] == opts.PackageDir {
		pkg, segs = segs[0], segs[1:]
	}

	last := segs[len(segs)-1]
	switch {
	case strings.HasSuffix(last, ".go"):
		segs = segs[:len(segs)-1]
	default:
		stem := strings.TrimSuffix(last, path.Ext(last))
		if indexStems[stem] {
			segs = segs[:len(segs)-1]
		} else {
			segs[len(segs)-1] = stem
		}
	}

	if len(segs) == 0 {
		if pkg != "" {
			return pkg
		}
		return RootModule
	}
	return strings.Join(segs, ".")
}

// DetectPackageDir returns the single top-level directory, below any source
// root, that every file lives in. It returns "" when files are spread over
// several directories or sit directly in the root.
func DetectPackageDir(paths []string, opts ModuleOptions) string {
	dir := ""
	for _, p := range paths {
		segs := strings.Split(path.Clean(p), "/")
		if len(segs) > 1 && containsString(opts.roots(), segs[0]) {
			segs = segs[1:]
		}
		if len(segs) < 2 {
			return ""
		}
		if dir == "" {
			dir = segs[0]
		} else if dir != segs[0] {
			return ""
		}
	}
	return dir
}

var testFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)(tests?|__tests__|testdata|spec)/`),
	regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
	regexp.MustCompile(`_test\.(py|go)$`),
	regexp.MustCompile(`\.(test|spec)\.[jt]sx?$`),
	regexp.MustCompile(`(^|/)conftest\.py$`),
}

// IsTestPath reports whether a file follows a test directory or test file
// naming convention.
func IsTestPath(p string) bool {
	for _, re := range testFilePatterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// --- Import lines ---

// ImportSpec is one module reference parsed from an import line. Names are
// the items imported from it (Python "from X import a, b"), tried as
// submodules before the module itself.
type ImportSpec struct {
	Path  string
	Names []string
}

var (
	quoted      = regexp.MustCompile("[\"`]([^\"`]+)[\"`]")
	tsFrom      = regexp.MustCompile(`(?:from|import|require\()\s*['"]([^'"]+)['"]`)
	pyFrom      = regexp.MustCompile(`(?s)^from\s+(\S+)\s+import\s+(.+)$`)
	pyImport    = regexp.MustCompile(`(?s)^import\s+(.+)$`)
	rustExtern  = regexp.MustCompile(`^extern\s+crate\s+(\w+)`)
	rustUse     = regexp.MustCompile(`(?s)^(?:pub(?:\([^)]*\))?\s+)?use\s+(.+?);?$`)
	spaceRunner = regexp.MustCompile(`\s+`)
)

// ParseImportLine extracts module references from one raw import statement.
// Lines that cannot be understood yield nothing.
func ParseImportLine(lang Language, line string) []ImportSpec {
	line = strings.TrimSpace(line)
	switch lang {
	case LangGo:
		var out []ImportSpec
		for _, m := range quoted.FindAllStringSubmatch(line, -1) {
			out = append(out, ImportSpec{Path: m[1]})
		}
		return out
	case LangTypeScript:
		if m := tsFrom.FindStringSubmatch(line); m != nil {
			return []ImportSpec{{Path: m[1]}}
		}
	case LangPython:
		return parsePythonImport(line)
	case LangRust:
		if m := rustExtern.FindStringSubmatch(line); m != nil {
			return []ImportSpec{{Path: m[1]}}
		}
		if m := rustUse.FindStringSubmatch(line); m != nil {
			p := m[1]
			if idx := strings.Index(p, " as "); idx >= 0 {
				p = p[:idx]
			}
			p = spaceRunner.ReplaceAllString(p, "")
			if idx := strings.Index(p, "{"); idx >= 0 {
				p = p[:idx]
			}
			p = strings.TrimSuffix(strings.TrimSuffix(strings.TrimPrefix(p, "::"), "*"), "::")
			if p != "" {
				return []ImportSpec{{Path: p}}
			}
		}
	}
	return nil
}

func parsePythonImport(line string) []ImportSpec {
	if m := pyFrom.FindStringSubmatch(line); m != nil {
		names := strings.NewReplacer("(", "", ")", "", "\\", "", "\n", " ").Replace(m[2])
		var items []string
		for _, part := range strings.Split(names, ",") {
			fields := strings.Fields(part)
			if len(fields) > 0 && fields[0] != "*" {
				items = append(items, fields[0])
			}
		}
		return []ImportSpec{{Path: m[1], Names: items}}
	}
	if m := pyImport.FindStringSubmatch(line); m != nil {
		var out []ImportSpec
		for _, part := range strings.Split(m[1], ",") {
			if fields := strings.Fields(part); len(fields) > 0 {
				out = append(out, ImportSpec{Path: fields[0]})
			}
		}
		return out
	}
	return nil
}

// candidates lists the specifiers to try for an import, most specific first.
func (s ImportSpec) candidates(lang Language) []string {
	if lang != LangPython || len(s.Names) == 0 {
		return []string{s.Path}
	}
	sep := "."
	if strings.Trim(s.Path, ".") == "" {
		sep = ""
	}
	out := make([]string, 0, len(s.Names)+1)
	for _, n := range s.Names {
		out = append(out, s.Path+sep+n)
	}
	return append(out, s.Path)
}

// ExternalName reduces an external import specifier to its top-level
// package name.
func ExternalName(lang Language, spec string) string {
	switch lang {
	case LangGo:
		parts := strings.Split(spec, "/")
		if strings.Contains(parts[0], ".") && len(parts) >= 3 {
			return strings.Join(parts[:3], "/")
		}
		return parts[0]
	case LangTypeScript:
		parts := strings.Split(spec, "/")
		if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return parts[0]
	case LangRust:
		head, _, _ := strings.Cut(spec, "::")
		return head
	default:
		head, _, _ := strings.Cut(spec, ".")
		return head
	}
}

// --- Dependency graph ---

// FileImports is the input for one file: its path, language and raw import
// lines.
type FileImports struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`
	Lines    []string `json:"lines"`
}

// DependencyGraph is the module-level import graph.
type DependencyGraph struct {
	Modules     []string            `json:"modules"`
	Internal    map[string][]string `json:"internal"`
	External    map[string][]string `json:"external"`
	FileModules map[string]string   `json:"fileModules"`
	PackageDir  string              `json:"packageDir,omitempty"`
}

// BuildDependencyGraph classifies every import line as internal or external.
// Internal imports are resolved to a known file with resolver, or matched
// against known module identifiers by namespace; everything else is external
// and recorded by top-level package name. Test files are skipped unless
// opts.IncludeTests is set. A nil resolver is built from the file list.
func BuildDependencyGraph(files []FileImports, opts ModuleOptions, resolver *Resolver) *DependencyGraph {
	var kept []FileImports
	for _, f := range files {
		if opts.IncludeTests || !IsTestPath(f.Path) {
			kept = append(kept, f)
		}
	}
	paths := make([]string, len(kept))
	for i, f := range kept {
		paths[i] = f.Path
	}
	if opts.PackageDir == "" {
		opts.PackageDir = DetectPackageDir(paths, opts)
	}
	if resolver == nil {
		resolver = NewResolver("", paths)
	}

	dg := &DependencyGraph{
		Internal:    make(map[string][]string),
		External:    make(map[string][]string),
		FileModules: make(map[string]string, len(kept)),
		PackageDir:  opts.PackageDir,
	}
	known := make(map[string]bool)
	for _, f := range kept {
		id := ModuleID(f.Path, opts)
		dg.FileModules[f.Path] = id
		known[id] = true
	}

	internal := make(map[string]map[string]bool)
	external := make(map[string]map[string]bool)
	for id := range known {
		internal[id] = make(map[string]bool)
		external[id] = make(map[string]bool)
	}

	for _, f := range kept {
		from := dg.FileModules[f.Path]
		for _, line := range f.Lines {
			for _, spec := range ParseImportLine(f.Language, line) {
				if target, ok := dg.classify(spec, f, resolver, known, opts); ok {
					if target != from {
						internal[from][target] = true
					}
				} else if !isRelativeSpec(f.Language, spec.Path) {
					external[from][ExternalName(f.Language, spec.Path)] = true
				}
			}
		}
	}

	for id := range known {
		dg.Modules = append(dg.Modules, id)
		dg.Internal[id] = sortedKeys(internal[id])
		if ext := sortedKeys(external[id]); len(ext) > 0 {
			dg.External[id] = ext
		}
	}
	sort.Strings(dg.Modules)
	return dg
}

// classify returns the internal module an import refers to, if any.
func (dg *DependencyGraph) classify(spec ImportSpec, f FileImports, r *Resolver, known map[string]bool, opts ModuleOptions) (string, bool) {
	for _, cand := range spec.candidates(f.Language) {
		if file, ok := r.Resolve(cand, f.Path, f.Language); ok {
			if id, ok := dg.FileModules[file]; ok {
				return id, true
			}
		}
	}
	for _, cand := range spec.candidates(f.Language) {
		if id, ok := matchNamespace(namespaceOf(f.Language, cand, r.GoModule(), opts), known, opts.PackageDir); ok {
			return id, true
		}
	}
	return "", false
}

// namespaceOf converts a specifier into dotted form for namespace matching.
// Relative specifiers have no namespace form.
func namespaceOf(lang Language, spec, goModule string, opts ModuleOptions) string {
	switch lang {
	case LangGo:
		if goModule == "" || !strings.HasPrefix(spec, goModule+"/") {
			return ""
		}
		rest := strings.TrimPrefix(spec, goModule+"/")
		return ModuleID(rest+"/x.go", opts)
	case LangRust:
		head, rest, ok := strings.Cut(spec, "::")
		if !ok || head != "crate" {
			return ""
		}
		return strings.ReplaceAll(rest, "::", ".")
	case LangPython:
		if strings.HasPrefix(spec, ".") {
			return ""
		}
		return spec
	}
	return ""
}

// matchNamespace finds the longest known module that prefixes ns, trying the
// name with the package directory stripped first.
func matchNamespace(ns string, known map[string]bool, pkgDir string) (string, bool) {
	if ns == "" {
		return "", false
	}
	var tries []string
	if pkgDir != "" {
		if ns == pkgDir {
			tries = append(tries, pkgDir)
		} else if rest, ok := strings.CutPrefix(ns, pkgDir+"."); ok {
			tries = append(tries, rest)
		}
	}
	tries = append(tries, ns)
	for _, t := range tries {
		parts := strings.Split(t, ".")
		for n := len(parts); n > 0; n-- {
			if id := strings.Join(parts[:n], "."); known[id] {
				return id, true
			}
		}
	}
	return "", false
}

func isRelativeSpec(lang Language, spec string) bool {
	switch lang {
	case LangPython:
		return strings.HasPrefix(spec, ".")
	case LangTypeScript:
		return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".."
	case LangRust:
		return strings.HasPrefix(spec, "crate::") || strings.HasPrefix(spec, "self::") || strings.HasPrefix(spec, "super::") ||
			spec == "crate" || spec == "self" || spec == "super"
	}
	return false
}

// ExternalFrequency counts how many modules import each external package.
func (dg *DependencyGraph) ExternalFrequency() map[string]int {
	freq := make(map[string]int)
	for _, pkgs := range dg.External {
		for _, p := range pkgs {
			freq[p]++
		}
	}
	return freq
}

// TopExternal returns up to n external packages ranked by import frequency,
// ties broken by name. n <= 0 returns all of them.
func (dg *DependencyGraph) TopExternal(n int) []string {
	freq := dg.ExternalFrequency()
	names := sortedKeys(boolSet(freq))
	sort.SliceStable(names, func(i, j int) bool { return freq[names[i]] > freq[names[j]] })
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

// Edges returns every internal dependency edge in sorted order.
func (dg *DependencyGraph) Edges() []ModuleEdge {
	var out []ModuleEdge
	for _, from := range dg.Modules {
		for _, to := range dg.Internal[from] {
			out = append(out, ModuleEdge{From: from, To: to})
		}
	}
	return out
}

// --- Cycles ---

// ModuleEdge is one directed module dependency.
type ModuleEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EdgeSet is a set of module edges.
type EdgeSet map[ModuleEdge]bool

// Sorted returns the edges ordered by From, then To.
func (s EdgeSet) Sorted() []ModuleEdge {
	out := make([]ModuleEdge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// DetectCycles runs a depth-first traversal from every module, keeping the
// current path on a stack. Reaching a module already on the stack closes a
// loop and every edge of that loop is marked circular; the traversal then
// carries on. Each traversal owns its visited set.
func DetectCycles(deps map[string][]string) EdgeSet {
	circular := make(EdgeSet)
	for _, start := range sortedKeys(boolSetFromSlices(deps)) {
		t := &cycleWalk{deps: deps, circular: circular, visited: make(map[string]bool), onStack: make(map[string]int)}
		t.visit(start)
	}
	return circular
}

type cycleWalk struct {
	deps     map[string][]string
	circular EdgeSet
	visited  map[string]bool
	onStack  map[string]int
	stack    []string
}

func (t *cycleWalk) visit(n string) {
	t.visited[n] = true
	t.onStack[n] = len(t.stack)
	t.stack = append(t.stack, n)

	next := append([]string(nil), t.deps[n]...)
	sort.Strings(next)
	for _, m := range next {
		if idx, ok := t.onStack[m]; ok {
			for i := idx; i < len(t.stack)-1; i++ {
				t.circular[ModuleEdge{From: t.stack[i], To: t.stack[i+1]}] = true
			}
			t.circular[ModuleEdge{From: n, To: m}] = true
			continue
		}
		if !t.visited[m] {
			t.visit(m)
		}
	}

	t.stack = t.stack[:len(t.stack)-1]
	delete(t.onStack, n)
}

// --- helpers ---

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func boolSet(m map[string]int) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func boolSetFromSlices(m map[string][]string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, vs := range m {
		out[k] = true
		for _, v := range vs {
			out[v] = true
		}
	}
	return out
}
