package graph

import (
	"bufio"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps raw import specifiers to repo-relative file paths. It is
// built once per analysis with the known file set and whatever workspace
// metadata (package.json workspaces, go.mod) sits at the repository root.
type Resolver struct {
	repoRoot     string
	fileSet      map[string]bool
	dirIndex     map[string][]string
	tsWorkspaces map[string]*tsWorkspace
	goModPath    string
}

// tsWorkspace is one npm/bun workspace package.
type tsWorkspace struct {
	dir            string            // "packages/db"
	mainFile       string            // default export target
	subpathExports map[string]string // "./queries" -> "packages/db/src/queries.ts"
}

// NewResolver indexes knownFiles (repo-relative, slash separated) and reads
// workspace metadata below repoRoot. An empty repoRoot skips the metadata
// scan.
func NewResolver(repoRoot string, knownFiles []string) *Resolver {
	r := &Resolver{
		repoRoot:     repoRoot,
		fileSet:      make(map[string]bool, len(knownFiles)),
		dirIndex:     make(map[string][]string),
		tsWorkspaces: make(map[string]*tsWorkspace),
	}
	for _, f := range knownFiles {
		r.fileSet[f] = true
		dir := path.Dir(f)
		r.dirIndex[dir] = append(r.dirIndex[dir], f)
	}
	for _, files := range r.dirIndex {
		sort.Strings(files)
	}
	if repoRoot != "" {
		r.scanTSWorkspaces()
		r.scanGoMod()
	}
	return r
}

// SetGoModule overrides the Go module path read from go.mod.
func (r *Resolver) SetGoModule(modPath string) {
	r.goModPath = modPath
}

// GoModule returns the Go module path, if any.
func (r *Resolver) GoModule() string {
	return r.goModPath
}

// Resolve maps an import specifier found in sourceFile to a known file.
// ok is false for external packages and unresolvable specifiers.
func (r *Resolver) Resolve(spec, sourceFile string, lang Language) (string, bool) {
	if r == nil || spec == "" {
		return "", false
	}
	switch lang {
	case LangTypeScript:
		return r.resolveTS(spec, sourceFile)
	case LangGo:
		return r.resolveGo(spec)
	case LangPython:
		return r.resolvePython(spec, sourceFile)
	case LangRust:
		return r.resolveRust(spec, sourceFile)
	}
	return "", false
}

// --- TypeScript ---

var tsExtensions = []string{".ts", ".tsx", ".js", ".jsx", "/index.ts", "/index.tsx", "/index.js"}

func (r *Resolver) resolveTS(spec, sourceFile string) (string, bool) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		return r.probe(path.Join(path.Dir(sourceFile), spec), tsExtensions)
	}
	return r.resolveTSWorkspace(spec)
}

func (r *Resolver) resolveTSWorkspace(spec string) (string, bool) {
	if ws, ok := r.tsWorkspaces[spec]; ok {
		return ws.mainFile, ws.mainFile != ""
	}

	pkgName, sub, ok := splitPackageSpec(spec)
	if !ok {
		return "", false
	}
	ws, ok := r.tsWorkspaces[pkgName]
	if !ok {
		return "", false
	}
	if target, ok := ws.subpathExports["./"+sub]; ok {
		return target, true
	}
	return r.probe(path.Join(ws.dir, sub), tsExtensions)
}

// splitPackageSpec splits "@scope/pkg/sub/x" into ("@scope/pkg", "sub/x")
// and "pkg/sub" into ("pkg", "sub"). ok is false when there is no subpath.
func splitPackageSpec(spec string) (pkg, sub string, ok bool) {
	parts := strings.Split(spec, "/")
	n := 1
	if strings.HasPrefix(spec, "@") {
		n = 2
	}
	if len(parts) <= n {
		return "", "", false
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/"), true
}

// --- Go ---

func (r *Resolver) resolveGo(spec string) (string, bool) {
	if r.goModPath == "" || (spec != r.goModPath && !strings.HasPrefix(spec, r.goModPath+"/")) {
		return "", false
	}
	dir := strings.TrimPrefix(strings.TrimPrefix(spec, r.goModPath), "/")
	if dir == "" {
		dir = "."
	}
	for _, f := range r.dirIndex[dir] {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

// --- Python ---

// resolvePython handles relative imports only; absolute imports are matched
// against module identifiers by the dependency builder.
func (r *Resolver) resolvePython(spec, sourceFile string) (string, bool) {
	if !strings.HasPrefix(spec, ".") {
		return "", false
	}
	rest := strings.TrimLeft(spec, ".")
	dots := len(spec) - len(rest)

	// One dot is the current package, each extra dot climbs one level.
	dir := path.Dir(sourceFile)
	for i := 1; i < dots; i++ {
		dir = path.Dir(dir)
	}
	if rest == "" {
		return r.probe(path.Join(dir, "__init__"), []string{".py"})
	}
	return r.probe(path.Join(dir, strings.ReplaceAll(rest, ".", "/")), []string{".py", "/__init__.py"})
}

// --- Rust ---

var rustExtensions = []string{".rs", "/mod.rs"}

func (r *Resolver) resolveRust(spec, sourceFile string) (string, bool) {
	spec = strings.TrimSuffix(strings.TrimSpace(spec), ";")
	if idx := strings.Index(spec, "::{"); idx >= 0 {
		spec = spec[:idx]
	}
	head, rest, _ := strings.Cut(spec, "::")

	var bases []string
	switch head {
	case "crate":
		bases = []string{"src", "."}
		if root := crateRoot(sourceFile); root != "" {
			bases = append([]string{root}, bases...)
		}
	case "self":
		bases = []string{path.Dir(sourceFile)}
	case "super":
		bases = []string{path.Dir(path.Dir(sourceFile))}
	default:
		return "", false
	}

	// "crate::model::User" names an item inside model.rs, so drop trailing
	// segments until a module file matches.
	segments := strings.Split(rest, "::")
	for n := len(segments); n > 0; n-- {
		rel := strings.Join(segments[:n], "/")
		for _, base := range bases {
			if f, ok := r.probe(path.Join(base, rel), rustExtensions); ok {
				return f, true
			}
		}
	}
	return "", false
}

// crateRoot returns the nearest enclosing "src" directory of a file.
func crateRoot(file string) string {
	for dir := path.Dir(file); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if path.Base(dir) == "src" {
			return dir
		}
	}
	return ""
}

// probe returns base or the first base+extension present in the file set.
func (r *Resolver) probe(base string, extensions []string) (string, bool) {
	if r.fileSet[base] {
		return base, true
	}
	for _, ext := range extensions {
		if r.fileSet[base+ext] {
			return base + ext, true
		}
	}
	return "", false
}

// --- Workspace metadata ---

type packageJSON struct {
	Name       string          `json:"name"`
	Main       string          `json:"main"`
	Workspaces json.RawMessage `json:"workspaces"`
	Exports    json.RawMessage `json:"exports"`
}

func readPackageJSON(file string) (packageJSON, bool) {
	var pkg packageJSON
	data, err := os.ReadFile(file)
	if err != nil || json.Unmarshal(data, &pkg) != nil {
		return pkg, false
	}
	return pkg, true
}

func (r *Resolver) scanTSWorkspaces() {
	root, ok := readPackageJSON(filepath.Join(r.repoRoot, "package.json"))
	if !ok {
		return
	}
	for _, pattern := range workspaceGlobs(root.Workspaces) {
		matches, err := filepath.Glob(filepath.Join(r.repoRoot, pattern))
		if err != nil {
			continue
		}
		for _, dir := range matches {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				r.addWorkspace(dir)
			}
		}
	}
}

// workspaceGlobs accepts both ["packages/*"] and {"packages": ["packages/*"]}.
func workspaceGlobs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Packages
	}
	return nil
}

func (r *Resolver) addWorkspace(absDir string) {
	pkg, ok := readPackageJSON(filepath.Join(absDir, "package.json"))
	if !ok || pkg.Name == "" {
		return
	}
	rel, err := filepath.Rel(r.repoRoot, absDir)
	if err != nil {
		return
	}
	ws := &tsWorkspace{dir: filepath.ToSlash(rel), subpathExports: make(map[string]string)}
	r.readExports(ws, pkg.Exports)

	candidates := []string{}
	if pkg.Main != "" {
		candidates = append(candidates, path.Join(ws.dir, pkg.Main))
	}
	candidates = append(candidates, path.Join(ws.dir, "src", "index"), path.Join(ws.dir, "index"))
	for _, c := range candidates {
		if ws.mainFile != "" {
			break
		}
		if f, ok := r.probe(c, tsExtensions); ok {
			ws.mainFile = f
		}
	}
	r.tsWorkspaces[pkg.Name] = ws
}

// readExports understands a bare string export and the {".": ..., "./sub": ...}
// map form, where each value may be a conditional object.
func (r *Resolver) readExports(ws *tsWorkspace, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		if f, ok := r.probe(path.Join(ws.dir, single), tsExtensions); ok {
			ws.mainFile = f
		}
		return
	}
	var entries map[string]json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return
	}
	for key, val := range entries {
		target := exportTarget(val)
		if target == "" {
			continue
		}
		f, ok := r.probe(path.Join(ws.dir, target), tsExtensions)
		if !ok {
			continue
		}
		if key == "." {
			ws.mainFile = f
		} else {
			ws.subpathExports[key] = f
		}
	}
}

// exportTarget prefers the "import", then "default", then "require"
// condition of a conditional export.
func exportTarget(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var cond map[string]json.RawMessage
	if json.Unmarshal(raw, &cond) != nil {
		return ""
	}
	for _, key := range []string{"import", "default", "require"} {
		if v, ok := cond[key]; ok {
			return exportTarget(v)
		}
	}
	return ""
}

func (r *Resolver) scanGoMod() {
	f, err := os.Open(filepath.Join(r.repoRoot, "go.mod"))
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mod, ok := strings.CutPrefix(line, "module "); ok {
			r.goModPath = strings.Trim(strings.TrimSpace(mod), `"`)
			return
		}
	}
}
