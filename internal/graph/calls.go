package graph

import (
	"sort"
)

// DefaultCallDenylist names calls that add noise to call graphs: printing,
// superclass constructors, trivial container operations and common
// built-ins of the supported languages.
var DefaultCallDenylist = []string{
	// printing and logging
	"print", "println", "printf", "eprintln", "format", "write", "writeln",
	"Println", "Printf", "Sprintf", "Errorf", "Fprintf",
	// superclass construction
	"super", "__init__", "constructor",
	// containers and conversions
	"len", "append", "make", "cap", "copy", "delete",
	"str", "int", "float", "bool", "list", "dict", "set", "tuple",
	"range", "enumerate", "zip", "map", "filter", "sorted", "reversed",
	"isinstance", "issubclass", "hasattr", "getattr", "setattr", "type", "repr",
	"push", "pop", "keys", "values", "items", "join", "split",
	"to_string", "clone", "unwrap", "expect", "into", "iter", "collect",
	"vec", "panic", "assert", "assert_eq",
	"String", "Number", "Boolean", "Array", "Object", "Promise",
}

// CallFilter removes denylisted callee names.
type CallFilter struct {
	deny map[string]bool
}

// NewCallFilter builds a filter from the given denylist. A nil list means
// DefaultCallDenylist; extra names are added on top.
func NewCallFilter(denylist []string, extra ...string) *CallFilter {
	if denylist == nil {
		denylist = DefaultCallDenylist
	}
	f := &CallFilter{deny: make(map[string]bool, len(denylist)+len(extra))}
	for _, n := range denylist {
		f.deny[n] = true
	}
	for _, n := range extra {
		f.deny[n] = true
	}
	return f
}

// Allowed reports whether name survives the denylist.
func (f *CallFilter) Allowed(name string) bool {
	return f == nil || !f.deny[name]
}

// Callees returns the chunk's ordered callee list minus denylisted names.
func (f *CallFilter) Callees(c Chunk) []string {
	var out []string
	for _, name := range c.Metadata.Calls {
		if f.Allowed(name) {
			out = append(out, name)
		}
	}
	return out
}

// CallGraph maps a qualified caller name to its callees in call order.
type CallGraph map[string][]string

// BuildCallGraph aggregates the filtered callees of every function and method
// chunk. Methods are keyed as "Class.method". Callers without surviving
// callees are left out. When two chunks share a qualified name their callee
// lists are merged in order.
func BuildCallGraph(chunks []Chunk, filter *CallFilter) CallGraph {
	cg := make(CallGraph)
	for _, c := range chunks {
		if c.Kind != ChunkKindFunction && c.Kind != ChunkKindMethod {
			continue
		}
		callees := filter.Callees(c)
		if len(callees) == 0 {
			continue
		}
		key := c.QualifiedName()
		existing := cg[key]
		for _, name := range callees {
			if !containsString(existing, name) {
				existing = append(existing, name)
			}
		}
		cg[key] = existing
	}
	return cg
}

// Callers returns the caller names in sorted order.
func (cg CallGraph) Callers() []string {
	out := make([]string, 0, len(cg))
	for k := range cg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EdgeCount returns the number of caller→callee pairs.
func (cg CallGraph) EdgeCount() int {
	n := 0
	for _, callees := range cg {
		n += len(callees)
	}
	return n
}

// Merge adds every edge of other into cg.
func (cg CallGraph) Merge(other CallGraph) {
	for _, caller := range other.Callers() {
		for _, callee := range other[caller] {
			if !containsString(cg[caller], callee) {
				cg[caller] = append(cg[caller], callee)
			}
		}
	}
}

// EntryPoint picks the caller with the highest out-degree, ties broken by
// name.
func (cg CallGraph) EntryPoint() string {
	best, bestDeg := "", -1
	for _, caller := range cg.Callers() {
		if d := len(cg[caller]); d > bestDeg {
			best, bestDeg = caller, d
		}
	}
	return best
}

// SequenceEvent is one arrow of a sequence view.
type SequenceEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Return bool   `json:"return"`
}

// SequenceFrom walks the call graph pre-order from entry, emitting a call
// event and a matching return event for each edge. Depth is bounded by
// maxDepth and each edge is followed at most once, so cycles terminate. An
// empty entry selects EntryPoint. Callees are matched to callers by their
// qualified name or, failing that, by their bare method name; a matched
// callee appears under its qualified name.
func (cg CallGraph) SequenceFrom(entry string, maxDepth int) []SequenceEvent {
	if entry == "" {
		entry = cg.EntryPoint()
	}
	if entry == "" || maxDepth <= 0 {
		return nil
	}
	byShort := cg.shortNames()
	visited := make(map[[2]string]bool)
	var events []SequenceEvent
	var walk func(caller string, depth int)
	walk = func(caller string, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, callee := range cg[caller] {
			edge := [2]string{caller, callee}
			if visited[edge] {
				continue
			}
			visited[edge] = true
			target := callee
			if _, ok := cg[target]; !ok {
				if q, ok := byShort[callee]; ok {
					target = q
				}
			}
			events = append(events, SequenceEvent{From: caller, To: target})
			if _, ok := cg[target]; ok {
				walk(target, depth+1)
			}
			events = append(events, SequenceEvent{From: target, To: caller, Return: true})
		}
	}
	walk(entry, 0)
	return events
}

// shortNames maps a bare method name to its qualified caller key when the
// bare name is unique.
func (cg CallGraph) shortNames() map[string]string {
	out := make(map[string]string)
	ambiguous := make(map[string]bool)
	for _, caller := range cg.Callers() {
		short := caller
		for i := len(caller) - 1; i >= 0; i-- {
			if caller[i] == '.' {
				short = caller[i+1:]
				break
			}
		}
		if short == caller {
			continue
		}
		if _, seen := out[short]; seen {
			ambiguous[short] = true
		}
		out[short] = caller
	}
	for s := range ambiguous {
		delete(out, s)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
