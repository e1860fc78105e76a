package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/codewiki/internal/graph"
)

// nodeIDs maps arbitrary names to Mermaid-safe identifiers (N0, N1, ...)
// in order of first use.
type nodeIDs struct {
	prefix string
	ids    map[string]string
	order  []string
}

func newNodeIDs(prefix string) *nodeIDs {
	return &nodeIDs{prefix: prefix, ids: make(map[string]string)}
}

func (n *nodeIDs) get(name string) string {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := fmt.Sprintf("%s%d", n.prefix, len(n.order))
	n.ids[name] = id
	n.order = append(n.order, name)
	return id
}

// label escapes text for a quoted Mermaid label.
func label(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "\n", " ").Replace(s)
}

// --- Call graph ---

// CallGraphDiagram renders cg as a Mermaid graph TD. Nodes are ranked by
// total degree, ties by first appearance, and only the top maxNodes are kept
// (maxNodes <= 0 keeps all). Returns "" when the graph has no edges.
func CallGraphDiagram(cg graph.CallGraph, maxNodes int) string {
	if cg.EdgeCount() == 0 {
		return ""
	}

	var seen []string
	degree := make(map[string]int)
	touch := func(name string) {
		if _, ok := degree[name]; !ok {
			seen = append(seen, name)
			degree[name] = 0
		}
	}
	for _, caller := range cg.Callers() {
		touch(caller)
		for _, callee := range cg[caller] {
			touch(callee)
			degree[caller]++
			degree[callee]++
		}
	}

	ranked := append([]string(nil), seen...)
	sort.SliceStable(ranked, func(i, j int) bool { return degree[ranked[i]] > degree[ranked[j]] })
	if maxNodes > 0 && len(ranked) > maxNodes {
		ranked = ranked[:maxNodes]
	}
	kept := make(map[string]bool, len(ranked))
	for _, n := range ranked {
		kept[n] = true
	}

	ids := newNodeIDs("N")
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, n := range seen {
		if kept[n] {
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", ids.get(n), label(n))
		}
	}
	for _, caller := range cg.Callers() {
		if !kept[caller] {
			continue
		}
		for _, callee := range cg[caller] {
			if kept[callee] {
				fmt.Fprintf(&sb, "  %s --> %s\n", ids.get(caller), ids.get(callee))
			}
		}
	}
	return sb.String()
}

// SequenceDiagram renders events as a Mermaid sequenceDiagram. Participants
// are declared in order of first appearance. Returns "" for no events.
func SequenceDiagram(events []graph.SequenceEvent) string {
	if len(events) == 0 {
		return ""
	}
	ids := newNodeIDs("P")
	for _, e := range events {
		ids.get(e.From)
		ids.get(e.To)
	}

	var sb strings.Builder
	sb.WriteString("sequenceDiagram\n")
	for _, name := range ids.order {
		fmt.Fprintf(&sb, "  participant %s as %s\n", ids.get(name), label(name))
	}
	for _, e := range events {
		if e.Return {
			fmt.Fprintf(&sb, "  %s-->>%s: return\n", ids.get(e.From), ids.get(e.To))
			continue
		}
		fmt.Fprintf(&sb, "  %s->>%s: %s()\n", ids.get(e.From), ids.get(e.To), label(lastSegment(e.To)))
	}
	return sb.String()
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// --- Inheritance ---

// InheritanceDiagram renders classes as a Mermaid classDiagram with an
// inheritance arrow for every parent that resolves to a known class.
// Abstract classes carry the <<abstract>> annotation. Returns "" when there
// are no classes.
func InheritanceDiagram(classes graph.ClassMap) string {
	names := classes.Names()
	if len(names) == 0 {
		return ""
	}
	ids := newNodeIDs("C")
	var sb strings.Builder
	sb.WriteString("classDiagram\n")
	for _, name := range names {
		id := ids.get(name)
		fmt.Fprintf(&sb, "  class %s[\"%s\"]\n", id, label(name))
		if classes[name].IsAbstract {
			fmt.Fprintf(&sb, "  <<abstract>> %s\n", id)
		}
	}
	for _, name := range names {
		for _, parent := range classes.ResolvedParents(name) {
			fmt.Fprintf(&sb, "  %s <|-- %s\n", ids.get(parent), ids.get(name))
		}
	}
	return sb.String()
}

// --- Dependencies ---

// DependencyOptions tunes DependencyDiagram.
type DependencyOptions struct {
	// MaxExternal is the number of most-imported external packages shown in
	// a dashed External cluster. Zero hides them.
	MaxExternal int
}

const cycleLinkStyle = "stroke:#d33,stroke-width:2px"

// DependencyDiagram renders dg as a Mermaid graph LR with one subgraph per
// namespace cluster. Edges in cycles are drawn dashed with a "cycle" label
// and styled red. Returns "" when dg has no modules.
func DependencyDiagram(dg *graph.DependencyGraph, cycles graph.EdgeSet, opts DependencyOptions) string {
	if dg == nil || len(dg.Modules) == 0 {
		return ""
	}
	ids := newNodeIDs("N")
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, c := range graph.NamespaceClusters(dg) {
		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", ids.get(c.Name+"/cluster"), label(c.Name))
		for _, m := range c.Members {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids.get(m), label(m))
		}
		sb.WriteString("  end\n")
	}

	var external []string
	if opts.MaxExternal > 0 {
		external = dg.TopExternal(opts.MaxExternal)
	}
	if len(external) > 0 {
		extID := ids.get("/external")
		fmt.Fprintf(&sb, "  subgraph %s[\"External\"]\n", extID)
		for _, p := range external {
			fmt.Fprintf(&sb, "    %s([\"%s\"])\n", ids.get("ext:"+p), label(p))
		}
		sb.WriteString("  end\n")
		fmt.Fprintf(&sb, "  style %s stroke-dasharray: 5 5\n", extID)
	}

	link := 0
	var cyclic []string
	for _, e := range dg.Edges() {
		if cycles[e] {
			fmt.Fprintf(&sb, "  %s -.->|cycle| %s\n", ids.get(e.From), ids.get(e.To))
			cyclic = append(cyclic, fmt.Sprint(link))
		} else {
			fmt.Fprintf(&sb, "  %s --> %s\n", ids.get(e.From), ids.get(e.To))
		}
		link++
	}

	shown := make(map[string]bool, len(external))
	for _, p := range external {
		shown[p] = true
	}
	for _, m := range dg.Modules {
		for _, p := range dg.External[m] {
			if shown[p] {
				fmt.Fprintf(&sb, "  %s -.-> %s\n", ids.get(m), ids.get("ext:"+p))
			}
		}
	}

	if len(cyclic) > 0 {
		fmt.Fprintf(&sb, "  linkStyle %s %s\n", strings.Join(cyclic, ","), cycleLinkStyle)
	}
	return sb.String()
}

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Modules are grouped by their stored cluster; IMPORTS edges become arrows.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return "", fmt.Errorf("get clusters: %w", err)
	}
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	ids := newNodeIDs("N")
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Name < clusters[j].Name })
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		members := append([]string(nil), c.Members...)
		sort.Strings(members)
		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", ids.get(c.Name+"/cluster"), label(c.Name))
		for _, m := range members {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids.get(m), label(m))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		if e.Kind != graph.EdgeKindImports {
			continue
		}
		fmt.Fprintf(&sb, "  %s --> %s\n", ids.get(e.SourceID), ids.get(e.TargetID))
	}
	return sb.String(), nil
}
