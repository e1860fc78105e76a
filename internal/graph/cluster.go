package graph

import (
	"context"
	"sort"
	"strings"
)

// Namespace returns the top-level namespace segment of a module ID.
func Namespace(module string) string {
	head, _, _ := strings.Cut(module, ".")
	return head
}

// NamespaceClusters groups the modules of dg by top-level namespace segment.
// Each cluster's cohesion is internal_edges / (internal_edges +
// boundary_edges), where boundary edges connect a member to a module of
// another cluster. Clusters are sorted by name, members by module ID.
func NamespaceClusters(dg *DependencyGraph) []ClusterNode {
	members := make(map[string][]string)
	for _, m := range dg.Modules {
		ns := Namespace(m)
		members[ns] = append(members[ns], m)
	}

	internal := make(map[string]int)
	boundary := make(map[string]int)
	for _, e := range dg.Edges() {
		from, to := Namespace(e.From), Namespace(e.To)
		if from == to {
			internal[from]++
			continue
		}
		boundary[from]++
		boundary[to]++
	}

	names := make([]string, 0, len(members))
	for ns := range members {
		names = append(names, ns)
	}
	sort.Strings(names)

	clusters := make([]ClusterNode, 0, len(names))
	for _, ns := range names {
		cohesion := 0.0
		if total := internal[ns] + boundary[ns]; total > 0 {
			cohesion = float64(internal[ns]) / float64(total)
		}
		clusters = append(clusters, ClusterNode{
			Name:          ns,
			CohesionScore: cohesion,
			Members:       members[ns],
		})
	}
	return clusters
}

// ComputeClusters derives namespace clusters from dg and stores each one
// with a BELONGS edge from every member module.
func ComputeClusters(ctx context.Context, store Store, dg *DependencyGraph) ([]ClusterNode, error) {
	clusters := NamespaceClusters(dg)
	for _, c := range clusters {
		if err := store.AddCluster(ctx, c); err != nil {
			return nil, err
		}
		for _, member := range c.Members {
			edge := Edge{SourceID: member, TargetID: c.Name, Kind: EdgeKindBelongs}
			if err := store.AddEdge(ctx, edge); err != nil {
				return nil, err
			}
		}
	}
	return clusters, nil
}
