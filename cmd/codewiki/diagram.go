package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/config"
	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/orchestrator"
)

var diagramKinds = []string{"calls", "sequence", "classes", "tree", "deps"}

func diagramCmd() *cobra.Command {
	var (
		kind     string
		entry    string
		maxNodes int
		fromDB   string
	)

	cmd := &cobra.Command{
		Use:   "diagram [repo]",
		Short: "Print a Mermaid diagram of a repository",
		Long: `Analyze a repository and print one Mermaid diagram:
  calls     caller-to-callee graph
  sequence  call sequence from --entry (default: the busiest caller)
  classes   inheritance hierarchy
  tree      inheritance hierarchy as indented text
  deps      module dependencies with cycles highlighted

With --from-db the module clusters and imports are read from a Kuzu graph
written by 'analyze --graph-db' instead of analyzing the repository again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromDB != "" {
				return diagramFromDB(cmd, fromDB)
			}
			a, pc, err := analyzeRepo(cmd.Context(), repoArg(args), nil, nil)
			if err != nil {
				return err
			}
			if maxNodes > 0 {
				pc.Diagrams.MaxNodes = maxNodes
			}
			out, err := renderDiagram(kind, entry, a, pc)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("nothing to draw for %s", kind)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "deps", "diagram kind: calls, sequence, classes, tree, deps")
	cmd.Flags().StringVar(&entry, "entry", "", "entry function for the sequence diagram")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "maximum nodes in the call diagram")
	cmd.Flags().StringVar(&fromDB, "from-db", "", "render the dependency diagram from a Kuzu graph at this path")
	return cmd
}

func renderDiagram(kind, entry string, a *orchestrator.Analysis, pc *config.ProjectConfig) (string, error) {
	switch kind {
	case "calls":
		return export.CallGraphDiagram(a.CallGraph, pc.Diagrams.MaxNodes), nil
	case "sequence":
		if entry == "" {
			entry = a.CallGraph.EntryPoint()
		}
		return export.SequenceDiagram(a.CallGraph.SequenceFrom(entry, pc.Diagrams.SequenceDepth)), nil
	case "classes":
		return export.InheritanceDiagram(a.Classes), nil
	case "tree":
		return a.Classes.InheritanceTree(), nil
	case "deps":
		return export.DependencyDiagram(a.Dependencies, a.Cycles, export.DependencyOptions{MaxExternal: pc.Diagrams.MaxExternal}), nil
	default:
		return "", fmt.Errorf("unknown diagram kind %q (want one of %v)", kind, diagramKinds)
	}
}

func diagramFromDB(cmd *cobra.Command, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no graph found at %s\nRun 'codewiki analyze --graph-db %s' first", path, path)
	}
	store, err := openGraphDB(path)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()

	mermaid, err := export.GenerateMermaid(cmd.Context(), store)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), mermaid)
	return nil
}
