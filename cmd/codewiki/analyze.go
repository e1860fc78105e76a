package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/export"
	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/orchestrator"
)

func analyzeCmd() *cobra.Command {
	var (
		jsonPath       string
		includeContent bool
		graphDB        string
		progress       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [repo]",
		Short: "Analyze a repository and print a summary",
		Long: `Parse every supported source file, build the documentation graphs and
print a summary. Use --json to export the full analysis and --graph-db to
persist the graph in an embedded Kuzu database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store graph.Store
			if graphDB != "" {
				s, err := openGraphDB(graphDB)
				if err != nil {
					return fmt.Errorf("open graph db: %w", err)
				}
				defer s.Close()
				store = s
			}

			var progressOut io.Writer
			if progress {
				progressOut = cmd.ErrOrStderr()
			}
			a, _, err := analyzeRepo(cmd.Context(), repoArg(args), store, progressOut)
			if err != nil {
				return err
			}
			e := a.Export(time.Now())
			summaryOut := cmd.OutOrStdout()
			if jsonPath == "-" {
				summaryOut = cmd.ErrOrStderr()
			}
			printSummary(summaryOut, a, e)

			switch jsonPath {
			case "":
				return nil
			case "-":
				return export.WriteJSON(cmd.OutOrStdout(), e, includeContent)
			default:
				return export.WriteJSONFile(jsonPath, e, includeContent)
			}
		},
	}

	cmd.Flags().StringVar(&jsonPath, "json", "", "write the analysis as JSON to this file (- for stdout)")
	cmd.Flags().BoolVar(&includeContent, "include-content", false, "keep chunk source text in the JSON export")
	cmd.Flags().StringVar(&graphDB, "graph-db", "", "persist the graph to a Kuzu database at this path")
	cmd.Flags().BoolVar(&progress, "progress", false, "print per-file progress to stderr")
	return cmd
}

func printSummary(w io.Writer, a *orchestrator.Analysis, e *export.AnalysisExport) {
	s := e.Summary
	fmt.Fprintf(w, "Repository: %s\n", a.Root)
	for _, l := range a.Languages {
		fmt.Fprintf(w, "  %-12s %d files\n", l.Language, l.Files)
	}
	fmt.Fprintf(w, "Chunks:     %d (%d classes, %d functions, %d methods)\n", s.Chunks, s.Classes, s.Functions, s.Methods)
	fmt.Fprintf(w, "Call edges: %d\n", s.CallEdges)
	fmt.Fprintf(w, "Modules:    %d (%d cyclic edges)\n", s.Modules, s.Cycles)
	fmt.Fprintf(w, "Pages:      %d\n", len(a.Pages))
	if s.Failed > 0 {
		fmt.Fprintf(w, "Failed:     %d\n", s.Failed)
		for _, fe := range e.Errors {
			fmt.Fprintf(w, "  %s: %s\n", fe.Path, fe.Error)
		}
	}
}
