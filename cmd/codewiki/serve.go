package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/mcptools"
)

func serveMCPCmd() *cobra.Command {
	var (
		addr    string
		graphDB string
	)

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the codewiki tools over the Model Context Protocol",
		Long: `Run an MCP server exposing analyze_repo, query_chunks, get_call_graph,
get_dependency_graph, crosslink_page and check_page. The server speaks stdio
unless --addr is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var newStore func() (graph.Store, error)
			if graphDB != "" {
				newStore = func() (graph.Store, error) { return openGraphDB(graphDB) }
			}

			parser := graph.NewTreeSitterParser()
			defer parser.Close()
			svc := mcptools.NewCodeIntelService(parser, newStore)
			svc.SetLogger(slog.Default())
			defer svc.Close()

			if addr != "" {
				slog.Info("serving MCP over HTTP", "addr", addr)
				return mcptools.RunMCPServer(cmd.Context(), svc, addr)
			}
			return mcptools.RunMCPServerStdio(cmd.Context(), svc)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen on this HTTP address instead of stdio")
	cmd.Flags().StringVar(&graphDB, "graph-db", "", "keep the graph in a Kuzu database at this path")
	return cmd
}
