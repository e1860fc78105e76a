package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeIntelMCPServer creates an MCP server with every codewiki tool registered.
func NewCodeIntelMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codewiki",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_repo",
		Description: "Analyze a repository: parse source files with tree-sitter, extract classes, functions and methods, build the call, dependency and inheritance graphs, and register every entity under its wiki page. Must run before the other tools.",
	}, svc.AnalyzeRepo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_chunks",
		Description: "Search extracted chunks (classes, functions, methods, imports) by name substring. Returns each chunk with its wiki page and signature.",
	}, svc.QueryChunks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_call_graph",
		Description: "Return the caller-to-callee graph with a Mermaid diagram and a bounded sequence view from an entry function.",
	}, svc.GetCallGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependency_graph",
		Description: "Return the module import graph with circular dependencies, namespace clusters, a Mermaid diagram, and optionally the dependency chains of one module.",
	}, svc.GetDependencyGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crosslink_page",
		Description: "Rewrite a markdown wiki page so mentions of known classes, functions and methods link to the pages documenting them. Code blocks are left untouched.",
	}, svc.CrosslinkPage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_page",
		Description: "Report whether a wiki page must be regenerated because its sources changed, and whether it is stale according to version-control history.",
	}, svc.CheckPage)

	return server
}

// RunMCPServer starts an HTTP server exposing the codewiki MCP tools.
func RunMCPServer(ctx context.Context, svc *CodeIntelService, addr string) error {
	server := NewCodeIntelMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *CodeIntelService) error {
	return NewCodeIntelMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
