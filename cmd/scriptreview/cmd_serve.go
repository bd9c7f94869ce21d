package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scriptreview/internal/httpapi"
	"scriptreview/internal/logging"
	mcpserver "scriptreview/internal/mcp"
	"scriptreview/internal/wiring"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reviews over MCP or HTTP",
}

var serveMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing review_script, get_review
and list_reviews.

The server monitors for parent process death. When the client disconnects
or restarts, the server self-terminates to prevent zombie processes.`,
	Args: cobra.NoArgs,
	RunE: runServeMCP,
}

var serveHTTPFlags struct {
	addr string
}

var serveHTTPCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API:

  POST /api/reviews        run a review, streaming stage progress as SSE
  GET  /api/reviews        list stored reviews (?limit=N)
  GET  /api/reviews/:id    fetch one stored review`,
	Args: cobra.NoArgs,
	RunE: runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().StringVar(&serveHTTPFlags.addr, "addr", "", "Listen address (default: http.addr from config)")
	serveCmd.AddCommand(serveMCPCmd)
	serveCmd.AddCommand(serveHTTPCmd)
}

func runServeMCP(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := mcpserver.NewServer(app.Orchestrator, app.Store, version)
	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting scriptreview MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func runServeHTTP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := serveHTTPFlags.addr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	return httpapi.New(app.Orchestrator, app.Store).ListenAndServe(ctx, addr)
}
