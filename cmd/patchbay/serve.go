package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/catalog"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
	patchbaymcp "github.com/gorewood/patchbay/internal/mcp"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run patchbay as a Model Context Protocol (MCP) server over stdio.

This exposes every connector operation as MCP tools that any MCP-capable
agent environment can use (Claude Code, Cursor, Windsurf, Gemini CLI, etc).

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "patchbay": {
        "command": "patchbay",
        "args": ["serve", "--workspace", "/memory"]
      }
    }
  }

Available tools: operations, credentials, invoke

Destructive operations run only when the agent passes force=true.
GET responses are cached in memory per connector and account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := patchbaymcp.NewServer(buildVersion(), a.serveRunner(), catalog.All())
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// serveRunner returns the long-lived runner behind the MCP tools. Its
// loader never exports credential values, and it has no confirmer.
func (a *app) serveRunner() *connector.Runner {
	return &connector.Runner{
		Loader:     credentials.NewIsolatedLoader(a.settings.Workspace),
		Settings:   a.settings,
		HTTPClient: a.httpClient,
		Logger:     a.logger,
		Timer:      a.timer,
		Cache:      true,
	}
}
