// Package mcp provides a Model Context Protocol server for patchbay.
// It exposes the connector catalog and vendor operations as MCP tools that
// any MCP-capable agent can use.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/patchbay/internal/connector"
)

// NewServer creates an MCP server with all patchbay tools registered.
// Destructive operations run only with force=true; there is no
// interactive confirmation over MCP.
func NewServer(version string, runner *connector.Runner, connectors []*connector.Connector) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "patchbay",
		Version: version,
	}, nil)
	registerTools(server, runner, connectors)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for tools that only read local state.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// invokeAnnotations marks a tool that calls vendor APIs and may delete data.
func invokeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(true),
		OpenWorldHint:   boolPtr(true),
	}
}

// registerTools adds all patchbay tools to the server.
func registerTools(server *mcp.Server, runner *connector.Runner, connectors []*connector.Connector) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "operations",
		Description: "List connectors and their operations: resource, verb, positional args, flags, and whether the call is destructive.",
		Annotations: readOnlyAnnotations(),
	}, handleOperations(connectors))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "credentials",
		Description: "Report which connectors have credential files and which keys are missing. Never returns secret values.",
		Annotations: readOnlyAnnotations(),
	}, handleCredentials(runner.Loader, connectors))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "invoke",
		Description: "Run one vendor operation, e.g. connector=clickup resource=tasks verb=list args=[listId]. Destructive operations require force=true.",
		Annotations: invokeAnnotations(),
	}, handleInvoke(runner, connectors))
}
