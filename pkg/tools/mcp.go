package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer exposes every tool of p over the Model Context Protocol.
func NewMCPServer(p *Provider, name, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))

	tools, err := p.Tools()
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		def := t.Definition()
		s.AddTool(mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: mcp.ToolInputSchema{
				Type:       def.InputSchema.Type,
				Properties: def.InputSchema.PropertiesMap(),
				Required:   def.InputSchema.Required,
			},
		}, mcpHandler(t))
	}
	return s, nil
}

// mcpHandler adapts Tool.Exec; argument errors become MCP error results.
func mcpHandler(t Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := t.Exec(ctx, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", t.Name(), err)), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}

// ServeMCP serves p on stdin/stdout until the client disconnects.
func ServeMCP(p *Provider, name, version string) error {
	s, err := NewMCPServer(p, name, version)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}
