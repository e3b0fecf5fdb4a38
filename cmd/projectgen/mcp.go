package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	execpkg "projectgen/pkg/exec"
	"projectgen/pkg/logx"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve a generated project's file tools over MCP (stdio)",
	Long: `Serve the sandboxed file, command and git tools of one generated project to an
MCP client over stdin/stdout. Paths are confined to the project directory exactly
as they are for the coding agent. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpProject string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVarP(&mcpProject, "project", "p", "", "generated project to serve (required)")
	_ = mcpCmd.MarkFlagRequired("project")
}

func runMCP(_ *cobra.Command, _ []string) error {
	// stdout carries the protocol.
	logx.SetOutput(os.Stderr)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gw := workspace.New(cfg.Paths.GeneratedProjectsDir, mcpProject, workspace.WithMaxFileSize(cfg.Limits.MaxFileSize))
	root, err := gw.Root()
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	provider := tools.NewProvider(tools.AgentContext{
		Gateway:        gw,
		Executor:       execpkg.NewLocalExec(),
		HTTPClient:     httpClient,
		Search:         tools.NewDuckDuckGoProvider(httpClient),
		CommandTimeout: cfg.Limits.CommandTimeout,
	}, tools.MCPTools(cfg.Features.EnableShell))

	logx.NewLogger("mcp").Info("Serving %d tools for %s", len(provider.Names()), root)
	return tools.ServeMCP(provider, "projectgen", version)
}
