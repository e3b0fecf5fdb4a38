package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projectgen/pkg/agent"
	llmmetrics "projectgen/pkg/agent/middleware/metrics"
	"projectgen/pkg/pipeline"
)

var refactorCmd = &cobra.Command{
	Use:   "refactor <file>",
	Short: "Refactor one file of a generated project",
	Long: `Run the coding agent against a single existing file of a generated project.
The file path is relative to the project root; the agent has the same tools and
the same sandbox as during generation.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefactor,
}

var (
	refactorProject      string
	refactorInstructions string
	refactorIssues       []string
)

func init() {
	rootCmd.AddCommand(refactorCmd)
	refactorCmd.Flags().StringVarP(&refactorProject, "name", "n", "", "generated project name (required)")
	refactorCmd.Flags().StringVarP(&refactorInstructions, "instructions", "i", "", "what to change")
	refactorCmd.Flags().StringArrayVar(&refactorIssues, "issue", nil, "a specific issue to fix (repeatable)")
	_ = refactorCmd.MarkFlagRequired("name")
}

func runRefactor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	clients, err := agent.NewLLMClientFactory(cfg, llmmetrics.Nop()).CreateClients()
	if err != nil {
		return err
	}
	engine, err := pipeline.NewEngine(clients, pipeline.SettingsFrom(cfg))
	if err != nil {
		return err
	}

	res, err := engine.Refactor(cmd.Context(), pipeline.RefactorRequest{
		ProjectName:  refactorProject,
		Filepath:     args[0],
		Instructions: refactorInstructions,
		Issues:       refactorIssues,
	})
	if err != nil {
		return fmt.Errorf("refactor %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s (%d tool calls, %d rounds)\n", res.Summary, res.ToolCalls, res.Rounds)
	return nil
}
