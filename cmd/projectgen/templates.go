package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"projectgen/pkg/logx"
	"projectgen/pkg/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in project templates",
	Long: `List the built-in project templates. Pass one to "projectgen run --template <id>"
to start from its plan; any prompt given alongside is appended as extra requirements.`,
	Args: cobra.NoArgs,
	RunE: runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template and the prompt it produces",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesShowCmd)
}

func runTemplatesList(cmd *cobra.Command, _ []string) error {
	all, err := templates.List()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(all))
	for _, t := range all {
		rows = append(rows, []string{t.ID, t.Name, t.Techstack, t.Description})
	}
	fmt.Fprintln(cmd.OutOrStdout(), logx.Table([]string{"ID", "Name", "Tech stack", "Description"}, rows))
	return nil
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	t, err := templates.Get(args[0])
	if err != nil {
		return err
	}
	pairs := [][2]string{
		{"Name", t.Name},
		{"Tech stack", t.Techstack},
		{"Features", strings.Join(t.Features, ", ")},
		{"Packages", strings.Join(t.RequiredPackages, ", ")},
		{"Docker", fmt.Sprint(t.EnableDocker)},
		{"CI/CD", fmt.Sprint(t.EnableCICD)},
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, logx.KeyValues(t.ID, pairs))
	fmt.Fprintln(out)
	fmt.Fprintln(out, t.Prompt(""))
	return nil
}
