package tools

import (
	"context"
	"fmt"

	"projectgen/pkg/scaffold"
	"projectgen/pkg/workspace"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolGenerateRequirements, "Write requirements.txt", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &RequirementsTool{gw: gw} })
	})
	Register(ToolGeneratePackageJSON, "Write package.json", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &PackageJSONTool{gw: gw} })
	})
}

var packagesProperty = Property{
	Type:        "array",
	Description: "Package names, optionally with versions",
	Items:       &Property{Type: "string"},
}

// RequirementsTool writes requirements.txt from a package list.
type RequirementsTool struct {
	gw *workspace.Gateway
}

func (t *RequirementsTool) Name() string { return ToolGenerateRequirements }

func (t *RequirementsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGenerateRequirements,
		Description: "Write requirements.txt in the project root listing the given Python packages.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"packages": packagesProperty},
			Required:   []string{"packages"},
		},
	}
}

func (t *RequirementsTool) PromptDocumentation() string {
	return "- **generate_requirements_txt** - Write requirements.txt\n  - Parameters: packages (array of strings, REQUIRED)"
}

func (t *RequirementsTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	pkgs := stringSlice(args, "packages")
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("packages is required and must be a non-empty array")
	}
	return textResult(t.gw.Write("requirements.txt", scaffold.RequirementsTxt(pkgs))), nil
}

// PackageJSONTool writes package.json from a package list.
type PackageJSONTool struct {
	gw *workspace.Gateway
}

func (t *PackageJSONTool) Name() string { return ToolGeneratePackageJSON }

func (t *PackageJSONTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGeneratePackageJSON,
		Description: "Write package.json in the project root with the given npm dependencies.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"name":        {Type: "string", Description: "Package name"},
				"description": {Type: "string", Description: "Short description"},
				"packages":    packagesProperty,
			},
			Required: []string{"packages"},
		},
	}
}

func (t *PackageJSONTool) PromptDocumentation() string {
	return "- **generate_package_json** - Write package.json\n  - Parameters: packages (array of strings, REQUIRED), name, description (optional)"
}

func (t *PackageJSONTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	pkgs := stringSlice(args, "packages")
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("packages is required and must be a non-empty array")
	}
	content, err := scaffold.PackageJSON(optionalString(args, "name", t.gw.ProjectName()), optionalString(args, "description", ""), pkgs)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(t.gw.Write("package.json", content)), nil
}
