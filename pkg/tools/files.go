package tools

import (
	"context"
	"errors"

	"projectgen/pkg/workspace"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolReadFile, "Read a file from the project", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &ReadFileTool{gw: gw} })
	})
	Register(ToolWriteFile, "Create or overwrite a file in the project", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &WriteFileTool{gw: gw} })
	})
	Register(ToolListFiles, "List project files", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &ListFilesTool{gw: gw} })
	})
	Register(ToolGetCurrentDirectory, "Show the project root", func(ctx AgentContext) (Tool, error) {
		return newGatewayTool(ctx, func(gw *workspace.Gateway) Tool { return &CurrentDirectoryTool{gw: gw} })
	})
}

var errNoGateway = errors.New("no workspace gateway configured")

func newGatewayTool(ctx AgentContext, build func(*workspace.Gateway) Tool) (Tool, error) {
	if ctx.Gateway == nil {
		return nil, errNoGateway
	}
	return build(ctx.Gateway), nil
}

// ReadFileTool reads a project file. Missing files read as empty.
type ReadFileTool struct {
	gw *workspace.Gateway
}

func (t *ReadFileTool) Name() string { return ToolReadFile }

func (t *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read the content of a file relative to the project root. Returns an empty string if the file does not exist.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {Type: "string", Description: "File path relative to the project root"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadFileTool) PromptDocumentation() string {
	return `- **read_file** - Read a project file
  - Parameters: path (string, REQUIRED)
  - Missing files return an empty string`
}

func (t *ReadFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	return textResult(t.gw.Read(path)), nil
}

// WriteFileTool creates or overwrites a project file.
type WriteFileTool struct {
	gw *workspace.Gateway
}

func (t *WriteFileTool) Name() string { return ToolWriteFile }

func (t *WriteFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolWriteFile,
		Description: "Write the full content of a file relative to the project root, creating parent directories. Overwrites existing files.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "File path relative to the project root"},
				"content": {Type: "string", Description: "Complete file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *WriteFileTool) PromptDocumentation() string {
	return `- **write_file** - Create or overwrite a project file
  - Parameters: path (string, REQUIRED), content (string, REQUIRED)
  - Always write the complete file; partial edits are not supported`
}

func (t *WriteFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, errors.New("content is required and must be a string")
	}
	return textResult(t.gw.Write(path, content)), nil
}

// ListFilesTool lists project files recursively.
type ListFilesTool struct {
	gw *workspace.Gateway
}

func (t *ListFilesTool) Name() string { return ToolListFiles }

func (t *ListFilesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListFiles,
		Description: "List all files under a directory of the project, one relative path per line.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"directory": {Type: "string", Description: "Directory relative to the project root (default \".\")"},
			},
		},
	}
}

func (t *ListFilesTool) PromptDocumentation() string {
	return `- **list_files** - List project files
  - Parameters: directory (string, optional, default ".")`
}

func (t *ListFilesTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	return textResult(t.gw.List(optionalString(args, "directory", "."))), nil
}

// CurrentDirectoryTool reports the project root.
type CurrentDirectoryTool struct {
	gw *workspace.Gateway
}

func (t *CurrentDirectoryTool) Name() string { return ToolGetCurrentDirectory }

func (t *CurrentDirectoryTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetCurrentDirectory,
		Description: "Return the absolute path of the project root.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	}
}

func (t *CurrentDirectoryTool) PromptDocumentation() string {
	return `- **get_current_directory** - Show the project root (no parameters)`
}

func (t *CurrentDirectoryTool) Exec(_ context.Context, _ map[string]any) (*ExecResult, error) {
	return textResult(t.gw.CurrentDirectory()), nil
}
