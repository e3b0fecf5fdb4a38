package tools

// Tool names.
const (
	ToolReadFile             = "read_file"
	ToolWriteFile            = "write_file"
	ToolListFiles            = "list_files"
	ToolGetCurrentDirectory  = "get_current_directory"
	ToolRunCommand           = "run_command"
	ToolGitInit              = "git_init"
	ToolGitCommit            = "git_commit"
	ToolGitStatus            = "git_status"
	ToolGenerateRequirements = "generate_requirements_txt"
	ToolGeneratePackageJSON  = "generate_package_json"
	ToolWebSearch            = "web_search"
	ToolFetchDocumentation   = "fetch_documentation"
	ToolTaskComplete         = "task_complete"
)

// SignalTaskComplete is the ProcessEffect signal emitted by task_complete.
const SignalTaskComplete = "TASK_COMPLETE"

// FileTools is the minimal sandboxed file surface.
//
//nolint:gochecknoglobals // read-only tool list
var FileTools = []string{
	ToolReadFile,
	ToolWriteFile,
	ToolListFiles,
	ToolGetCurrentDirectory,
}

// CoderTools returns the coding sub-agent's allow-list. The web tools reach the
// network and run_command bypasses the gateway, so both are opt-in.
func CoderTools(web, shell bool) []string {
	names := append([]string(nil), FileTools...)
	if shell {
		names = append(names, ToolRunCommand)
	}
	names = append(names,
		ToolGitInit,
		ToolGitCommit,
		ToolGitStatus,
		ToolGenerateRequirements,
		ToolGeneratePackageJSON,
	)
	if web {
		names = append(names, ToolWebSearch, ToolFetchDocumentation)
	}
	return append(names, ToolTaskComplete)
}

// MCPTools is the surface served over MCP. task_complete has no meaning outside a tool loop.
func MCPTools(shell bool) []string {
	names := append([]string(nil), FileTools...)
	if shell {
		names = append(names, ToolRunCommand)
	}
	return append(names, ToolGitStatus)
}
