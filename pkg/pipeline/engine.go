package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"projectgen/pkg/agent"
	"projectgen/pkg/agent/llm"
	"projectgen/pkg/coder"
	"projectgen/pkg/config"
	execpkg "projectgen/pkg/exec"
	"projectgen/pkg/logx"
	"projectgen/pkg/project"
	"projectgen/pkg/templates"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

// DefaultRecursionLimit caps stage invocations when Options leaves it unset.
const DefaultRecursionLimit = 100

// checkpointTimeout bounds checkpoint writes, which outlive a cancelled run context.
const checkpointTimeout = 5 * time.Second

// Settings are the engine-wide knobs that do not vary per run.
type Settings struct {
	GeneratedDir    string
	MaxFileSize     int64
	MaxToolRounds   int
	CommandTimeout  time.Duration
	EnableWebSearch bool
	EnableShell     bool
	DebugLogging    bool
}

// SettingsFrom extracts engine settings from cfg.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		GeneratedDir:    cfg.Paths.GeneratedProjectsDir,
		MaxFileSize:     cfg.Limits.MaxFileSize,
		MaxToolRounds:   cfg.Agents.MaxToolRounds,
		CommandTimeout:  cfg.Limits.CommandTimeout,
		EnableWebSearch: cfg.Features.EnableWebSearch,
		EnableShell:     cfg.Features.EnableShell,
		DebugLogging:    cfg.Logging.Debug,
	}
}

// Options are per-run switches.
type Options struct {
	// Resume continues from a checkpointed state instead of PLANNING.
	Resume *State
	// RunID names a fresh run; a random ID is used when empty. Ignored on resume.
	RunID string

	RecursionLimit int
	EnableReview   bool
	EnableTesting  bool
	EnableGit      bool
	EnableDocker   bool
}

// OptionsFrom returns run options matching cfg's feature toggles.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		RecursionLimit: cfg.Limits.MaxRecursionLimit,
		EnableReview:   cfg.Features.EnableCodeReview,
		EnableTesting:  cfg.Features.EnableTesting,
		EnableGit:      cfg.Features.EnableGit,
		EnableDocker:   cfg.Features.EnableDocker,
	}
}

// Engine runs the pipeline. An Engine may run several projects one after another.
type Engine struct {
	clients      *agent.Clients
	settings     Settings
	renderer     *templates.Renderer
	checkpointer Checkpointer
	executor     execpkg.Executor
	httpClient   *http.Client
	search       tools.SearchProvider
	events       EventSink
	logger       *logx.Logger
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCheckpointer persists progress through c.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) { e.checkpointer = c }
}

// WithEventSink streams progress events to sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// WithExecutor runs git and tool commands through x.
func WithExecutor(x execpkg.Executor) Option {
	return func(e *Engine) { e.executor = x }
}

// WithHTTPClient is used by the documentation and search tools.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// WithSearchProvider overrides the web_search backend.
func WithSearchProvider(p tools.SearchProvider) Option {
	return func(e *Engine) { e.search = p }
}

// WithLogger replaces the engine logger.
func WithLogger(l *logx.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. Every role in clients must be set.
func NewEngine(clients *agent.Clients, settings Settings, opts ...Option) (*Engine, error) {
	if clients == nil {
		return nil, errors.New("pipeline: clients are required")
	}
	for _, role := range config.Roles() {
		if clients.For(role) == nil {
			return nil, fmt.Errorf("pipeline: no client for role %s", role)
		}
	}
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}
	if settings.GeneratedDir == "" {
		settings.GeneratedDir = config.Default().Paths.GeneratedProjectsDir
	}
	e := &Engine{
		clients:      clients,
		settings:     settings,
		renderer:     renderer,
		checkpointer: nopCheckpointer{},
		logger:       logx.NewLogger("pipeline"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.executor == nil {
		e.executor = execpkg.NewLocalExec()
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if e.search == nil {
		e.search = tools.NewDuckDuckGoProvider(e.httpClient)
	}
	return e, nil
}

// Gateway returns the sandboxed gateway for projectName under the engine's output directory.
func (e *Engine) Gateway(projectName string) *workspace.Gateway {
	return workspace.New(e.settings.GeneratedDir, projectName, workspace.WithMaxFileSize(e.settings.MaxFileSize))
}

// NewCoder returns a coding sub-agent confined to gw, along with its tool provider.
func (e *Engine) NewCoder(gw *workspace.Gateway, onTool func(llm.ToolCall, llm.ToolResult, time.Duration)) (*coder.Coder, *tools.Provider) {
	provider := tools.NewProvider(tools.AgentContext{
		Gateway:        gw,
		Executor:       e.executor,
		HTTPClient:     e.httpClient,
		Search:         e.search,
		CommandTimeout: e.settings.CommandTimeout,
	}, tools.CoderTools(e.settings.EnableWebSearch, e.settings.EnableShell))

	c := coder.New(e.clients.Coder, provider, coder.Options{
		MaxToolRounds: e.settings.MaxToolRounds,
		DebugLogging:  e.settings.DebugLogging,
		OnToolResult:  onTool,
		Workspace:     gw,
	}, e.logger.WithComponent("coder"))
	return c, provider
}

// Run generates projectName from prompt. The returned state is never nil
// once the project name is valid; on failure its Status is ERROR, or the
// last reached status when ctx was cancelled.
func (e *Engine) Run(ctx context.Context, prompt, projectName string, opts Options) (*State, error) {
	if err := workspace.ValidateProjectName(projectName); err != nil {
		return nil, err
	}
	limit := opts.RecursionLimit
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}

	st := NewState(cmp.Or(opts.RunID, uuid.NewString()), prompt, projectName, project.NewMetadata(projectName, e.now()))
	resumed := opts.Resume != nil
	if resumed {
		if opts.Resume.ProjectName != projectName {
			return nil, fmt.Errorf("cannot resume project %q as %q", opts.Resume.ProjectName, projectName)
		}
		st = resumable(*opts.Resume)
		if st.Status == StatusDone {
			e.logger.Info("Run %s already completed; nothing to resume", st.RunID)
			return &st, nil
		}
		e.logger.Info("♻️  Resuming run %s at %s (step %d)", st.RunID, st.Status, st.Steps)
	}

	r := e.newRun(projectName, opts, &st)
	e.checkpoint("begin", func(cctx context.Context) error { return e.checkpointer.Begin(cctx, &st, resumed) })
	e.emit(&st, EventRunStarted, prompt, nil)

	for !st.Status.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return e.cancelled(&st, err)
		}
		if st.Steps >= limit {
			err := fmt.Errorf("%w: %d stage invocations", ErrRecursionLimit, limit)
			return e.failed(&st, err)
		}

		stage := r.stage(st.Status)
		e.emit(&st, EventStageStarted, "", nil)
		started := e.now()
		upd, err := stage(ctx, st)
		if err != nil {
			if ctx.Err() != nil {
				return e.cancelled(&st, ctx.Err())
			}
			e.logger.Error("[%s] stage failed: %v", st.Status, err)
			return e.failed(&st, fmt.Errorf("%s: %w", st.Status, err))
		}

		next, err := Reduce(st, upd)
		if err != nil {
			e.logger.Error("[%s] cannot apply stage result: %v", st.Status, err)
			return e.failed(&st, err)
		}
		e.logger.Debug("%s -> %s in %s", st.Status, next.Status, e.now().Sub(started).Round(time.Millisecond))

		prev := st
		st = next
		e.checkpoint("save", func(cctx context.Context) error { return e.checkpointer.Save(cctx, &prev, &st) })
		e.emit(&st, EventStageCompleted, fmt.Sprintf("%s -> %s", prev.Status, st.Status), nil)
	}

	e.checkpoint("finish", func(cctx context.Context) error { return e.checkpointer.Finish(cctx, &st, string(st.Status)) })
	e.emit(&st, EventRunFinished, string(st.Status), st.Metadata)
	return &st, nil
}

func (e *Engine) failed(st *State, err error) (*State, error) {
	*st = st.Fail(err)
	e.checkpoint("finish", func(ctx context.Context) error { return e.checkpointer.Finish(ctx, st, string(StatusError)) })
	e.emit(st, EventRunFinished, st.Error, nil)
	return st, err
}

// cancelled keeps the last good status so a resume restarts the interrupted stage.
func (e *Engine) cancelled(st *State, cause error) (*State, error) {
	e.logger.Warn("Run %s cancelled during %s", st.RunID, st.Status)
	e.checkpoint("finish", func(ctx context.Context) error { return e.checkpointer.Finish(ctx, st, RunStatusCanceled) })
	e.emit(st, EventRunFinished, RunStatusCanceled, nil)
	return st, fmt.Errorf("run %s: %w", st.RunID, cause)
}

// checkpoint runs fn on a fresh context so a cancelled run still records where it stopped.
func (e *Engine) checkpoint(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.logger.Warn("checkpoint %s failed: %v", what, err)
	}
}
