package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/structured"
	"projectgen/pkg/coder"
	"projectgen/pkg/logx"
	"projectgen/pkg/project"
	"projectgen/pkg/scaffold"
	"projectgen/pkg/templates"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

// stageFunc computes a stage's Update from the current State.
type stageFunc func(ctx context.Context, st State) (Update, error)

// run holds what the stages of one Engine.Run share.
type run struct {
	e       *Engine
	gw      *workspace.Gateway
	opts    Options
	coder   *coder.Coder
	toolDoc string
	// state points at the engine's running state, for event metadata only.
	state *State
}

func (e *Engine) newRun(projectName string, opts Options, st *State) *run {
	r := &run{e: e, gw: e.Gateway(projectName), opts: opts, state: st}
	c, provider := e.NewCoder(r.gw, r.onToolResult)
	r.coder = c
	r.toolDoc = provider.GenerateToolDocumentation()
	return r
}

func (r *run) stage(s Status) stageFunc {
	switch s {
	case StatusPlanning:
		return r.plan
	case StatusArchitecting:
		return r.architect
	case StatusCoding:
		return r.code
	case StatusReviewing:
		return r.review
	case StatusTesting:
		return r.test
	case StatusFinalizing:
		return r.finalize
	default:
		return func(context.Context, State) (Update, error) {
			return Update{}, fmt.Errorf("%w: no stage runs in %s", ErrInvalidTransition, s)
		}
	}
}

func (r *run) logger(component string) *logx.Logger {
	return r.e.logger.WithComponent(component)
}

func (r *run) render(name templates.StateTemplate, data *templates.TemplateData) (string, error) {
	out, err := r.e.renderer.Render(name, data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

func (r *run) onToolResult(call llm.ToolCall, result llm.ToolResult, d time.Duration) {
	r.e.emit(r.state, EventToolCall, call.Name, map[string]any{
		"tool":        call.Name,
		"error":       result.IsError,
		"duration_ms": d.Milliseconds(),
	})
}

func (r *run) plan(ctx context.Context, st State) (Update, error) {
	log := r.logger("planner")
	log.Info("📋 Planning project from request")

	user, err := r.render(templates.PlannerTemplate, &templates.TemplateData{Prompt: st.Prompt})
	if err != nil {
		return Update{}, err
	}
	var plan project.Plan
	if err := structured.Invoke(ctx, r.e.clients.Planner, structured.Prompt{User: user}, &plan); err != nil {
		return Update{}, fmt.Errorf("planner: %w", err)
	}
	log.Info("Plan created: %s (%s), %d files, %d features", plan.Name, plan.Techstack, len(plan.Files), len(plan.Features))
	return Update{Status: StatusArchitecting, Plan: &plan}, nil
}

func (r *run) architect(ctx context.Context, st State) (Update, error) {
	log := r.logger("architect")
	if st.Plan == nil {
		return Update{}, errors.New("architect: no plan")
	}

	user, err := r.render(templates.ArchitectTemplate, &templates.TemplateData{
		ProjectName: st.Plan.Name,
		PlanSummary: st.Plan.Summary(),
	})
	if err != nil {
		return Update{}, err
	}
	var tp project.TaskPlan
	if err := structured.Invoke(ctx, r.e.clients.Architect, structured.Prompt{User: user}, &tp); err != nil {
		return Update{}, fmt.Errorf("architect: %w", err)
	}
	tp.Plan = st.Plan
	log.Info("🏗️  %d implementation tasks", tp.Len())
	return Update{Status: StatusCoding, TaskPlan: &tp}, nil
}

// code runs the task under the cursor and advances it, whatever the outcome.
func (r *run) code(ctx context.Context, st State) (Update, error) {
	log := r.logger("coder")
	cs := st.Coder
	if cs == nil {
		if st.TaskPlan == nil {
			return Update{}, errors.New("coder: no task plan")
		}
		cs = project.NewCoderState(st.TaskPlan)
	}
	task, ok := cs.Current()
	if !ok {
		log.Info("No implementation tasks left")
		return Update{Status: StatusReviewing, Coder: cs}, nil
	}

	step, total := cs.CurrentStepIdx+1, cs.TaskPlan.Len()
	log.Info("💻 Task %d/%d: %s", step, total, task.Filepath)

	existing, _, err := r.gw.ReadFile(task.Filepath)
	if err != nil {
		log.Warn("cannot read %s before coding: %v", task.Filepath, err)
		existing = ""
	}
	system, err := r.render(templates.CoderSystemTemplate, &templates.TemplateData{
		ProjectName:       st.ProjectName,
		ToolDocumentation: r.toolDoc,
	})
	if err != nil {
		return Update{}, err
	}
	user, err := r.render(templates.CoderTaskTemplate, &templates.TemplateData{
		Task:            task,
		Step:            step,
		TotalSteps:      total,
		ExistingContent: existing,
	})
	if err != nil {
		return Update{}, err
	}

	started := r.e.now()
	res, runErr := r.coder.Run(ctx, system, user)
	if runErr != nil && ctx.Err() != nil {
		return Update{}, ctx.Err()
	}

	result := project.TaskResult{
		Index:     cs.CurrentStepIdx,
		Filepath:  task.Filepath,
		Status:    project.TaskSucceeded,
		Summary:   res.Summary,
		ToolCalls: res.ToolCalls,
		Duration:  r.e.now().Sub(started),
	}
	if runErr != nil {
		log.Error("[coder] task %d (%s) failed: %v", step, task.Filepath, runErr)
		result.Status = project.TaskFailed
		result.Error = runErr.Error()
	}
	r.e.emit(r.state, EventTaskCompleted, task.Filepath, result)

	next := cs.Advance(result, existing)
	status := StatusCoding
	if next.Done() {
		status = StatusReviewing
	}
	return Update{
		Status:   status,
		Coder:    next,
		Metadata: &project.Metadata{FilesCreated: res.FilesWritten},
	}, nil
}

// review asks the reviewer about each planned file. Failures skip the file.
func (r *run) review(ctx context.Context, st State) (Update, error) {
	if !r.opts.EnableReview {
		return Update{Status: StatusTesting}, nil
	}
	log := r.logger("reviewer")
	failed := st.Coder.FailedFiles()

	var results []project.CodeReviewResult
	for _, path := range st.Plan.FilePaths() {
		if err := ctx.Err(); err != nil {
			return Update{}, err
		}
		if failed[path] {
			log.Info("Skipping review of %s: its coding task failed", path)
			continue
		}
		code, ok := r.readNonEmpty(log, path)
		if !ok {
			continue
		}

		lang := LanguageFor(path)
		user, err := r.render(templates.ReviewerTemplate, &templates.TemplateData{Filepath: path, Language: lang, Code: code})
		if err != nil {
			return Update{}, err
		}
		var res project.CodeReviewResult
		if err := structured.Invoke(ctx, r.e.clients.Reviewer, structured.Prompt{User: user}, &res); err != nil {
			if ctx.Err() != nil {
				return Update{}, ctx.Err()
			}
			log.Error("[reviewer] review of %s failed: %v", path, err)
			continue
		}
		res.Filepath = path

		if res.Approved {
			log.Info("✅ %s approved (score %d)", path, res.QualityScore)
		} else {
			log.Warn("%s needs improvement (score %d): %s", path, res.QualityScore, strings.Join(firstN(res.Issues, 3), "; "))
		}
		results = append(results, res)
	}
	return Update{Status: StatusTesting, ReviewResults: results}, nil
}

// test writes generated unit tests for python, javascript and typescript sources.
func (r *run) test(ctx context.Context, st State) (Update, error) {
	if !r.opts.EnableTesting {
		return Update{Status: StatusFinalizing}, nil
	}
	log := r.logger("tester")
	failed := st.Coder.FailedFiles()

	var (
		plans   []project.TestPlan
		written []string
	)
	for _, path := range st.Plan.FilePaths() {
		if err := ctx.Err(); err != nil {
			return Update{}, err
		}
		if !wantsTests(path) || failed[path] {
			continue
		}
		code, ok := r.readNonEmpty(log, path)
		if !ok {
			continue
		}

		lang := LanguageFor(path)
		user, err := r.render(templates.TesterTemplate, &templates.TemplateData{
			Filepath:  path,
			Language:  lang,
			Framework: TestFramework(lang),
			Code:      code,
		})
		if err != nil {
			return Update{}, err
		}
		var tp project.TestPlan
		if err := structured.Invoke(ctx, r.e.clients.Tester, structured.Prompt{User: user}, &tp); err != nil {
			if ctx.Err() != nil {
				return Update{}, ctx.Err()
			}
			log.Error("[tester] test generation for %s failed: %v", path, err)
			continue
		}
		tp.Filepath = path

		testPath := TestFilePath(path, lang)
		if _, err := r.gw.WriteFile(testPath, tp.Source(commentPrefix(lang))); err != nil {
			log.Error("[tester] cannot write %s: %v", testPath, err)
			continue
		}
		log.Info("🧪 %d test cases for %s written to %s", len(tp.TestCases), path, testPath)
		plans = append(plans, tp)
		written = append(written, testPath)
	}

	upd := Update{Status: StatusFinalizing, TestPlans: plans}
	if len(written) > 0 {
		upd.Metadata = &project.Metadata{FilesCreated: written, TestsGenerated: true}
	}
	return upd, nil
}

// finalize writes manifests, container and CI files, commits, and takes the
// final inventory. Individual failures are logged and do not fail the run.
func (r *run) finalize(ctx context.Context, st State) (Update, error) {
	log := r.logger("finalizer")
	meta := project.Metadata{}

	if plan := st.Plan; plan != nil {
		if len(plan.RequiredPackages) > 0 {
			// A mixed stack gets one manifest; python wins.
			if scaffold.WantsRequirements(plan.Techstack) {
				if r.writeScaffold(log, "requirements.txt", scaffold.RequirementsTxt(plan.RequiredPackages), nil) {
					meta.PackagesInstalled = plan.RequiredPackages
				}
			} else if scaffold.WantsPackageJSON(plan.Techstack) {
				content, err := scaffold.PackageJSON(plan.Name, plan.Description, plan.RequiredPackages)
				if r.writeScaffold(log, "package.json", content, err) {
					meta.PackagesInstalled = plan.RequiredPackages
				}
			}
		}
		if plan.EnableDocker || r.opts.EnableDocker {
			dockerfile, err := scaffold.Dockerfile(plan.Name, plan.Techstack)
			okFile := r.writeScaffold(log, "Dockerfile", dockerfile, err)
			compose, err := scaffold.DockerCompose(plan.Name, plan.Techstack)
			okCompose := r.writeScaffold(log, "docker-compose.yml", compose, err)
			meta.DockerEnabled = okFile && okCompose
		}
		if plan.EnableCICD {
			r.writeScaffold(log, ".github/workflows/ci.yml", scaffold.CIWorkflow(plan.Techstack), nil)
		}
	}

	if r.opts.EnableGit {
		meta.GitInitialized = r.commit(ctx, log, st)
	}
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	files, err := r.gw.ListFiles(".")
	if err != nil {
		log.Warn("cannot list project files: %v", err)
	}
	meta.FilesCreated = files
	meta.TotalLines = r.gw.CountLines(files)
	log.Info("📦 Project finalized: %d files, %d lines", len(files), meta.TotalLines)
	return Update{Status: StatusDone, Metadata: &meta}, nil
}

func (r *run) commit(ctx context.Context, log *logx.Logger, st State) bool {
	git := tools.NewGit(r.gw, r.e.executor)
	if err := git.Init(ctx); err != nil {
		log.Warn("git init failed: %v", err)
		return false
	}
	name := st.ProjectName
	if st.Plan != nil && st.Plan.Name != "" {
		name = st.Plan.Name
	}
	out, err := git.Commit(ctx, "Initial commit: "+name)
	if err != nil {
		log.Warn("git commit failed: %v", err)
		return false
	}
	log.Info("Git repository initialized: %s", strings.TrimSpace(out))
	return true
}

func (r *run) writeScaffold(log *logx.Logger, path, content string, renderErr error) bool {
	if renderErr != nil {
		log.Warn("cannot render %s: %v", path, renderErr)
		return false
	}
	if _, err := r.gw.WriteFile(path, content); err != nil {
		log.Warn("cannot write %s: %v", path, err)
		return false
	}
	log.Info("Generated %s", path)
	return true
}

func (r *run) readNonEmpty(log *logx.Logger, path string) (string, bool) {
	content, exists, err := r.gw.ReadFile(path)
	switch {
	case err != nil:
		log.Warn("cannot read %s: %v", path, err)
		return "", false
	case !exists || strings.TrimSpace(content) == "":
		log.Debug("skipping %s: missing or empty", path)
		return "", false
	}
	return content, true
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
