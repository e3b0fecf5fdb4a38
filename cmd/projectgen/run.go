package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"projectgen/pkg/agent"
	llmmetrics "projectgen/pkg/agent/middleware/metrics"
	"projectgen/pkg/config"
	"projectgen/pkg/logx"
	"projectgen/pkg/metrics"
	"projectgen/pkg/persistence"
	"projectgen/pkg/pipeline"
	"projectgen/pkg/templates"
	"projectgen/pkg/webui"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Generate a project from a prompt",
	Long: `Generate a project from a natural-language prompt. The run plans the project,
breaks it into file-level tasks, implements each task with a tool-using coding
agent, then optionally reviews the code, writes tests and finalizes the repository.

Progress is checkpointed after every stage; --resume continues the latest run of
a project from where it stopped.`,
	Example: `  projectgen run "a CLI todo app in Python" --name todo
  projectgen run --template flask-api --name api "add JWT auth"
  projectgen run --resume --name todo`,
	RunE: runRun,
}

var (
	runName           string
	runTemplate       string
	runRecursionLimit int
	runNoReview       bool
	runNoTests        bool
	runNoGit          bool
	runDocker         bool
	runResume         bool
	runListen         string
)

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.StringVarP(&runName, "name", "n", "", "project directory name (derived from the prompt when empty)")
	f.StringVarP(&runTemplate, "template", "t", "", "start from a catalogue template (see `projectgen templates`)")
	f.IntVarP(&runRecursionLimit, "recursion-limit", "r", 0, "maximum stage invocations (default from config)")
	f.BoolVar(&runNoReview, "no-review", false, "skip code review")
	f.BoolVar(&runNoTests, "no-tests", false, "skip test generation")
	f.BoolVar(&runNoGit, "no-git", false, "do not initialize a git repository")
	f.BoolVar(&runDocker, "docker", false, "generate Dockerfile and docker-compose.yml")
	f.BoolVar(&runResume, "resume", false, "continue the latest checkpointed run of --name")
	f.StringVar(&runListen, "listen", "", "serve status, logs, metrics and events on this address, e.g. :8090")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	opts := runOptions(cfg)
	if runTemplate != "" {
		tpl, err := templates.Get(runTemplate)
		if err != nil {
			return err
		}
		prompt = tpl.Prompt(prompt)
		opts.EnableDocker = opts.EnableDocker || tpl.EnableDocker
	}

	name := runName
	if name == "" {
		if runResume {
			return errors.New("--resume needs --name")
		}
		name = projectNameFrom(prompt)
	}
	if prompt == "" && !runResume {
		return errors.New("a prompt or --template is required")
	}

	if err := os.MkdirAll(cfg.Paths.CheckpointDir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	store, err := persistence.OpenInDir(ctx, cfg.Paths.CheckpointDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if runResume {
		st, err := pipeline.LoadLatest(ctx, store, name)
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("no checkpoint for project %q", name)
		}
		if err != nil {
			return err
		}
		opts.Resume = st
		opts.RunID = st.RunID
		if prompt == "" {
			prompt = st.Prompt
		}
	}

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if cfg.Logging.File {
		closeLog, err := enableRunLog(cfg.Paths.CheckpointDir, opts.RunID)
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()
	}

	reg := prometheus.NewRegistry()
	tracker := metrics.NewTokenTracker()
	recorder := llmmetrics.Multi(llmmetrics.NewPrometheusRecorder(reg), tracker)
	clients, err := agent.NewLLMClientFactory(cfg, recorder).CreateClients()
	if err != nil {
		return err
	}

	prog := newProgress(name)
	if runListen != "" {
		srv := webui.NewServer(prog.snapshot, reg)
		addr, err := srv.Start(ctx, runListen)
		if err != nil {
			return err
		}
		prog.attach(srv.Hub())
		logx.NewLogger("webui").Info("📡 Status server on http://%s", addr)
	}

	engine, err := pipeline.NewEngine(clients, pipeline.SettingsFrom(cfg),
		pipeline.WithCheckpointer(pipeline.NewStoreCheckpointer(store)),
		pipeline.WithEventSink(prog.observe),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, logx.Banner("projectgen", fmt.Sprintf("%s → %s", name, filepath.Join(cfg.Paths.GeneratedProjectsDir, name))))

	started := time.Now()
	st, runErr := engine.Run(ctx, prompt, name, opts)
	if st != nil {
		printSummary(out, st, tracker, time.Since(started))
		if path, err := metrics.WriteSnapshot(reg, filepath.Join(cfg.Paths.CheckpointDir, st.RunID)); err != nil {
			logx.NewLogger("metrics").Warn("metrics snapshot: %v", err)
		} else {
			logx.NewLogger("metrics").Debug("metrics written to %s", path)
		}
	}
	return runErr
}

// runOptions applies the command-line switches on top of the configured features.
func runOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.OptionsFrom(cfg)
	if runRecursionLimit > 0 {
		opts.RecursionLimit = runRecursionLimit
	}
	if runNoReview {
		opts.EnableReview = false
	}
	if runNoTests {
		opts.EnableTesting = false
	}
	if runNoGit {
		opts.EnableGit = false
	}
	if runDocker {
		opts.EnableDocker = true
	}
	return opts
}

// enableRunLog mirrors logs into <checkpoint_dir>/logs/<run-id>.log. A resumed
// run appends to the same file.
func enableRunLog(checkpointDir, runID string) (func() error, error) {
	dir := filepath.Join(checkpointDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return logx.EnableFileLogging(filepath.Join(dir, runID+".log"))
}

func printSummary(out io.Writer, st *pipeline.State, tracker *metrics.TokenTracker, elapsed time.Duration) {
	succeeded, failed := 0, 0
	if st.Coder != nil {
		succeeded, failed = st.Coder.Counts()
	}
	approved := 0
	for _, r := range st.ReviewResults {
		if r.Approved {
			approved++
		}
	}

	pairs := [][2]string{
		{"Run", st.RunID},
		{"Status", string(st.Status)},
		{"Stages", fmt.Sprint(st.Steps)},
		{"Tasks", fmt.Sprintf("%d succeeded, %d failed", succeeded, failed)},
		{"Files", fmt.Sprint(len(st.Metadata.FilesCreated))},
		{"Lines", fmt.Sprint(st.Metadata.TotalLines)},
		{"Reviews", fmt.Sprintf("%d/%d approved", approved, len(st.ReviewResults))},
		{"Test files", fmt.Sprint(len(st.TestPlans))},
		{"Git", fmt.Sprint(st.Metadata.GitInitialized)},
		{"Docker", fmt.Sprint(st.Metadata.DockerEnabled)},
		{"Elapsed", elapsed.Round(time.Second).String()},
	}
	if st.Error != "" {
		pairs = append(pairs, [2]string{"Error", st.Error})
	}
	fmt.Fprintln(out, logx.KeyValues("Run summary", pairs))
	if rows := tracker.Rows(); len(rows) > 1 {
		fmt.Fprintln(out, logx.Table(metrics.TableHeaders, rows))
	}
}

// projectNameFrom derives a directory name from the first words of prompt.
func projectNameFrom(prompt string) string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return "generated_app"
	}
	return strings.Join(words, "_")
}
