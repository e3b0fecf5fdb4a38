package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"projectgen/pkg/project"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// CreateRun inserts a new run.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, project_name, prompt, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ProjectName, run.Prompt, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// UpdateRunStatus records a non-terminal status change.
func (s *Store) UpdateRunStatus(ctx context.Context, runID, status string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE runs SET status = ? WHERE id = ?", status, runID); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_name, prompt, status, error, started_at, finished_at
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first. An empty project lists all projects.
func (s *Store) ListRuns(ctx context.Context, projectName string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, project_name, prompt, status, error, started_at, finished_at FROM runs`
	args := []any{}
	if projectName != "" {
		query += " WHERE project_name = ?"
		args = append(args, projectName)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.ProjectName, &run.Prompt, &run.Status, &run.Error, &run.StartedAt, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// SaveCheckpoint appends a state snapshot to a run.
func (s *Store) SaveCheckpoint(ctx context.Context, runID string, step int, status string, stateJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, step, status, state_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, step, status, string(stateJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for run %s: %w", runID, err)
	}
	return nil
}

// LatestCheckpoint returns the newest checkpoint of the newest run of a project
// that has one.
func (s *Store) LatestCheckpoint(ctx context.Context, projectName string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.run_id, c.step, c.status, c.state_json, c.created_at
		FROM checkpoints c JOIN runs r ON r.id = c.run_id
		WHERE r.project_name = ?
		ORDER BY c.id DESC LIMIT 1`, projectName)

	var (
		cp    Checkpoint
		state string
	)
	err := row.Scan(&cp.ID, &cp.RunID, &cp.Step, &cp.Status, &state, &cp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint for project %s: %w", projectName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	cp.StateJSON = []byte(state)
	return &cp, nil
}

// SaveTaskResult records one coding task outcome.
func (s *Store) SaveTaskResult(ctx context.Context, runID string, r *project.TaskResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO task_results (run_id, idx, filepath, status, error, summary, tool_calls, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Index, r.Filepath, string(r.Status), r.Error, r.Summary, r.ToolCalls, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save task result %d: %w", r.Index, err)
	}
	return nil
}

// TaskResults returns a run's task outcomes in task order.
func (s *Store) TaskResults(ctx context.Context, runID string) ([]project.TaskResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, filepath, status, error, summary, tool_calls, duration_ms
		FROM task_results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []project.TaskResult
	for rows.Next() {
		var (
			r      project.TaskResult
			status string
			ms     int64
		)
		if err := rows.Scan(&r.Index, &r.Filepath, &status, &r.Error, &r.Summary, &r.ToolCalls, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan task result: %w", err)
		}
		r.Status = project.TaskStatus(status)
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveReview records a review result.
func (s *Store) SaveReview(ctx context.Context, runID string, r *project.CodeReviewResult) error {
	issues, err := json.Marshal(nonNil(r.Issues))
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	suggestions, err := json.Marshal(nonNil(r.Suggestions))
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO review_results (run_id, filepath, quality_score, approved, issues_json, suggestions_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, r.Filepath, r.QualityScore, r.Approved, string(issues), string(suggestions))
	if err != nil {
		return fmt.Errorf("failed to save review for %s: %w", r.Filepath, err)
	}
	return nil
}

// Reviews returns a run's review results ordered by path.
func (s *Store) Reviews(ctx context.Context, runID string) ([]project.CodeReviewResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filepath, quality_score, approved, issues_json, suggestions_json
		FROM review_results WHERE run_id = ? ORDER BY filepath`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []project.CodeReviewResult
	for rows.Next() {
		var (
			r                   project.CodeReviewResult
			issues, suggestions string
		)
		if err := rows.Scan(&r.Filepath, &r.QualityScore, &r.Approved, &issues, &suggestions); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if err := json.Unmarshal([]byte(issues), &r.Issues); err != nil {
			return nil, fmt.Errorf("failed to decode issues for %s: %w", r.Filepath, err)
		}
		if err := json.Unmarshal([]byte(suggestions), &r.Suggestions); err != nil {
			return nil, fmt.Errorf("failed to decode suggestions for %s: %w", r.Filepath, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveTestPlan records a generated test plan and the file it was written to.
func (s *Store) SaveTestPlan(ctx context.Context, runID, testFile string, tp *project.TestPlan) error {
	cases, err := json.Marshal(tp.TestCases)
	if err != nil {
		return fmt.Errorf("failed to marshal test cases: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO test_plans (run_id, filepath, test_framework, test_file, cases_json)
		VALUES (?, ?, ?, ?, ?)`,
		runID, tp.Filepath, tp.TestFramework, testFile, string(cases))
	if err != nil {
		return fmt.Errorf("failed to save test plan for %s: %w", tp.Filepath, err)
	}
	return nil
}

// CountTestPlans returns how many test plans a run produced.
func (s *Store) CountTestPlans(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM test_plans WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count test plans: %w", err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
