package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"projectgen/pkg/persistence"
)

// RunStatusRunning and RunStatusCanceled are run-row statuses that have no
// pipeline Status counterpart.
const (
	RunStatusRunning  = "RUNNING"
	RunStatusCanceled = "CANCELED"
)

// Checkpointer records run progress. Engine treats every error as a warning.
type Checkpointer interface {
	// Begin is called once before the first stage. resumed is true when st
	// came from an earlier checkpoint.
	Begin(ctx context.Context, st *State, resumed bool) error
	// Save is called after every successful Reduce with the states on either side.
	Save(ctx context.Context, prev, next *State) error
	// Finish is called once with the last state. runStatus is DONE, ERROR or CANCELED.
	Finish(ctx context.Context, st *State, runStatus string) error
}

// StoreCheckpointer persists checkpoints and per-stage results to SQLite.
type StoreCheckpointer struct {
	store *persistence.Store
}

// NewStoreCheckpointer wraps store.
func NewStoreCheckpointer(store *persistence.Store) *StoreCheckpointer {
	return &StoreCheckpointer{store: store}
}

// Begin creates the run row, or marks a resumed run as running again.
func (c *StoreCheckpointer) Begin(ctx context.Context, st *State, resumed bool) error {
	if resumed {
		return c.store.UpdateRunStatus(ctx, st.RunID, RunStatusRunning)
	}
	if err := c.store.CreateRun(ctx, &persistence.Run{
		ID:          st.RunID,
		ProjectName: st.ProjectName,
		Prompt:      st.Prompt,
		Status:      RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}); err != nil {
		return err
	}
	return c.snapshot(ctx, st)
}

// Save writes a snapshot of next and whatever results next added over prev.
func (c *StoreCheckpointer) Save(ctx context.Context, prev, next *State) error {
	var errs []error
	if next.Coder != nil {
		done := 0
		if prev.Coder != nil {
			done = len(prev.Coder.TaskResults)
		}
		for i := done; i < len(next.Coder.TaskResults); i++ {
			errs = append(errs, c.store.SaveTaskResult(ctx, next.RunID, &next.Coder.TaskResults[i]))
		}
	}
	for i := len(prev.ReviewResults); i < len(next.ReviewResults); i++ {
		errs = append(errs, c.store.SaveReview(ctx, next.RunID, &next.ReviewResults[i]))
	}
	for i := len(prev.TestPlans); i < len(next.TestPlans); i++ {
		tp := &next.TestPlans[i]
		errs = append(errs, c.store.SaveTestPlan(ctx, next.RunID, TestFilePath(tp.Filepath, LanguageFor(tp.Filepath)), tp))
	}
	errs = append(errs, c.snapshot(ctx, next))
	return errors.Join(errs...)
}

// Finish snapshots st and closes the run row.
func (c *StoreCheckpointer) Finish(ctx context.Context, st *State, runStatus string) error {
	return errors.Join(
		c.snapshot(ctx, st),
		c.store.FinishRun(ctx, st.RunID, runStatus, st.Error),
	)
}

func (c *StoreCheckpointer) snapshot(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return c.store.SaveCheckpoint(ctx, st.RunID, st.Steps, string(st.Status), data)
}

// LoadLatest returns the newest checkpointed state of a project, prepared for
// resuming. It returns persistence.ErrNotFound when the project has none.
func LoadLatest(ctx context.Context, store *persistence.Store, projectName string) (*State, error) {
	cp, err := store.LatestCheckpoint(ctx, projectName)
	if err != nil {
		return nil, err
	}
	return DecodeState(cp.StateJSON)
}

// DecodeState restores a checkpointed state. Shared pointers are re-linked so
// the task plan carries its plan and the coder cursor walks the state's task plan.
func DecodeState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if st.TaskPlan != nil {
		st.TaskPlan.Plan = st.Plan
	}
	if st.Coder != nil {
		if st.TaskPlan == nil {
			st.TaskPlan = st.Coder.TaskPlan
		}
		st.Coder.TaskPlan = st.TaskPlan
	}
	return &st, nil
}

// resumable turns a loaded state into one the engine can continue. A failed
// run restarts at the status it failed in.
func resumable(st State) State {
	if st.Status == StatusError && st.FailedAt != "" {
		st.Status = st.FailedAt
		st.FailedAt = ""
		st.Error = ""
	}
	return st
}

type nopCheckpointer struct{}

func (nopCheckpointer) Begin(context.Context, *State, bool) error    { return nil }
func (nopCheckpointer) Save(context.Context, *State, *State) error   { return nil }
func (nopCheckpointer) Finish(context.Context, *State, string) error { return nil }

var _ Checkpointer = (*StoreCheckpointer)(nil)
