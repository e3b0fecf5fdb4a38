package pipeline

import (
	"encoding/json"
	"time"
)

// EventType classifies an Event.
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventTaskCompleted  EventType = "task_completed"
	EventToolCall       EventType = "tool_call"
	EventRunFinished    EventType = "run_finished"
)

// Event is one progress notification emitted while a run executes.
type Event struct {
	Time    time.Time       `json:"time"`
	Type    EventType       `json:"type"`
	RunID   string          `json:"run_id"`
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Step    int             `json:"step"`
}

// EventSink receives events. It is called synchronously from the run
// goroutine and must not block.
type EventSink func(Event)

func (e *Engine) emit(st *State, typ EventType, msg string, data any) {
	if e.events == nil {
		return
	}
	ev := Event{
		Time:    e.now(),
		Type:    typ,
		RunID:   st.RunID,
		Status:  st.Status,
		Message: msg,
		Step:    st.Steps,
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	e.events(ev)
}
