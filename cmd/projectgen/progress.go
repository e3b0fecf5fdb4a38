package main

import (
	"sync"
	"time"

	"projectgen/pkg/pipeline"
	"projectgen/pkg/webui"
)

// runStatus is what /api/status and new websocket clients see.
type runStatus struct {
	RunID     string          `json:"run_id"`
	Project   string          `json:"project"`
	Status    pipeline.Status `json:"status"`
	Step      int             `json:"step"`
	StartedAt time.Time       `json:"started_at"`
	LastEvent *pipeline.Event `json:"last_event,omitempty"`
	Tasks     int             `json:"tasks_completed"`
	ToolCalls int             `json:"tool_calls"`
}

// progress folds pipeline events into a runStatus and forwards them to the hub.
type progress struct {
	mu      sync.RWMutex
	current *runStatus
	project string
	hub     *webui.Hub
}

func newProgress(project string) *progress {
	return &progress{project: project}
}

// attach forwards every subsequent event to hub.
func (p *progress) attach(hub *webui.Hub) {
	p.mu.Lock()
	p.hub = hub
	p.mu.Unlock()
}

func (p *progress) observe(ev pipeline.Event) {
	p.mu.Lock()
	if p.current == nil || p.current.RunID != ev.RunID {
		p.current = &runStatus{RunID: ev.RunID, Project: p.project, StartedAt: ev.Time}
	}
	p.current.Status = ev.Status
	p.current.Step = ev.Step
	switch ev.Type {
	case pipeline.EventTaskCompleted:
		p.current.Tasks++
	case pipeline.EventToolCall:
		p.current.ToolCalls++
	}
	last := ev
	p.current.LastEvent = &last
	hub := p.hub
	p.mu.Unlock()

	if hub != nil {
		hub.Publish(webui.TopicPipeline, string(ev.Type), ev)
	}
}

// snapshot returns a copy of the current status, or nil before the first event.
func (p *progress) snapshot() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return cp
}
