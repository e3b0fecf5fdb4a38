package tools

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	execpkg "projectgen/pkg/exec"
	"projectgen/pkg/workspace"
)

// AgentContext carries what tool factories need for one agent.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type AgentContext struct {
	Gateway        *workspace.Gateway
	Executor       execpkg.Executor
	HTTPClient     *http.Client
	Search         SearchProvider
	CommandTimeout time.Duration
}

// ToolFactory creates a tool instance for an agent context.
type ToolFactory func(ctx AgentContext) (Tool, error)

type toolDescriptor struct {
	factory     ToolFactory
	description string
}

type immutableRegistry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]toolDescriptor
}

//nolint:gochecknoglobals // Factory pattern requires global registry
var globalRegistry = &immutableRegistry{
	tools: make(map[string]toolDescriptor),
}

// Register adds a tool factory. It panics after the registry is sealed.
func Register(name, description string, factory ToolFactory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if globalRegistry.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}
	globalRegistry.tools[name] = toolDescriptor{factory: factory, description: description}
}

// Seal prevents further registrations. Called when the first Provider is created.
func Seal() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.sealed = true
}

// Registered returns every registered tool name with its description, sorted by name.
func Registered() [][2]string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([][2]string, 0, len(globalRegistry.tools))
	for name, desc := range globalRegistry.tools {
		out = append(out, [2]string{name, desc.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Provider hands out tool instances restricted to an allow-list.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type Provider struct {
	ctx     AgentContext
	allowed []string
	allow   map[string]struct{}
	tools   map[string]Tool
	mu      sync.Mutex
}

// NewProvider creates a provider for ctx exposing only allowed tools, in the given order.
func NewProvider(ctx AgentContext, allowed []string) *Provider {
	Seal()

	allow := make(map[string]struct{}, len(allowed))
	ordered := make([]string, 0, len(allowed))
	for _, name := range allowed {
		if _, dup := allow[name]; dup {
			continue
		}
		allow[name] = struct{}{}
		ordered = append(ordered, name)
	}
	return &Provider{
		ctx:     ctx,
		allowed: ordered,
		allow:   allow,
		tools:   make(map[string]Tool),
	}
}

// Get returns the named tool, creating it lazily.
func (p *Provider) Get(name string) (Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allow[name]; !ok {
		return nil, fmt.Errorf("tool '%s' not allowed in this context", name)
	}
	if tool, ok := p.tools[name]; ok {
		return tool, nil
	}

	globalRegistry.mu.RLock()
	desc, exists := globalRegistry.tools[name]
	globalRegistry.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}

	tool, err := desc.factory(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool '%s': %w", name, err)
	}
	p.tools[name] = tool
	return tool, nil
}

// Tools instantiates every allowed tool in allow-list order.
func (p *Provider) Tools() ([]Tool, error) {
	out := make([]Tool, 0, len(p.allowed))
	for _, name := range p.allowed {
		tool, err := p.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, tool)
	}
	return out, nil
}

// Definitions returns the LLM-facing definitions of every allowed tool.
func (p *Provider) Definitions() ([]ToolDefinition, error) {
	tools, err := p.Tools()
	if err != nil {
		return nil, err
	}
	defs := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs, nil
}

// Names returns the allow-list.
func (p *Provider) Names() []string {
	return append([]string(nil), p.allowed...)
}

// GenerateToolDocumentation renders prompt documentation for the allowed tools.
func (p *Provider) GenerateToolDocumentation() string {
	tools, err := p.Tools()
	if err != nil || len(tools) == 0 {
		return "No tools available"
	}
	var doc strings.Builder
	doc.WriteString("## Available Tools\n\n")
	for _, t := range tools {
		doc.WriteString(t.PromptDocumentation())
		doc.WriteString("\n")
	}
	return doc.String()
}
