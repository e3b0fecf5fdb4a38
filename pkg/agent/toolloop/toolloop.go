// Package toolloop runs a bounded LLM tool-calling loop: send the
// conversation, execute every requested tool, feed results back, and stop when
// a tool returns a ProcessEffect or a limit is hit.
package toolloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/logx"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

// DefaultMaxIterations applies when Config.MaxIterations is unset.
const DefaultMaxIterations = 25

// noToolNudge is sent when the model answers without calling a tool.
const noToolNudge = "You did not call any tool. Continue the task using the available tools, " +
	"and call task_complete with a short summary once the file is finished."

// ToolProvider is what the loop needs from a tool provider.
type ToolProvider interface {
	Get(name string) (tools.Tool, error)
	Definitions() ([]tools.ToolDefinition, error)
}

// ToolLoop manages LLM interactions with tool calling.
type ToolLoop struct {
	llmClient llm.LLMClient
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{llmClient: llmClient, logger: logger}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config struct {
	// Messages seeds the conversation, typically a system and a user message.
	Messages []llm.CompletionMessage

	ToolProvider ToolProvider

	// OnToolResult is called after each tool execution.
	OnToolResult func(call llm.ToolCall, result llm.ToolResult, duration time.Duration)

	MaxIterations int
	MaxTokens     int
	ToolChoice    string

	// DebugLogging logs every message sent to the model.
	DebugLogging bool
}

// Run executes the loop. It never panics on tool failures: a failing tool is
// reported back to the model as an error result.
func (tl *ToolLoop) Run(ctx context.Context, cfg *Config) Outcome {
	out := Outcome{}
	if cfg.ToolProvider == nil {
		out.Kind, out.Err = OutcomeLLMError, errors.New("ToolProvider is required")
		return out
	}
	if len(cfg.Messages) == 0 {
		out.Kind, out.Err = OutcomeLLMError, errors.New("at least one message is required")
		return out
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	toolDefs, err := cfg.ToolProvider.Definitions()
	if err != nil {
		out.Kind, out.Err = OutcomeLLMError, fmt.Errorf("failed to list tools: %w", err)
		return out
	}
	toolChoice := cfg.ToolChoice
	if toolChoice == "" {
		toolChoice = llm.ToolChoiceAuto
	}

	messages := append([]llm.CompletionMessage(nil), cfg.Messages...)
	defer func() { out.Messages = messages }()

	noToolStreak := 0
	for iteration := 1; iteration <= maxIterations; iteration++ {
		out.Iteration = iteration
		if err := ctx.Err(); err != nil {
			out.Kind, out.Err = OutcomeCanceled, fmt.Errorf("%w: %w", ErrGracefulShutdown, err)
			return out
		}

		req := llm.CompletionRequest{
			Messages:   messages,
			Tools:      toolDefs,
			ToolChoice: toolChoice,
			MaxTokens:  cfg.MaxTokens,
		}
		tl.logger.Info("🔄 Starting LLM call to model '%s' with %d messages, %d tools (iteration %d)",
			tl.llmClient.GetModelName(), len(messages), len(toolDefs), iteration)
		if cfg.DebugLogging {
			tl.logMessages(messages)
		}

		start := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		duration := time.Since(start)
		if err != nil {
			tl.logger.Error("❌ LLM call failed after %.3gs: %v", duration.Seconds(), err)
			if ctx.Err() != nil {
				out.Kind, out.Err = OutcomeCanceled, fmt.Errorf("%w: %w", ErrGracefulShutdown, err)
				return out
			}
			out.Kind, out.Err = OutcomeLLMError, fmt.Errorf("LLM completion failed: %w", err)
			return out
		}
		tl.logger.Info("✅ LLM call completed in %.3gs, response length: %d chars, tool calls: %d",
			duration.Seconds(), len(resp.Content), len(resp.ToolCalls))

		messages = append(messages, llm.NewAssistantMessage(resp.Content, resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			noToolStreak++
			if noToolStreak >= 2 {
				out.Kind, out.Err = OutcomeNoToolTwice, ErrNoTerminalTool
				return out
			}
			messages = append(messages, llm.NewUserMessage(noToolNudge))
			continue
		}
		noToolStreak = 0

		// Every tool call must get a result, even after a terminal signal.
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		var effect *tools.ProcessEffect
		for i := range resp.ToolCalls {
			call := resp.ToolCalls[i]
			result, callEffect := tl.execute(ctx, cfg, call)
			results = append(results, result)
			out.ToolCalls++
			if callEffect != nil && effect == nil {
				effect = callEffect
			}
		}
		messages = append(messages, llm.NewToolResultMessage(results))

		if effect != nil {
			tl.logger.Info("✅ Tool execution signaled %s", effect.Signal)
			out.Kind, out.Signal, out.EffectData = OutcomeSuccess, effect.Signal, effect.Data
			return out
		}
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", maxIterations)
	out.Kind, out.Err = OutcomeMaxIterations, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIterations)
	return out
}

func (tl *ToolLoop) execute(ctx context.Context, cfg *Config, call llm.ToolCall) (llm.ToolResult, *tools.ProcessEffect) {
	result := llm.ToolResult{ToolCallID: call.ID, Name: call.Name}
	start := time.Now()
	defer func() {
		if cfg.OnToolResult != nil {
			cfg.OnToolResult(call, result, time.Since(start))
		}
	}()

	tool, err := cfg.ToolProvider.Get(call.Name)
	if err != nil {
		tl.logger.Error("Failed to get tool %s: %v", call.Name, err)
		result.Content, result.IsError = fmt.Sprintf("Tool failed: %v", err), true
		return result, nil
	}

	params := call.Parameters
	if params == nil {
		params = map[string]any{}
	}
	execResult, err := tool.Exec(ctx, params)
	if err != nil {
		tl.logger.Error("Tool %s failed after %.3fs: %v", call.Name, time.Since(start).Seconds(), err)
		result.Content, result.IsError = fmt.Sprintf("Tool failed: %v", err), true
		return result, nil
	}
	tl.logger.Debug("Tool %s completed in %.3fs", call.Name, time.Since(start).Seconds())

	if execResult == nil {
		return result, nil
	}
	result.Content = execResult.Content
	result.IsError = isErrorContent(execResult.Content)
	return result, execResult.ProcessEffect
}

// isErrorContent recognizes the gateway's "ERROR: " strings and the JSON
// {"success": false} payloads tools return for recoverable failures.
func isErrorContent(content string) bool {
	if workspace.IsError(content) {
		return true
	}
	if !strings.HasPrefix(content, "{") {
		return false
	}
	var payload struct {
		Success *bool `json:"success"`
	}
	if json.Unmarshal([]byte(content), &payload) != nil {
		return false
	}
	return payload.Success != nil && !*payload.Success
}

func (tl *ToolLoop) logMessages(messages []llm.CompletionMessage) {
	tl.logger.Debug("📝 Messages sent to LLM:")
	for i := range messages {
		msg := &messages[i]
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		tl.logger.Debug("  [%d] Role: %s, Content: %q, ToolCalls: %d, ToolResults: %d",
			i, msg.Role, preview, len(msg.ToolCalls), len(msg.ToolResults))
	}
}
