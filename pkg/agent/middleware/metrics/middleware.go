package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
	"projectgen/pkg/config"
	"projectgen/pkg/logx"
	"projectgen/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor returns the token usage of a completed request.
type UsageExtractor func(model string, req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor prefers provider-reported usage and falls back to a
// tiktoken estimate over message text, tool calls and tool results.
func DefaultUsageExtractor(model string, req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}

	var prompt strings.Builder
	for i := range req.Messages {
		msg := &req.Messages[i]
		prompt.WriteString(msg.Content)
		prompt.WriteByte('\n')
		for j := range msg.ToolResults {
			prompt.WriteString(msg.ToolResults[j].Content)
			prompt.WriteByte('\n')
		}
	}
	promptTokens = utils.CountForModel(model, prompt.String())

	completion := resp.Content
	for i := range resp.ToolCalls {
		completion += "\n" + resp.ToolCalls[i].Name
		for k, v := range resp.ToolCalls[i].Parameters {
			if s, ok := v.(string); ok {
				completion += "\n" + k + ": " + s
			}
		}
	}
	completionTokens = utils.CountForModel(model, completion)
	return promptTokens, completionTokens
}

// Middleware returns a middleware that records latency, tokens, cost and
// outcome of every request issued on behalf of role.
func Middleware(recorder Recorder, role string, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if recorder == nil {
		recorder = Nop()
	}
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(next, func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			start := time.Now()
			model := next.GetModelName()

			resp, err := next.Complete(ctx, req)
			duration := time.Since(start)

			var promptTokens, completionTokens int
			var cost float64
			if err == nil {
				promptTokens, completionTokens = usageExtractor(model, req, resp)
				cost = config.CalculateCost(model, promptTokens, completionTokens)
			}

			recorder.ObserveRequest(model, role, promptTokens, completionTokens, cost, err == nil, errorType(err), duration)

			if logger != nil {
				status := statusSuccess
				if err != nil {
					status = statusError
				}
				logger.Debug("🎯 LLM Request: model=%s role=%s tokens=%d+%d=%d cost=$%.4f status=%s duration=%dms",
					model, role, promptTokens, completionTokens, promptTokens+completionTokens, cost, status, duration.Milliseconds())
			}

			return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
		})
	}
}

// errorType labels err for metrics.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return llmerrors.TypeOf(err).String()
	}
}
