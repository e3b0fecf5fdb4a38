// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
)

// Middleware bounds each request with its own deadline. A request that runs
// out of time while the caller's context is still live is reported as a
// transient error so the retry middleware can try again.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		if duration <= 0 {
			return next
		}
		return llm.WrapClient(next, func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			resp, err := next.Complete(timeoutCtx, req)
			if err != nil && ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err,
					fmt.Sprintf("request to %s timed out after %s", next.GetModelName(), duration))
			}
			return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
		})
	}
}
