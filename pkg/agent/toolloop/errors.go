package toolloop

import "errors"

var (
	// ErrNoTerminalTool indicates the model stopped calling tools without
	// signalling completion.
	ErrNoTerminalTool = errors.New("no terminal tool was called")

	// ErrMaxIterations indicates the iteration cap was reached.
	ErrMaxIterations = errors.New("maximum tool iterations exceeded")

	// ErrGracefulShutdown indicates the loop was interrupted by context cancellation.
	ErrGracefulShutdown = errors.New("graceful shutdown requested")
)
