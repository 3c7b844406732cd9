package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// Execute runs the given function in a new goroutine.
// It recovers from any panics within the goroutine, logs them with the provided logger and a descriptive name,
// and includes a stack trace.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer Recover(ctx, logger, goroutineName)
		fn()
	}()
}

// Recover logs a recovered panic. It must be called directly by a deferred statement.
func Recover(ctx context.Context, logger domain.Logger, name string) {
	if r := recover(); r != nil {
		// Create a new context if the original one is done, to ensure logging still works.
		logCtx := ctx
		if ctx.Err() != nil {
			logCtx = context.Background()
		}
		logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", name),
			"panic_info", fmt.Sprintf("%v", r),
			"stacktrace", string(debug.Stack()),
		)
	}
}
