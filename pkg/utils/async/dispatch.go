package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
)

// Dispatch runs handler in a new goroutine on a detached context. The caller's
// cancellation does not propagate, so an in-flight pipeline survives the HTTP
// request (or scheduler tick) that triggered it, but the ctxlog logger is
// carried over. Panics are recovered and logged with the task name, as are
// returned errors.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	newCtx := detach(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(newCtx).Error("panic in async task",
					"task", name,
					"recover", r,
					"stack", string(debug.Stack()))
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("async task failed", "task", name, "error", err)
		}
	}()
}

// detach returns a background context carrying the original context's logger
func detach(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
