// Package recovery contains panics raised by goroutines and callbacks so a
// single faulty listener cannot take down a shared socket.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic wraps a recovered panic value.
var ErrPanic = errors.New("panic")

// RecoverWithLog recovers from panics and logs them with the provided logger.
// Use this with defer at the start of goroutines.
//
// Example:
//
//	go func() {
//	    defer recovery.RecoverWithLog(logger, "receiveLoop")
//	    // ... goroutine work
//	}()
func RecoverWithLog(logger *slog.Logger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
	}
}

// RecoverInto recovers from a panic, logs it and stores it in *errp as an
// error wrapping ErrPanic. It must be deferred directly.
//
//	func call(h Handler) (err error) {
//	    defer recovery.RecoverInto(logger, "handler", &err)
//	    return h.Handle()
//	}
func RecoverInto(logger *slog.Logger, name string, errp *error) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
		if errp != nil {
			*errp = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}
}

func logPanic(logger *slog.Logger, name string, r any) {
	if logger == nil {
		return
	}
	logger.Error("panic recovered",
		"goroutine", name,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()))
}
