//go:build !debug_trace
// +build !debug_trace

package logger

import (
	"context"
)

// Tracef is a no-op without the debug_trace build tag: it sits on the
// per-frame path.
func Tracef(ctx context.Context, format string, args ...any) {}
