package internal

import (
	"context"

	"github.com/xaionaro-go/vidframe/logger"
)

// Assert panics (through the logger, so the failure is recorded) when a
// programming contract is violated.
func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panic(ctx, "assertion failed", extraArgs)
}
