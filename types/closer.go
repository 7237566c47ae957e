// closer.go defines the Closer interface.

package types

import (
	"context"
)

type Closer interface {
	Close(context.Context) error
}

// Releaser is implemented by objects that return borrowed memory to their
// owner. Release must be idempotent.
type Releaser interface {
	Release()
}
