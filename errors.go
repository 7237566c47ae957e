package vidframe

import (
	"errors"
)

var (
	ErrNotReady          = errors.New("the render pipelines are not compiled yet")
	ErrInvalidTransition = errors.New("invalid command cycle transition")
)
