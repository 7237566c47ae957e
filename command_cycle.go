// command_cycle.go tracks the state of the one command sequence built per draw.

package vidframe

import (
	"fmt"
)

type CycleState int

const (
	CycleStateIdle = CycleState(iota)
	CycleStateBegun
	CycleStateEncoded
	CycleStateSubmitted
	CycleStatePresented
)

func (s CycleState) String() string {
	switch s {
	case CycleStateIdle:
		return "idle"
	case CycleStateBegun:
		return "begun"
	case CycleStateEncoded:
		return "encoded"
	case CycleStateSubmitted:
		return "submitted"
	case CycleStatePresented:
		return "presented"
	}
	return fmt.Sprintf("unknown_cycle_state_%d", int(s))
}

// next is the only state a cycle may move to from s.
func (s CycleState) next() CycleState {
	if s == CycleStatePresented {
		return CycleStateIdle
	}
	return s + 1
}

// commandCycle enforces Idle -> Begun -> Encoded -> Submitted -> Presented -> Idle.
type commandCycle struct {
	state     CycleState
	completed uint64
}

func (c *commandCycle) State() CycleState {
	return c.state
}

func (c *commandCycle) transition(to CycleState) error {
	if c.state.next() != to {
		return fmt.Errorf("%s -> %s: %w", c.state, to, ErrInvalidTransition)
	}
	c.state = to
	if to == CycleStateIdle {
		c.completed++
	}
	return nil
}

// abort returns the cycle to Idle after a failed step.
func (c *commandCycle) abort() {
	c.state = CycleStateIdle
}
