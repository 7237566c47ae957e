// residency.go implements the per-draw rebuild of the resident allocation set.

// Package residency keeps a device residency set equal to the allocations
// referenced by the command buffer about to be submitted.
package residency

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
)

type Manager struct {
	set gpu.ResidencySet
}

func New(set gpu.ResidencySet) *Manager {
	return &Manager{set: set}
}

// Set returns the residency set to attach to command buffers.
func (m *Manager) Set() gpu.ResidencySet {
	return m.set
}

// Rebuild replaces the whole set with resources and commits it. It is
// done on every draw, even when the membership did not change.
func (m *Manager) Rebuild(
	ctx context.Context,
	resources ...gpu.Allocation,
) (_err error) {
	logger.Tracef(ctx, "Rebuild(%d)", len(resources))
	defer func() { logger.Tracef(ctx, "/Rebuild(%d): %v", len(resources), _err) }()

	for idx, r := range resources {
		if r == nil {
			return fmt.Errorf("resource #%d is nil", idx)
		}
	}

	m.set.RemoveAllAllocations()
	for _, r := range resources {
		m.set.AddAllocation(r)
	}
	m.set.Commit()
	return nil
}

// Committed returns the allocations visible to the next submission.
func (m *Manager) Committed() []gpu.Allocation {
	return m.set.CommittedAllocations()
}
