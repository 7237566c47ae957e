package software

import (
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
)

// ResidencySet stages additions and removals until Commit, like the
// hardware sets it stands in for.
type ResidencySet struct {
	locker    xsync.Mutex
	staged    []gpu.Allocation
	committed []gpu.Allocation
	commits   int
}

var _ gpu.ResidencySet = (*ResidencySet)(nil)

func (s *ResidencySet) RemoveAllAllocations() {
	s.locker.Do(ctxNoLog, func() {
		s.staged = s.staged[:0]
	})
}

func (s *ResidencySet) AddAllocation(a gpu.Allocation) {
	s.locker.Do(ctxNoLog, func() {
		for _, cur := range s.staged {
			if cur.AllocationID() == a.AllocationID() {
				return
			}
		}
		s.staged = append(s.staged, a)
	})
}

func (s *ResidencySet) Commit() {
	s.locker.Do(ctxNoLog, func() {
		s.committed = append(s.committed[:0:0], s.staged...)
		s.commits++
	})
}

func (s *ResidencySet) CommittedAllocations() []gpu.Allocation {
	return xsync.DoR1(ctxNoLog, &s.locker, func() []gpu.Allocation {
		return append([]gpu.Allocation(nil), s.committed...)
	})
}

// CommitCount returns how many times Commit was called.
func (s *ResidencySet) CommitCount() int {
	return xsync.DoR1(ctxNoLog, &s.locker, func() int {
		return s.commits
	})
}

func (s *ResidencySet) committedIDs() map[types.ObjectID]struct{} {
	return xsync.DoR1(ctxNoLog, &s.locker, func() map[types.ObjectID]struct{} {
		m := make(map[types.ObjectID]struct{}, len(s.committed))
		for _, a := range s.committed {
			m[a.AllocationID()] = struct{}{}
		}
		return m
	})
}
