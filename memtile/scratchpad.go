package memtile

// SPStatus is one destination register's scratchpad-allocation state
// machine (spec.md §4.5: "IS_L2 -> ALLOC_SENT -> READY").
type SPStatus int

const (
	IsL2 SPStatus = iota
	AllocSent
	Ready
)

// ScratchpadTracker holds the per-register allocation FSM and the
// delay-queue of outgoing SP-WRITE replies waiting on an in-flight
// ALLOCATE ack for their destination register (spec.md §4.5).
type ScratchpadTracker struct {
	status  []SPStatus
	pending map[int][]func()
}

func NewScratchpadTracker(numRegisters int) *ScratchpadTracker {
	return &ScratchpadTracker{
		status:  make([]SPStatus, numRegisters),
		pending: make(map[int][]func()),
	}
}

func (s *ScratchpadTracker) Status(reg int) SPStatus { return s.status[reg] }

// BeginAllocate transitions reg into ALLOC_SENT; callers check Status
// first, since a register already past IS_L2 never gets a second ALLOCATE
// (spec.md §4.5: "first use of a destination register issues an ALLOCATE").
func (s *ScratchpadTracker) BeginAllocate(reg int) { s.status[reg] = AllocSent }

// Defer runs send immediately if reg is READY, otherwise queues it for
// CompleteAllocate to flush once the ALLOCATE ack lands (spec.md §4.5's
// delay-queue for SP-write replies).
func (s *ScratchpadTracker) Defer(reg int, send func()) {
	if s.status[reg] == Ready {
		send()
		return
	}
	s.pending[reg] = append(s.pending[reg], send)
}

// CompleteAllocate marks reg READY and flushes every deferred send queued
// for it, in arrival order.
func (s *ScratchpadTracker) CompleteAllocate(reg int) {
	s.status[reg] = Ready
	queued := s.pending[reg]
	delete(s.pending, reg)
	for _, send := range queued {
		send()
	}
}
