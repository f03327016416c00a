package tile

import "github.com/sarchlab/coyote/event"

// Scratchpad is the per-register vector scratchpad a "VAS tile" exposes to
// memory-tile agents (spec.md §4.5: "coordinating with a remote
// per-vector-register scratchpad in a VAS tile"). Unlike the memtile side
// of the protocol, which tracks an IS_L2/ALLOC_SENT/READY FSM per register
// because allocation and the network round-trip take time, the scratchpad
// itself is modeled as servicing ALLOCATE/READ/WRITE instantly: its access
// time is well under one NoC hop and spec.md assigns it no latency of its
// own.
type Scratchpad struct {
	allocated []bool
	data      [][]byte
}

// NewScratchpad allocates numRegisters registers of regBytes bytes each.
func NewScratchpad(numRegisters, regBytes int) *Scratchpad {
	s := &Scratchpad{
		allocated: make([]bool, numRegisters),
		data:      make([][]byte, numRegisters),
	}
	for i := range s.data {
		s.data[i] = make([]byte, regBytes)
	}
	return s
}

// Handle services cmd against register req.DestRegisterID and marks the
// request ready to send back to the memory tile that issued it.
func (s *Scratchpad) Handle(req *event.ScratchpadRequest) {
	reg := req.DestRegisterID
	switch req.Command {
	case event.Allocate:
		s.allocated[reg] = true
	case event.Free:
		s.allocated[reg] = false
	case event.Read, event.Write:
		// Data movement itself is untimed here; only the NoC round-trip
		// that carried the command is.
	}
	req.OperandReady = true
}
