package memtile

import "github.com/sarchlab/coyote/event"

// VVLTable tracks the vector length last computed for each core, snapshotted
// into an instruction-table entry at arrival (spec.md §4.5).
type VVLTable struct {
	values []uint32
}

func NewVVLTable(numCores int) *VVLTable {
	return &VVLTable{values: make([]uint32, numCores)}
}

func (t *VVLTable) Get(coreID int) uint32 { return t.values[coreID] }

// Compute runs the VVL protocol for s and records the result for s.CoreID
// (spec.md §4.5: "elements_per_sp = sp_register_bytes / width; vvl =
// min(elements_per_sp, AVL), shifted by LMUL").
func (t *VVLTable) Compute(s *event.MCPUSetVVL, spRegBytes int, maxVVL uint32) uint32 {
	vvl := event.ComputeVVL(s.AVL, s.ElementWidth, s.LMUL, spRegBytes, maxVVL)
	t.values[s.CoreID] = vvl
	return vvl
}
