package memtile

import "github.com/sarchlab/coyote/event"

// Transaction is one live instruction-table entry: the vector instruction
// plus the outstanding-reply bookkeeping needed to know when it has fully
// drained (spec.md §4.5).
type Transaction struct {
	Instruction                *event.MCPUInstruction
	RemainingCacheRequests     int
	RemainingScratchpadReplies int
	ElementsPerResponse        int
	VVL                        uint32
}

// InstructionTable assigns monotonic 32-bit instruction ids to incoming
// MCPUInstructions, wrapping past zero since 0 is reserved for the
// cache-request bypass (spec.md §4.5: "wrap skips 0").
type InstructionTable struct {
	entries map[uint32]*Transaction
	nextID  uint32
}

func NewInstructionTable() *InstructionTable {
	return &InstructionTable{entries: make(map[uint32]*Transaction), nextID: 1}
}

// Insert assigns instr a fresh id, stamps it onto instr, records a table
// entry snapshotting vvl, and returns the id.
func (t *InstructionTable) Insert(instr *event.MCPUInstruction, vvl uint32) uint32 {
	id := t.nextID
	instr.InstructionID = id

	t.entries[id] = &Transaction{
		Instruction:         instr,
		ElementsPerResponse: 1,
		VVL:                 vvl,
	}

	t.nextID++
	if t.nextID == 0 {
		t.nextID = 1
	}
	return id
}

func (t *InstructionTable) Get(id uint32) (*Transaction, bool) {
	tx, ok := t.entries[id]
	return tx, ok
}

func (t *InstructionTable) Delete(id uint32) { delete(t.entries, id) }

func (t *InstructionTable) Len() int { return len(t.entries) }
