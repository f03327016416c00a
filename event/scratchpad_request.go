package event

// ScratchpadCommand is the operation a ScratchpadRequest asks the VAS
// tile's scratchpad to perform (spec.md §3).
type ScratchpadCommand int

const (
	Allocate ScratchpadCommand = iota
	Free
	Read
	Write
)

func (c ScratchpadCommand) String() string {
	switch c {
	case Allocate:
		return "ALLOCATE"
	case Free:
		return "FREE"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// ScratchpadRequest carries one scratchpad operation between a memory-tile
// agent and a VAS tile's per-register scratchpad (spec.md §3, §4.5).
type ScratchpadRequest struct {
	origin Origin

	Address           uint64
	Command           ScratchpadCommand
	Size              int
	DestRegisterID    int
	SourceTile        int
	OperandReady      bool
	ParentInstruction uint32
}

func (r *ScratchpadRequest) Origin() Origin   { return r.origin }
func (r *ScratchpadRequest) Handle(v Visitor) { v.VisitScratchpadRequest(r) }

// NewScratchpadRequest builds a ScratchpadRequest; OperandReady must never
// be set without ParentInstruction naming a live instruction-table entry
// (spec.md §7 invariant-violation example).
func NewScratchpadRequest(o Origin, cmd ScratchpadCommand, regID int, size int, parent uint32) *ScratchpadRequest {
	return &ScratchpadRequest{
		origin:            o,
		Command:           cmd,
		DestRegisterID:    regID,
		Size:              size,
		ParentInstruction: parent,
	}
}
