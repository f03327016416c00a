package event

// VectorOp distinguishes a vector memory instruction's direction.
type VectorOp int

const (
	VectorLoad VectorOp = iota
	VectorStore
)

func (o VectorOp) String() string {
	if o == VectorLoad {
		return "LOAD"
	}
	return "STORE"
}

// VectorSubOp selects the address-generation pattern for a vector memory
// instruction (spec.md §3, §4.5).
type VectorSubOp int

const (
	Unit VectorSubOp = iota
	NonUnit
	OrderedIndex
	UnorderedIndex
)

func (s VectorSubOp) String() string {
	switch s {
	case Unit:
		return "UNIT"
	case NonUnit:
		return "NON_UNIT"
	case OrderedIndex:
		return "ORDERED_INDEX"
	case UnorderedIndex:
		return "UNORDERED_INDEX"
	default:
		return "UNKNOWN"
	}
}

func (s VectorSubOp) Indexed() bool {
	return s == OrderedIndex || s == UnorderedIndex
}

// MCPUInstruction is a vector memory instruction bound for a memory-tile
// agent for decomposition into per-element cache requests (spec.md §3,
// §4.5).
type MCPUInstruction struct {
	origin Origin

	BaseAddress   uint64
	Operation     VectorOp
	SubOperation  VectorSubOp
	ElementWidth  int
	Dest          Register
	Src           Register
	Indices       []uint64
	InstructionID uint32
	SourceTile    int
}

func (i *MCPUInstruction) Origin() Origin   { return i.origin }
func (i *MCPUInstruction) Handle(v Visitor) { v.VisitMCPUInstruction(i) }

// NewMCPUInstruction stamps o as the instruction's origin, the way
// NewFence/NewFinish do for the control events.
func NewMCPUInstruction(o Origin) *MCPUInstruction {
	return &MCPUInstruction{origin: o}
}

// MCPUSetVVL requests the vector length actually usable given the
// scratchpad's capacity, element width, and LMUL (spec.md §3, §4.5, §8.8).
type MCPUSetVVL struct {
	origin Origin

	AVL          uint32
	ElementWidth int
	LMUL         int
	VVL          uint32
	CoreID       int
	Serviced     bool
}

func (s *MCPUSetVVL) Origin() Origin   { return s.origin }
func (s *MCPUSetVVL) Handle(v Visitor) { v.VisitMCPUSetVVL(s) }

// ComputeVVL implements spec.md §4.5's VVL protocol exactly:
//
//  1. elementsPerSP = spRegBytes / width
//  2. vvl = min(elementsPerSP, AVL), shifted left by LMUL (right if LMUL<0)
//
// The result is clamped to maxVVL (SPEC_FULL.md §4.5).
func ComputeVVL(avl uint32, width int, lmul int, spRegBytes int, maxVVL uint32) uint32 {
	elementsPerSP := uint32(spRegBytes / width)
	vvl := elementsPerSP
	if avl < vvl {
		vvl = avl
	}
	if lmul >= 0 {
		vvl <<= uint(lmul)
	} else {
		vvl >>= uint(-lmul)
	}
	if vvl > maxVVL {
		vvl = maxVVL
	}
	return vvl
}
