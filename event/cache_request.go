package event

import (
	"fmt"

	"github.com/sarchlab/coyote/clog"
)

// CacheRequestKind distinguishes the four access types a CacheRequest may
// represent (spec.md §3).
type CacheRequestKind int

const (
	Load CacheRequestKind = iota
	Store
	Fetch
	Writeback
)

func (k CacheRequestKind) String() string {
	switch k {
	case Load:
		return "LOAD"
	case Store:
		return "STORE"
	case Fetch:
		return "FETCH"
	case Writeback:
		return "WRITEBACK"
	default:
		return "UNKNOWN"
	}
}

// MemoryLayout is the (controller, rank, bank, row, column) address
// decomposition stamped onto a CacheRequest exactly once, by the memory
// controller that owns the address (spec.md §3, §4.4). Decoded is false
// until the controller has performed that decoding.
type MemoryLayout struct {
	Decoded    bool
	Controller int
	Rank       int
	Bank       int
	Row        uint64
	Column     uint64
}

// CacheRequest is the workhorse event: a load, store, fetch, or writeback
// travelling from a core down through the cache/NoC/memory hierarchy and
// back as an acknowledgement.
//
// Invariants (spec.md §3):
//   - LineAddress is always Address with the low log2(line size) bits
//     cleared (set by SetLineAddress, which Build calls, never by hand).
//   - HomeTile/CacheBank are set exactly once, by the tile's access
//     director, before the request leaves the tile.
//   - Layout fields are set exactly once, by the owning memory controller.
type CacheRequest struct {
	origin Origin

	Address  uint64
	Size     int
	Kind     CacheRequestKind
	Dest     Register
	SourceTile int

	LineAddress uint64
	homeTileSet bool
	HomeTile    int
	bankSet     bool
	CacheBank   int

	Layout MemoryLayout

	BypassL2       bool
	MemoryAck      bool
	Serviced       bool
	ProducedByVector bool

	// InstructionID links this request back to a memtile instruction-table
	// entry; 0 is the reserved bypass sentinel (spec.md §4.5/§9).
	InstructionID uint32

	// OriginatorMemTile records which memory tile issued this request when
	// it was forwarded across the NoC as a MEM_TILE_REQUEST (spec.md §4.5).
	// -1 (NoMemTile) means "not forwarded"; tile 0 is otherwise
	// indistinguishable from the zero value.
	OriginatorMemTile int
}

func (r *CacheRequest) Origin() Origin   { return r.origin }
func (r *CacheRequest) Handle(v Visitor) { v.VisitCacheRequest(r) }

// SetLineAddress clears the low offsetBits of Address and records the
// result, satisfying the line-address-monotonicity invariant (spec.md §8.2).
func (r *CacheRequest) SetLineAddress(offsetBits uint) {
	mask := ^uint64(0) << offsetBits
	r.LineAddress = r.Address & mask
}

// SetHome sets HomeTile/CacheBank exactly once; a second call panics, since
// spec.md requires these be "set exactly once, before leaving the tile's
// access director".
func (r *CacheRequest) SetHome(tile, bank int) {
	if r.homeTileSet || r.bankSet {
		msg := fmt.Sprintf("coyote: invariant violated: CacheRequest home/bank set twice (addr=0x%x)", r.Address)
		clog.Invariant(msg, "address", r.Address)
		panic(msg)
	}
	r.HomeTile = tile
	r.CacheBank = bank
	r.homeTileSet = true
	r.bankSet = true
}

// SetLayout sets the memory-controller-owned address decomposition exactly
// once.
func (r *CacheRequest) SetLayout(l MemoryLayout) {
	if r.Layout.Decoded {
		msg := fmt.Sprintf("coyote: invariant violated: CacheRequest layout set twice (addr=0x%x)", r.Address)
		clog.Invariant(msg, "address", r.Address)
		panic(msg)
	}
	l.Decoded = true
	r.Layout = l
}

// IsBypass reports whether this request was generated by a functional
// scalar access routed through a memory tile with no scratchpad
// interaction (spec.md §4.5/§9 — InstructionID == 0 is the reserved
// sentinel).
func (r *CacheRequest) IsBypass() bool { return r.InstructionID == 0 }

// CacheRequestBuilder builds a CacheRequest with the fluent, per-field
// WithX style used throughout the teacher's message builders
// (cgra/msg.go).
type CacheRequestBuilder struct {
	r CacheRequest
}

// NoMemTile is the "not forwarded" sentinel for OriginatorMemTile (spec.md
// §4.5's (uint16_t)-1 sentinel, carried over since tile 0 is otherwise a
// valid, indistinguishable value).
const NoMemTile = -1

func NewCacheRequest() CacheRequestBuilder {
	return CacheRequestBuilder{r: CacheRequest{OriginatorMemTile: NoMemTile}}
}

func (b CacheRequestBuilder) WithOrigin(o Origin) CacheRequestBuilder {
	b.r.origin = o
	return b
}

func (b CacheRequestBuilder) WithAddress(addr uint64) CacheRequestBuilder {
	b.r.Address = addr
	return b
}

func (b CacheRequestBuilder) WithSize(size int) CacheRequestBuilder {
	b.r.Size = size
	return b
}

func (b CacheRequestBuilder) WithKind(k CacheRequestKind) CacheRequestBuilder {
	b.r.Kind = k
	return b
}

func (b CacheRequestBuilder) WithDest(d Register) CacheRequestBuilder {
	b.r.Dest = d
	return b
}

func (b CacheRequestBuilder) WithSourceTile(tile int) CacheRequestBuilder {
	b.r.SourceTile = tile
	return b
}

func (b CacheRequestBuilder) WithProducedByVector(v bool) CacheRequestBuilder {
	b.r.ProducedByVector = v
	return b
}

func (b CacheRequestBuilder) WithInstructionID(id uint32) CacheRequestBuilder {
	b.r.InstructionID = id
	return b
}

// Build produces the CacheRequest and sets its line address using
// offsetBits (log2 of the cache line size), per the line-address
// invariant.
func (b CacheRequestBuilder) Build(offsetBits uint) *CacheRequest {
	r := b.r
	r.SetLineAddress(offsetBits)
	return &r
}
