package memtile

import "github.com/sarchlab/coyote/event"

// createCacheRequest builds the per-element CacheRequest a vector memory
// instruction decomposes into, stamping the parent instruction's id so the
// reply can be matched back to its instruction-table entry (spec.md §4.5).
func createCacheRequest(addr uint64, size int, instr *event.MCPUInstruction) *event.CacheRequest {
	kind := event.Load
	if instr.Operation == event.VectorStore {
		kind = event.Store
	}
	return event.NewCacheRequest().
		WithOrigin(instr.Origin()).
		WithAddress(addr).
		WithSize(size).
		WithKind(kind).
		WithDest(instr.Dest).
		WithSourceTile(instr.SourceTile).
		WithProducedByVector(true).
		WithInstructionID(instr.InstructionID).
		Build(0)
}

// decomposeUnit implements the UNIT address pattern: one line-size request
// per line spanned by the vector, stride = line size (spec.md §4.5).
func decomposeUnit(instr *event.MCPUInstruction, vvl uint32, lineSize int) []*event.CacheRequest {
	elementsPerRequest := lineSize / instr.ElementWidth
	remaining := int(vvl)
	addr := instr.BaseAddress

	var reqs []*event.CacheRequest
	for remaining > 0 {
		reqs = append(reqs, createCacheRequest(addr, lineSize, instr))
		remaining -= elementsPerRequest
		addr += uint64(lineSize)
	}
	return reqs
}

// decomposeIndexed implements the NON_UNIT/ORDERED_INDEX/UNORDERED_INDEX
// address pattern: one 32-byte request per index, base+index[i] (spec.md
// §4.5: "identical address generation to NON_UNIT").
func decomposeIndexed(instr *event.MCPUInstruction) []*event.CacheRequest {
	var reqs []*event.CacheRequest
	for _, idx := range instr.Indices {
		reqs = append(reqs, createCacheRequest(instr.BaseAddress+idx, 32, instr))
	}
	return reqs
}

// elementsPerResponse is how many vector elements one cache-line-sized
// reply carries back to the scratchpad (spec.md §4.5's NON_UNIT formula).
func elementsPerResponse(lineSize, width int) int { return lineSize / width }

func ceilDiv(a, b int) int { return (a + b - 1) / b }
