package memtile

import (
	"math/bits"

	"github.com/sarchlab/coyote/tile"
)

// llcGeometry mirrors MemoryCPUWrapper::setLLCInfo's bit-width derivation
// for locating the LLC bank an address belongs to (spec.md §4.5: "LLC
// misses are forwarded to the MC; LLC fills return to the MCPU").
type llcGeometry struct {
	blockOffsetBits uint
	setBits         uint
	bankBits        uint
}

func newLLCGeometry(lineSize int, banks int, sizeKB uint64, assoc int) llcGeometry {
	numSets := (sizeKB * 1024) / uint64(assoc*lineSize)
	return llcGeometry{
		blockOffsetBits: log2Ceil(lineSize),
		setBits:         log2Ceil(int(numSets)),
		bankBits:        log2Ceil(banks),
	}
}

// numSets returns the number of sets a single LLC bank holds.
func (g llcGeometry) numSets() int {
	return 1 << g.setBits
}

func log2Ceil(n int) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len(uint(n - 1)))
}

// calculateBank reproduces MemoryCPUWrapper::calculateBank's left/right
// shift trick for both supported LLC data-mapping policies.
func calculateBank(addr uint64, g llcGeometry, policy tile.DataMappingPolicy) int {
	if g.bankBits == 0 {
		return 0
	}

	left := 64 - g.setBits - g.blockOffsetBits
	right := g.blockOffsetBits

	switch policy {
	case tile.SetInterleaving:
		left += g.setBits - g.bankBits
	case tile.PageToBank:
		right += g.setBits - g.bankBits
	}

	return int((addr << left) >> (left + right))
}
