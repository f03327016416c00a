// Package tile implements the per-tile address-decoding and routing layer
// of spec.md §4.3/§4.7: a Tile owns an AccessDirector (home-tile/bank
// resolution) and an Arbiter (fair NoC injection), grounded on
// _examples/sarchlab-zeonica/config/config.go's tile-wiring shape and
// cgra/cgra.go's Side/Tile conventions.
package tile

import "math/bits"

// Geometry carries the address-bit-width breakdown derived from a
// platform's line size and tile/bank counts (spec.md §4.3/§4.7: "tag, set,
// bank, tile-bit widths derived from geometry").
type Geometry struct {
	LineSize       int
	SetsPerBank    int
	BanksPerTile   int
	NumTiles       int
}

func log2Ceil(n int) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len(uint(n - 1)))
}

func (g Geometry) BlockOffsetBits() uint { return log2Ceil(g.LineSize) }
func (g Geometry) SetBits() uint         { return log2Ceil(g.SetsPerBank) }
func (g Geometry) BankBits() uint        { return log2Ceil(g.BanksPerTile) }
func (g Geometry) TileBits() uint        { return log2Ceil(g.NumTiles) }

// LineAddress clears the low BlockOffsetBits of addr.
func (g Geometry) LineAddress(addr uint64) uint64 {
	return addr &^ ((uint64(1) << g.BlockOffsetBits()) - 1)
}
