package tile

// HomePolicy selects how a Tile resolves which tile owns a line
// (spec.md §4.3).
type HomePolicy int

const (
	TilePrivate HomePolicy = iota
	FullyShared
)

// DataMappingPolicy selects how a FullyShared home resolves an address to
// a (tile, bank) pair (spec.md §4.3).
type DataMappingPolicy int

const (
	PageToBank DataMappingPolicy = iota
	SetInterleaving
)

// resolveHomeTile applies policy to addr given geometry and the number of
// tiles participating in the shared mapping.
func resolveHomeTile(policy DataMappingPolicy, addr uint64, g Geometry, sourceTile int) int {
	switch policy {
	case SetInterleaving:
		shift := g.BlockOffsetBits()
		return int((addr >> shift) % uint64(g.NumTiles))
	case PageToBank:
		pageBits := g.BlockOffsetBits() + g.SetBits()
		return int((addr >> pageBits) % uint64(g.NumTiles))
	default:
		return sourceTile
	}
}

// resolveBankIndex picks the cache-bank within the home tile from the
// address bits remaining after the tile selection.
func resolveBankIndex(policy DataMappingPolicy, addr uint64, g Geometry) int {
	switch policy {
	case SetInterleaving:
		shift := g.BlockOffsetBits() + g.TileBits()
		return int((addr >> shift) % uint64(g.BanksPerTile))
	default: // PageToBank
		shift := g.BlockOffsetBits() + g.SetBits() + g.TileBits()
		return int((addr >> shift) % uint64(g.BanksPerTile))
	}
}
