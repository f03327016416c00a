// Package simconfig is the configuration-options surface spec.md §6 names:
// the struct fields and cross-field validation a topology builder consults
// before wiring components together. Parsing options in from a file or
// flag set is explicitly out of scope (spec.md §1); Options is the
// already-parsed result, grounded on config.DeviceBuilder's
// validate-on-Build style in _examples/sarchlab-zeonica/config/config.go.
package simconfig

import "fmt"

// NoCModel selects which noc flavor a topology wires in (spec.md §4.6).
type NoCModel int

const (
	NoCFunctional NoCModel = iota
	NoCSimple
	NoCDetailed
)

func (m NoCModel) String() string {
	switch m {
	case NoCFunctional:
		return "functional"
	case NoCSimple:
		return "simple"
	case NoCDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// HomePolicy mirrors tile.HomePolicy without importing it, so simconfig
// stays free of a dependency on the component packages it configures.
type HomePolicy int

const (
	TilePrivate HomePolicy = iota
	FullyShared
)

// DataMappingPolicy mirrors tile.DataMappingPolicy (spec.md §4.3).
type DataMappingPolicy int

const (
	PageToBank DataMappingPolicy = iota
	SetInterleaving
)

// AddressMappingPolicy mirrors dram.AddressMappingPolicy (spec.md §4.4).
type AddressMappingPolicy int

const (
	OpenPage AddressMappingPolicy = iota
)

// Options carries every recognized simulation option from spec.md §6's
// configuration table. Field names match the table's option names,
// CamelCased.
type Options struct {
	NumTiles          int
	NumCores          int
	NumThreadsPerCore int

	NumMemoryCPUs        int
	NumMemoryControllers int
	NumMemoryBanks       int

	XSize        int
	YSize        int
	MCPUsIndices []int

	NumL2BanksPerTile int

	DCacheSets int
	DCacheAssoc int
	DCacheLine int
	ICacheSets int
	ICacheAssoc int
	ICacheLine int

	ISA   string
	VArch string

	AddressMappingPolicy AddressMappingPolicy
	L2SharingMode        HomePolicy
	BankDataMappingPolicy DataMappingPolicy
	TileDataMappingPolicy DataMappingPolicy

	NoCModel        NoCModel
	PacketLatency   uint64
	LatencyPerHop   uint64

	Trace bool
}

// Validate applies every cross-field check spec.md §6/§7 names,
// returning the first violation found (spec.md §7: configuration errors
// "fail fast with a diagnostic naming the offending parameter"). Callers
// should treat a non-nil error as fatal before building a topology.
func (o Options) Validate() error {
	if o.NumTiles <= 0 {
		return fmt.Errorf("simconfig: num_tiles must be positive, got %d", o.NumTiles)
	}
	if o.NumCores <= 0 {
		return fmt.Errorf("simconfig: num_cores must be positive, got %d", o.NumCores)
	}
	if o.NumCores%o.NumTiles != 0 {
		return fmt.Errorf("simconfig: num_cores (%d) must be a multiple of num_tiles (%d)", o.NumCores, o.NumTiles)
	}
	if o.NumMemoryCPUs < 0 {
		return fmt.Errorf("simconfig: num_memory_cpus must not be negative, got %d", o.NumMemoryCPUs)
	}
	if o.XSize <= 0 || o.YSize <= 0 {
		return fmt.Errorf("simconfig: x_size and y_size must be positive, got %d x %d", o.XSize, o.YSize)
	}
	if o.XSize*o.YSize != o.NumTiles+o.NumMemoryCPUs {
		return fmt.Errorf(
			"simconfig: x_size*y_size (%d) must equal num_tiles+num_memory_cpus (%d)",
			o.XSize*o.YSize, o.NumTiles+o.NumMemoryCPUs,
		)
	}
	if len(o.MCPUsIndices) != o.NumMemoryCPUs {
		return fmt.Errorf(
			"simconfig: mcpus_indices has %d entries, want num_memory_cpus (%d)",
			len(o.MCPUsIndices), o.NumMemoryCPUs,
		)
	}
	seen := make(map[int]bool, len(o.MCPUsIndices))
	for _, idx := range o.MCPUsIndices {
		if idx < 0 || idx >= o.NumTiles+o.NumMemoryCPUs {
			return fmt.Errorf("simconfig: mcpus_indices entry %d out of mesh range [0,%d)", idx, o.NumTiles+o.NumMemoryCPUs)
		}
		if seen[idx] {
			return fmt.Errorf("simconfig: mcpus_indices entry %d listed more than once", idx)
		}
		seen[idx] = true
	}
	if o.NumL2BanksPerTile <= 0 {
		return fmt.Errorf("simconfig: num_l2_banks must be positive, got %d", o.NumL2BanksPerTile)
	}
	if o.DCacheLine <= 0 || o.ICacheLine <= 0 {
		return fmt.Errorf("simconfig: dcache/icache line size must be positive")
	}
	if o.NoCModel < NoCFunctional || o.NoCModel > NoCDetailed {
		return fmt.Errorf("simconfig: unrecognized noc_model %d", o.NoCModel)
	}
	if o.PacketLatency == 0 && o.NoCModel == NoCFunctional {
		return fmt.Errorf("simconfig: functional noc_model requires a positive packet_latency")
	}
	return nil
}
