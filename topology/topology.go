// Package topology wires tiles, memory tiles, DRAM controllers, and a
// NoC into a complete mesh. spec.md's Non-goals exclude "the topology
// parser/factory that reads a configuration file and instantiates
// components" (SPEC_FULL.md §1) — this package is the example/test
// wiring that stands in for it, grounded on
// _examples/sarchlab-zeonica/config/config.go's DeviceBuilder.Build:
// same validate-then-construct-then-connect shape, adapted from a single
// CGRA device to a mesh of many independently-built components.
package topology

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/dram"
	"github.com/sarchlab/coyote/membank"
	"github.com/sarchlab/coyote/memtile"
	"github.com/sarchlab/coyote/noc"
	"github.com/sarchlab/coyote/simconfig"
	"github.com/sarchlab/coyote/tile"
	"github.com/sarchlab/coyote/trace"
)

// Latencies carries the per-component timing knobs that spec.md's cache
// bank, memory controller, and memory tile sections (§4.3-§4.5) name but
// its §6 configuration table does not: those are parameters of the
// components themselves, not recognized simulation options, so they live
// here rather than on simconfig.Options.
type Latencies struct {
	BankHitLatency  uint64
	BankMissLatency uint64

	ControllerDataLatency uint64

	MemReqLatency     uint64
	OutgoingLatency   uint64
	IncomingMCLatency uint64

	NoCInjectionLatency uint64
	NoCLinkLatency      uint64
}

// DefaultLatencies returns small positive stand-in latencies exercising
// every latency-dependent code path without being tuned to any
// particular workload.
func DefaultLatencies() Latencies {
	return Latencies{
		BankHitLatency:        1,
		BankMissLatency:       10,
		ControllerDataLatency: 5,
		MemReqLatency:         1,
		OutgoingLatency:       1,
		IncomingMCLatency:     1,
		NoCInjectionLatency:   1,
		NoCLinkLatency:        1,
	}
}

// defaultTiming returns DRAM timing constants in the same ballpark as the
// dram package's own tests; a real deployment would source these from
// the memory part's datasheet, which is out of scope here.
func defaultTiming() dram.Timing {
	return dram.Timing{
		TRRDS: 2, TRRDL: 4, TRC: 28, TRP: 9, TRCDRD: 9, TRCDWR: 9,
		TRAS: 20, TRTP: 6, TWR: 10, TWL: 4, BL: 2, TCCDS: 2, TCCDL: 4,
		TRTW: 6, TWTRL: 6, BankGroupSize: 2,
	}
}

// Mesh is a fully wired instance of spec.md's architecture: opts.NumTiles
// core tiles, opts.NumMemoryCPUs memory tiles each paired with its own
// DRAM controller, all connected through one noc.NoC flavor chosen by
// opts.NoCModel.
type Mesh struct {
	Engine sim.Engine

	Tiles       []*tile.Tile
	MemTiles    []*memtile.Agent
	Controllers []*dram.MemoryController
	NoC         noc.NoC
}

func toTileHomePolicy(p simconfig.HomePolicy) tile.HomePolicy {
	if p == simconfig.FullyShared {
		return tile.FullyShared
	}
	return tile.TilePrivate
}

func toTileDataPolicy(p simconfig.DataMappingPolicy) tile.DataMappingPolicy {
	if p == simconfig.SetInterleaving {
		return tile.SetInterleaving
	}
	return tile.PageToBank
}

// coord returns node index i's (x, y) position in a row-major X*Y mesh.
func coord(i, xSize int) noc.Coord {
	return noc.Coord{X: i % xSize, Y: i / xSize}
}

// Build wires a complete Mesh from opts, failing fast the way spec.md §7
// requires of configuration errors (opts.Validate's error, unchanged,
// becomes Build's). sink receives every bank/memory-tile trace event when
// opts.Trace is set; a nil sink is treated as trace.Discard{} regardless of
// opts.Trace, so callers that never want tracing can simply pass nil.
func Build(engine sim.Engine, opts simconfig.Options, lat Latencies, sink trace.Sink) (*Mesh, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if sink == nil || !opts.Trace {
		sink = trace.Discard{}
	}

	meshSize := opts.NumTiles + opts.NumMemoryCPUs
	isMemTile := make(map[int]bool, opts.NumMemoryCPUs)
	for _, idx := range opts.MCPUsIndices {
		isMemTile[idx] = true
	}

	geom := tile.Geometry{
		LineSize:     opts.DCacheLine,
		SetsPerBank:  opts.DCacheSets,
		BanksPerTile: opts.NumL2BanksPerTile,
		NumTiles:     opts.NumTiles,
	}
	mcShift := geom.BlockOffsetBits()
	mcMask := uint64(0)
	if opts.NumMemoryCPUs > 1 {
		mcMask = uint64(1)<<uint(bits.Len(uint(opts.NumMemoryCPUs-1))) - 1
	}

	m := &Mesh{Engine: engine}

	tileCoords := make(map[int]noc.Coord)
	memCoords := make(map[int]noc.Coord)
	tileID, memID := 0, 0
	for i := 0; i < meshSize; i++ {
		if isMemTile[i] {
			memCoords[memID] = coord(i, opts.XSize)
			memID++
		} else {
			tileCoords[tileID] = coord(i, opts.XSize)
			tileID++
		}
	}

	var nocImpl noc.NoC
	switch opts.NoCModel {
	case simconfig.NoCSimple:
		nocImpl = noc.NewSimple(noc.SimpleConfig{
			Name:             "NoC",
			Engine:           engine,
			Freq:             1 * sim.GHz,
			InjectionLatency: lat.NoCInjectionLatency,
			LinkLatency:      lat.NoCLinkLatency,
			LatencyPerHop:    opts.LatencyPerHop,
			TileCoords:       tileCoords,
			MemTileCoords:    memCoords,
			McShift:          mcShift,
			McMask:           mcMask,
		})
	case simconfig.NoCDetailed:
		nocImpl = noc.NewDetailed(noc.DetailedConfig{
			Name: "NoC", Engine: engine, Freq: 1 * sim.GHz,
			McShift: mcShift, McMask: mcMask,
		})
	default:
		nocImpl = noc.NewFunctional(noc.FunctionalConfig{
			Name: "NoC", Engine: engine, Freq: 1 * sim.GHz,
			PacketLatency: opts.PacketLatency,
			McShift:       mcShift, McMask: mcMask,
		})
	}
	m.NoC = nocImpl

	for i := 0; i < opts.NumTiles; i++ {
		banks := make([]*membank.Bank, opts.NumL2BanksPerTile)
		for b := range banks {
			banks[b] = membank.NewBank(membank.Config{
				Name:                  fmt.Sprintf("Tile%d.Bank%d", i, b),
				Engine:                engine,
				Freq:                  1 * sim.GHz,
				TileID:                i,
				BankIndex:             b,
				LineSize:              opts.DCacheLine,
				NumSets:               opts.DCacheSets,
				Associativity:         opts.DCacheAssoc,
				HitLatency:            lat.BankHitLatency,
				MissLatency:           lat.BankMissLatency,
				MaxOutstandingMisses:  4,
				MaxInFlightWritebacks: 2,
				WritePolicy:           membank.WriteBack,
			})
			banks[b].SetTrace(sink)
		}

		director := tile.NewAccessDirector(tile.AccessDirectorConfig{
			TileID:     i,
			Geometry:   geom,
			HomePolicy: toTileHomePolicy(opts.L2SharingMode),
			DataPolicy: toTileDataPolicy(opts.TileDataMappingPolicy),
			McShift:    mcShift,
			McMask:     mcMask,
		})

		t := tile.NewTile(tile.TileConfig{
			Name:     fmt.Sprintf("Tile%d", i),
			ID:       i,
			Engine:   engine,
			Freq:     1 * sim.GHz,
			Director: director,
			Banks:    banks,
		})

		nocSide := nocImpl.ConnectTile(i, t.NoCPort)
		t.ConnectNoC(nocSide, nocImpl)

		for _, bank := range banks {
			bank.ConnectBottom(t.BankPort)
		}

		m.Tiles = append(m.Tiles, t)
	}

	for i := 0; i < meshSize; i++ {
		if !isMemTile[i] {
			continue
		}

		id := len(m.MemTiles)

		controller := dram.NewMemoryController(dram.Config{
			Name:     fmt.Sprintf("MemTile%d.Controller", id),
			Engine:   engine,
			Freq:     1 * sim.GHz,
			NumBanks: opts.NumMemoryBanks,
			Geometry: dram.Geometry{
				ColumnBits: 10,
				BankBits:   bankBits(opts.NumMemoryBanks),
				RankBits:   0,
				RowBits:    16,
				McShift:    int(mcShift),
				McMask:     mcMask,
			},
			Timing:        defaultTiming(),
			AddressPolicy: dram.AddressMappingPolicy(opts.AddressMappingPolicy),
			AccessPolicy:  dram.AccessFifo,
			CommandPolicy: dram.CommandFifo,
			DataLatency:   lat.ControllerDataLatency,
			WriteAllocate: true,
		})

		agent := memtile.NewAgent(memtile.Config{
			Name:              fmt.Sprintf("MemTile%d", id),
			Engine:            engine,
			Freq:              1 * sim.GHz,
			ID:                id,
			LineSize:          opts.DCacheLine,
			NumRegisters:      32,
			SPRegBytes:        128,
			MaxVVL:            65536,
			NumCores:          opts.NumCores,
			McShift:           mcShift,
			McMask:            mcMask,
			MemReqLatency:     lat.MemReqLatency,
			OutgoingLatency:   lat.OutgoingLatency,
			IncomingMCLatency: lat.IncomingMCLatency,
		})
		agent.SetTrace(sink)

		agent.ConnectMC(controller.Port)
		controller.ConnectPeer(agent.MCPort)

		nocSide := nocImpl.ConnectMemTile(id, agent.NoCPort, agent)
		agent.ConnectNoC(nocSide)

		m.MemTiles = append(m.MemTiles, agent)
		m.Controllers = append(m.Controllers, controller)
	}

	// Every core tile's VVL and scratchpad traffic is bound round-robin by
	// tile index: tile i to memory tile i mod the number of memory tiles.
	// Requests that carry an address (L2 misses, vector instructions)
	// resolve their memory tile per-address at runtime instead, so only
	// this fixed binding needs topology-time wiring (spec.md §9).
	for i := 0; i < opts.NumTiles; i++ {
		nocImpl.Bind(i, i%len(m.MemTiles))
	}

	return m, nil
}

// bankBits returns the number of address bits needed to select among n
// DRAM banks.
func bankBits(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
