// Command coyote runs a small Coyote mesh against a handful of synthetic
// memory accesses and prints a per-component counter report. It stands in
// for the driver program spec.md §1 excludes the full ISA/workload loader
// for (no ELF, no instruction fetch/decode) — the role api.Driver/main.go
// plays for the teacher's wafer-scale CGRA, adapted here to Coyote's
// Scheduler-driven tick loop instead of an akita-engine-run driver.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/sched"
	"github.com/sarchlab/coyote/simconfig"
	"github.com/sarchlab/coyote/topology"
	"github.com/sarchlab/coyote/trace"
	"github.com/tebeka/atexit"
)

// stdoutSink prints every trace event as the fixed-column line spec.md §6
// specifies; it stands in for whatever on-disk trace writer a deployment
// would plug in (spec.md §1 excludes the writer itself from scope).
type stdoutSink struct{}

func (stdoutSink) Emit(e trace.Event) {
	fmt.Printf("%d,%d,0x%x,%s,%d,0x%x\n", e.Timestamp, e.Core, e.PC, e.Type, e.ID, e.Address)
}

func main() {
	engine := sim.NewSerialEngine()

	opts := simconfig.Options{
		NumTiles:             4,
		NumCores:             4,
		NumThreadsPerCore:    1,
		NumMemoryCPUs:        1,
		NumMemoryControllers: 1,
		NumMemoryBanks:       8,
		XSize:                5,
		YSize:                1,
		MCPUsIndices:         []int{4},
		NumL2BanksPerTile:    2,
		DCacheSets:           64,
		DCacheAssoc:          4,
		DCacheLine:           64,
		ICacheSets:           64,
		ICacheAssoc:          2,
		ICacheLine:           64,
		ISA:                  "rv64gc",
		VArch:                "rvv1.0",
		NoCModel:             simconfig.NoCSimple,
		PacketLatency:        4,
		LatencyPerHop:        1,
		Trace:                true,
	}

	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "coyote: invalid configuration:", err)
		atexit.Exit(1)
	}

	mesh, err := topology.Build(engine, opts, topology.DefaultLatencies(), stdoutSink{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "coyote: failed to build mesh:", err)
		atexit.Exit(1)
	}

	scheduler := sched.NewScheduler(opts.NumCores)
	for _, t := range mesh.Tiles {
		scheduler.Register(t)
	}
	for _, mt := range mesh.MemTiles {
		scheduler.Register(mt)
	}
	for _, c := range mesh.Controllers {
		scheduler.Register(c)
	}
	if ticker, ok := mesh.NoC.(sched.Ticker); ok {
		scheduler.Register(ticker)
	}

	issueLoads(mesh)

	scheduler.RunUntilDone(1000)

	report := &sched.Report{}
	for i, t := range mesh.Tiles {
		for b, bank := range t.Banks {
			report.Add(
				fmt.Sprintf("Tile%d.Bank%d", i, b),
				[]sched.Row{
					{Label: "Hits", Value: bank.Counters.Hits},
					{Label: "Misses", Value: bank.Counters.Misses},
					{Label: "BytesRead", Value: bank.Counters.BytesRead},
					{Label: "BytesWritten", Value: bank.Counters.BytesWritten},
					{Label: "Writebacks", Value: bank.Counters.Writebacks},
				},
			)
		}
	}
	for i, mt := range mesh.MemTiles {
		report.Add(
			fmt.Sprintf("MemTile%d", i),
			[]sched.Row{
				{Label: "RequestsNoC", Value: mt.Counters.RequestsNoC},
				{Label: "RepliesNoC", Value: mt.Counters.RepliesNoC},
				{Label: "RequestsMC", Value: mt.Counters.RequestsMC},
			},
		)
	}
	report.WriteTo(os.Stdout)

	atexit.Exit(0)
}

// issueLoads injects one scalar load per core tile directly through
// Tile.PutAccess (the same port-bypassing entry point the functional
// executor shim would use). Each load goes to a distinct line and the mesh
// uses tile-private homes, so every load is a cold miss in its own tile's
// bank; no load hits or goes to a remote tile (spec.md §1 leaves workload
// loading out of scope; this is the synthetic stand-in).
func issueLoads(mesh *topology.Mesh) {
	for i, t := range mesh.Tiles {
		req := event.NewCacheRequest().
			WithOrigin(event.Origin{PC: 0x1000, Timestamp: 0, CoreID: i}).
			WithAddress(uint64(i) * 0x40).
			WithSize(8).
			WithKind(event.Load).
			WithSourceTile(i).
			Build(6)
		t.PutAccess(req, sim.VTimeInSec(0))
	}
}
