package topology_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/sched"
	"github.com/sarchlab/coyote/simconfig"
	"github.com/sarchlab/coyote/topology"
	"github.com/sarchlab/coyote/trace"
)

func validOptions() simconfig.Options {
	return simconfig.Options{
		NumTiles:          4,
		NumCores:          4,
		NumThreadsPerCore: 1,
		NumMemoryCPUs:     1,
		NumMemoryBanks:    8,
		XSize:             5,
		YSize:             1,
		MCPUsIndices:      []int{4},
		NumL2BanksPerTile: 2,
		DCacheSets:        64,
		DCacheAssoc:       4,
		DCacheLine:        64,
		ICacheSets:        64,
		ICacheAssoc:       2,
		ICacheLine:        64,
		NoCModel:          simconfig.NoCSimple,
		PacketLatency:     4,
		LatencyPerHop:     1,
	}
}

type recordingSink struct{ events []trace.Event }

func (r *recordingSink) Emit(e trace.Event) { r.events = append(r.events, e) }

var _ = Describe("Build", func() {
	It("rejects invalid options before constructing anything", func() {
		opts := validOptions()
		opts.NumTiles = 0

		mesh, err := topology.Build(sim.NewSerialEngine(), opts, topology.DefaultLatencies(), nil)

		Expect(err).To(HaveOccurred())
		Expect(mesh).To(BeNil())
	})

	It("wires a complete mesh matching the requested tile/memory-tile counts", func() {
		opts := validOptions()

		mesh, err := topology.Build(sim.NewSerialEngine(), opts, topology.DefaultLatencies(), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(mesh.Tiles).To(HaveLen(opts.NumTiles))
		Expect(mesh.MemTiles).To(HaveLen(opts.NumMemoryCPUs))
		Expect(mesh.Controllers).To(HaveLen(opts.NumMemoryCPUs))
		Expect(mesh.NoC).NotTo(BeNil())

		for _, t := range mesh.Tiles {
			Expect(t.Banks).To(HaveLen(opts.NumL2BanksPerTile))
		}
	})

	It("hands a local load to one of the issuing tile's own banks", func() {
		opts := validOptions()
		engine := sim.NewSerialEngine()

		mesh, err := topology.Build(engine, opts, topology.DefaultLatencies(), nil)
		Expect(err).NotTo(HaveOccurred())

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

		req := event.NewCacheRequest().
			WithOrigin(event.Origin{PC: 0x1000, CoreID: 0}).
			WithAddress(0x40).
			WithSize(8).
			WithKind(event.Load).
			WithSourceTile(0).
			Build(6)
		mesh.Tiles[0].PutAccess(req, sim.VTimeInSec(0))

		scheduler.RunThroughCycle(50)

		total := uint64(0)
		for _, bank := range mesh.Tiles[0].Banks {
			total += bank.Counters.Hits + bank.Counters.Misses
		}
		Expect(total).To(BeNumerically(">", 0))
	})

	It("routes trace events to the supplied sink when enabled", func() {
		opts := validOptions()
		opts.Trace = true
		engine := sim.NewSerialEngine()
		sink := &recordingSink{}

		mesh, err := topology.Build(engine, opts, topology.DefaultLatencies(), sink)
		Expect(err).NotTo(HaveOccurred())

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

		req := event.NewCacheRequest().
			WithOrigin(event.Origin{PC: 0x2000, CoreID: 1}).
			WithAddress(0x80).
			WithSize(8).
			WithKind(event.Load).
			WithSourceTile(1).
			Build(6)
		mesh.Tiles[1].PutAccess(req, sim.VTimeInSec(0))

		scheduler.RunThroughCycle(50)

		Expect(sink.events).NotTo(BeEmpty())
	})

	It("discards trace events when the option is off even with a sink supplied", func() {
		opts := validOptions()
		opts.Trace = false
		sink := &recordingSink{}

		mesh, err := topology.Build(sim.NewSerialEngine(), opts, topology.DefaultLatencies(), sink)
		Expect(err).NotTo(HaveOccurred())

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

		req := event.NewCacheRequest().
			WithOrigin(event.Origin{PC: 0x3000, CoreID: 2}).
			WithAddress(0xc0).
			WithSize(8).
			WithKind(event.Load).
			WithSourceTile(2).
			Build(6)
		mesh.Tiles[2].PutAccess(req, sim.VTimeInSec(0))

		scheduler.RunThroughCycle(50)

		Expect(sink.events).To(BeEmpty())
	})
})
