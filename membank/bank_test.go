package membank

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
)

func newTestBank(engine sim.Engine) *Bank {
	return NewBank(Config{
		Name:                  "Bank",
		Engine:                engine,
		Freq:                  1 * sim.GHz,
		LineSize:              64,
		NumSets:               16,
		Associativity:         4,
		HitLatency:            1,
		MissLatency:           10,
		MaxOutstandingMisses:  4,
		MaxInFlightWritebacks: 2,
		WritePolicy:           WriteBack,
	})
}

func tickUntil(b *Bank, upTo uint64) {
	for c := b.now + 1; c <= upTo; c++ {
		b.Tick(sim.VTimeInSec(c))
	}
}

var _ = Describe("Bank", func() {
	var (
		engine sim.Engine
		bank   *Bank
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		bank = newTestBank(engine)
	})

	It("misses and sends exactly one request downstream after miss latency", func() {
		req := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(1).
			Build(bank.cfg.offsetBits())

		bank.PutEvent(req)

		tickUntil(bank, 11)
		Expect(bank.Counters.Misses).To(Equal(uint64(1)))
		Expect(bank.mshr.size()).To(Equal(1))
	})

	It("coalesces a second load to the same line into the pending miss", func() {
		line := uint64(0x2000)

		first := event.NewCacheRequest().
			WithAddress(line).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(1).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(first)
		tickUntil(bank, 2)

		second := event.NewCacheRequest().
			WithAddress(line + 4).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(2).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(second)
		tickUntil(bank, 3)

		Expect(bank.Counters.MissesOnAlreadyPending).To(Equal(uint64(1)))
		Expect(bank.mshr.size()).To(Equal(1))

		entry, ok := bank.mshr.lookup(first.LineAddress)
		Expect(ok).To(BeTrue())
		Expect(entry.requests).To(HaveLen(2))

		ack := event.NewCacheRequest().
			WithAddress(line).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(1).
			Build(bank.cfg.offsetBits())
		ack.Serviced = true
		bank.PutEvent(ack)

		Expect(first.Serviced).To(BeTrue())
		Expect(second.Serviced).To(BeTrue())
		Expect(bank.mshr.size()).To(Equal(0))
	})

	It("acknowledges a load that hits a pending writeback to the same line without waiting", func() {
		wb := event.NewCacheRequest().
			WithAddress(0x3000).
			WithKind(event.Writeback).
			WithSize(4).
			WithInstructionID(1).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(wb)

		load := event.NewCacheRequest().
			WithAddress(0x3000).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(2).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(load)

		Expect(bank.Counters.HitsOnStore).To(Equal(uint64(1)))

		tickUntil(bank, 1)
		Expect(load.Serviced).To(BeTrue())
	})

	It("does not short-circuit a load against a plain pending store to the same line", func() {
		store := event.NewCacheRequest().
			WithAddress(0x3000).
			WithKind(event.Store).
			WithSize(4).
			WithInstructionID(1).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(store)

		load := event.NewCacheRequest().
			WithAddress(0x3000).
			WithKind(event.Load).
			WithSize(4).
			WithInstructionID(2).
			Build(bank.cfg.offsetBits())
		bank.PutEvent(load)

		Expect(bank.Counters.HitsOnStore).To(Equal(uint64(0)))
	})

	It("evicts the LRU way of a set on a miss fill and counts the eviction", func() {
		base := uint64(0x10000)
		offsetBits := bank.cfg.offsetBits()
		lineStride := uint64(1) << offsetBits
		setStride := lineStride << bank.cfg.setBits()

		for i := 0; i < bank.cfg.Associativity; i++ {
			addr := base + uint64(i)*setStride
			req := event.NewCacheRequest().
				WithAddress(addr).
				WithKind(event.Load).
				WithInstructionID(uint32(i + 1)).
				Build(offsetBits)
			bank.PutEvent(req)
			tickUntil(bank, uint64(i)*20+20)

			ack := event.NewCacheRequest().
				WithAddress(addr).
				WithKind(event.Load).
				WithInstructionID(uint32(i + 1)).
				Build(offsetBits)
			ack.Serviced = true
			bank.PutEvent(ack)
		}

		Expect(bank.Counters.Misses).To(Equal(uint64(bank.cfg.Associativity)))

		extra := base + uint64(bank.cfg.Associativity)*setStride
		req := event.NewCacheRequest().
			WithAddress(extra).
			WithKind(event.Load).
			WithInstructionID(99).
			Build(offsetBits)
		bank.PutEvent(req)
		tickUntil(bank, 200)

		ack := event.NewCacheRequest().
			WithAddress(extra).
			WithKind(event.Load).
			WithInstructionID(99).
			Build(offsetBits)
		ack.Serviced = true
		bank.PutEvent(ack)

		Expect(bank.Counters.NonVectorEvictsNonVector + bank.Counters.NonVectorEvictsVector + bank.Counters.NonVectorEvictsMixed).To(Equal(uint64(1)))
	})
})
