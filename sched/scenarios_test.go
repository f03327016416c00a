package sched

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/dram"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/membank"
	"github.com/sarchlab/coyote/memtile"
	"github.com/sarchlab/coyote/simclock"
)

// fakeResponder stands in for whatever sits below a cache bank (a memory
// controller or another tile's bank): it echoes a CacheRequest back
// Serviced after a fixed latency, exercising the same ack protocol
// membank.Bank and dram.MemoryController use against their own peers.
type fakeResponder struct {
	*sim.TickingComponent

	Port     sim.Port
	Peer     sim.Port
	Latency  uint64
	Received int

	delay *simclock.DelayQueue
	now   uint64
}

func newFakeResponder(engine sim.Engine, name string, latency uint64) *fakeResponder {
	f := &fakeResponder{Latency: latency, delay: simclock.NewDelayQueue()}
	f.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, f)
	f.Port = sim.NewLimitNumMsgPort(f, 4, name+".Port")
	f.AddPort("Port", f.Port)
	return f
}

func (f *fakeResponder) ConnectPeer(peer sim.Port) { f.Peer = peer }

func (f *fakeResponder) Tick(now sim.VTimeInSec) bool {
	f.now = uint64(now)
	progress := false

	if msg := f.Port.Peek(); msg != nil {
		f.Port.Retrieve(now)
		f.Received++
		if wrapper, ok := msg.(*event.NoCMessage); ok {
			if cr, ok := wrapper.Payload.(*event.CacheRequest); ok {
				parent := cr
				f.delay.Schedule(f.now+f.Latency, func() {
					parent.Serviced = true
					f.reply(parent)
				})
			}
		}
		progress = true
	}

	if f.delay.Fire(f.now) {
		progress = true
	}
	return progress
}

func (f *fakeResponder) reply(r *event.CacheRequest) {
	if f.Port == nil || f.Peer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(f.Port).
		WithDst(f.Peer).
		WithSendTime(sim.VTimeInSec(f.now)).
		WithKind(event.MemoryAck).
		WithPayload(r).
		Build()
	_ = f.Port.Send(msg)
}

// fakeVASTile stands in for the core tile's scratchpad: it echoes a
// ScratchpadRequest back OperandReady after a fixed latency, the way
// tile.Scratchpad services an ALLOCATE/READ/WRITE instantly but the NoC
// round trip itself still costs cycles.
type fakeVASTile struct {
	*sim.TickingComponent

	Port    sim.Port
	Peer    sim.Port
	Latency uint64

	delay *simclock.DelayQueue
	now   uint64
}

func newFakeVASTile(engine sim.Engine, name string, latency uint64) *fakeVASTile {
	f := &fakeVASTile{Latency: latency, delay: simclock.NewDelayQueue()}
	f.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, f)
	f.Port = sim.NewLimitNumMsgPort(f, 4, name+".Port")
	f.AddPort("Port", f.Port)
	return f
}

func (f *fakeVASTile) ConnectPeer(peer sim.Port) { f.Peer = peer }

func (f *fakeVASTile) Tick(now sim.VTimeInSec) bool {
	f.now = uint64(now)
	progress := false

	if msg := f.Port.Peek(); msg != nil {
		f.Port.Retrieve(now)
		if wrapper, ok := msg.(*event.NoCMessage); ok {
			if sreq, ok := wrapper.Payload.(*event.ScratchpadRequest); ok {
				parent := sreq
				f.delay.Schedule(f.now+f.Latency, func() {
					parent.OperandReady = true
					f.reply(parent)
				})
			}
		}
		progress = true
	}

	if f.delay.Fire(f.now) {
		progress = true
	}
	return progress
}

func (f *fakeVASTile) reply(r *event.ScratchpadRequest) {
	if f.Port == nil || f.Peer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(f.Port).
		WithDst(f.Peer).
		WithSendTime(sim.VTimeInSec(f.now)).
		WithKind(event.ScratchpadCommandMsg).
		WithPayload(r).
		Build()
	_ = f.Port.Send(msg)
}

func newScenarioBank(engine sim.Engine) *membank.Bank {
	return membank.NewBank(membank.Config{
		Name:                  "Bank0",
		Engine:                engine,
		Freq:                  1 * sim.GHz,
		LineSize:              64,
		NumSets:               16,
		Associativity:         4,
		HitLatency:            1,
		MissLatency:           10,
		MaxOutstandingMisses:  4,
		MaxInFlightWritebacks: 2,
		WritePolicy:           membank.WriteBack,
	})
}

// These six Describe blocks are the end-to-end scenarios, one per row of
// the scenario table. The bank and UNIT-load scenarios wire real components
// together through a Scheduler; the VVL scenario calls the memory tile
// directly, and the DRAM scenario drives the access and command schedulers
// through its own cycle loop.
var _ = Describe("scenario: single-core LOAD miss round trip", func() {
	It("delivers the ack hit_latency+miss_latency+memory_ack_latency+1 cycles after issue", func() {
		engine := sim.NewSerialEngine()
		bank := newScenarioBank(engine)
		mem := newFakeResponder(engine, "Memory", 5)
		bank.ConnectBottom(mem.Port)
		mem.ConnectPeer(bank.BottomPort)

		s := NewScheduler(1)
		s.Register(bank)
		s.Register(mem)

		req := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Load).
			WithSize(64).
			WithInstructionID(1).
			Build(6)
		bank.PutEvent(req)

		s.RunThroughCycle(16)
		Expect(mem.Received).To(Equal(1))
		Expect(bank.Counters.BytesRead).To(Equal(uint64(0)))

		s.RunThroughCycle(17)
		Expect(req.Serviced).To(BeTrue())
		Expect(bank.Counters.Misses).To(Equal(uint64(1)))
		Expect(bank.Counters.BytesRead).To(Equal(uint64(64)))
	})
})

var _ = Describe("scenario: two LOADs to the same line coalesce onto one miss", func() {
	It("sends exactly one downstream request and acks both LOADs together", func() {
		engine := sim.NewSerialEngine()
		bank := newScenarioBank(engine)
		mem := newFakeResponder(engine, "Memory", 5)
		bank.ConnectBottom(mem.Port)
		mem.ConnectPeer(bank.BottomPort)

		s := NewScheduler(1)
		s.Register(bank)
		s.Register(mem)

		first := event.NewCacheRequest().
			WithAddress(0x1000).WithKind(event.Load).WithSize(4).WithInstructionID(1).
			Build(6)
		bank.PutEvent(first)

		s.RunThroughCycle(2)

		second := event.NewCacheRequest().
			WithAddress(0x1020).WithKind(event.Load).WithSize(4).WithInstructionID(2).
			Build(6)
		bank.PutEvent(second)

		s.RunThroughCycle(30)

		Expect(mem.Received).To(Equal(1))
		Expect(bank.Counters.MissesOnAlreadyPending).To(Equal(uint64(1)))
		Expect(first.Serviced).To(BeTrue())
		Expect(second.Serviced).To(BeTrue())
	})
})

var _ = Describe("scenario: LOAD hits a still-pending WRITEBACK to the same line", func() {
	It("acks the LOAD one cycle later without ever going downstream", func() {
		engine := sim.NewSerialEngine()
		bank := newScenarioBank(engine)

		s := NewScheduler(1)
		s.Register(bank)

		store := event.NewCacheRequest().
			WithAddress(0x1000).WithKind(event.Writeback).WithSize(4).WithInstructionID(1).
			Build(6)
		bank.PutEvent(store)

		load := event.NewCacheRequest().
			WithAddress(0x1000).WithKind(event.Load).WithSize(4).WithInstructionID(2).
			Build(6)
		bank.PutEvent(load)

		Expect(bank.Counters.HitsOnStore).To(Equal(uint64(1)))
		Expect(load.Serviced).To(BeFalse())

		s.RunThroughCycle(1)
		Expect(load.Serviced).To(BeTrue())
	})
})

var _ = Describe("scenario: VVL set computes the effective vector length", func() {
	It("returns min(elements_per_sp, AVL) << LMUL", func() {
		a := memtile.NewAgent(memtile.Config{
			Name: "MemTile0", Engine: sim.NewSerialEngine(), Freq: 1 * sim.GHz,
			ID: 0, LineSize: 64, NumRegisters: 32, SPRegBytes: 128, MaxVVL: 65536,
			NumCores: 4, McShift: 0, McMask: 0,
			MemReqLatency: 1, OutgoingLatency: 1, IncomingMCLatency: 1,
		})

		set := &event.MCPUSetVVL{AVL: 17, ElementWidth: 8, LMUL: 0, CoreID: 0}
		a.VisitMCPUSetVVL(set)

		Expect(set.VVL).To(Equal(uint32(16)))
		Expect(set.Serviced).To(BeTrue())
	})
})

var _ = Describe("scenario: a UNIT vector LOAD decomposes into one MC request and one SP-WRITE", func() {
	It("emits exactly one memory request, one SP-WRITE, and retires the instruction", func() {
		engine := sim.NewSerialEngine()
		a := memtile.NewAgent(memtile.Config{
			Name: "MemTile0", Engine: engine, Freq: 1 * sim.GHz,
			ID: 0, LineSize: 64, NumRegisters: 32, SPRegBytes: 128, MaxVVL: 65536,
			NumCores: 4, McShift: 0, McMask: 0,
			MemReqLatency: 1, OutgoingLatency: 1, IncomingMCLatency: 1,
		})
		mc := newFakeResponder(engine, "MC", 2)
		vas := newFakeVASTile(engine, "VASTile", 2)

		a.ConnectMC(mc.Port)
		mc.ConnectPeer(a.MCPort)
		a.ConnectNoC(vas.Port)
		vas.ConnectPeer(a.NoCPort)

		s := NewScheduler(1)
		s.Register(a)
		s.Register(mc)
		s.Register(vas)

		set := &event.MCPUSetVVL{AVL: 8, ElementWidth: 8, LMUL: 0, CoreID: 0}
		a.VisitMCPUSetVVL(set)
		Expect(set.VVL).To(Equal(uint32(8)))

		instr := event.NewMCPUInstruction(event.Origin{CoreID: 0})
		instr.BaseAddress = 0x2000
		instr.Operation = event.VectorLoad
		instr.SubOperation = event.Unit
		instr.ElementWidth = 8
		instr.Dest = event.Register{ID: 3, Class: event.RegisterVector}
		a.VisitMCPUInstruction(instr)

		s.RunThroughCycle(40)

		Expect(mc.Received).To(Equal(1))
		Expect(a.Counters.RequestsMC).To(Equal(1))
		// One ALLOCATE for register 3 plus the one SP-WRITE.
		Expect(a.Counters.ScratchpadRequests).To(Equal(2))
		// The instruction table is empty again, so MCPU_REQUESTs are accepted.
		Expect(a.CanAccept(event.MCPURequest)).To(BeTrue())
	})
})

var _ = Describe("scenario: two OPEN_PAGE reads to the same row, then one to a different row", func() {
	It("issues ACT, RD, RD, PRE, ACT, RD", func() {
		timing := dram.Timing{
			TRRDS: 2, TRRDL: 2, TRC: 6, TRP: 2, TRCDRD: 2, TRCDWR: 2,
			TRAS: 4, TRTP: 2, TWR: 2, TWL: 1, BL: 1, TCCDS: 1, TCCDL: 1,
			TRTW: 2, TWTRL: 2,
		}
		banks := []*dram.MemoryBank{{Index: 0}}
		access := dram.NewAccessScheduler(dram.AccessFifo, 1)
		commands := dram.NewCommandScheduler(dram.CommandFifo, timing)

		r1 := event.NewCacheRequest().WithKind(event.Load).Build(0)
		r1.SetLayout(event.MemoryLayout{Bank: 0, Row: 5})
		r2 := event.NewCacheRequest().WithKind(event.Load).Build(0)
		r2.SetLayout(event.MemoryLayout{Bank: 0, Row: 5})
		r3 := event.NewCacheRequest().WithKind(event.Load).Build(0)
		r3.SetLayout(event.MemoryLayout{Bank: 0, Row: 7})
		access.Enqueue(r1)
		access.Enqueue(r2)
		access.Enqueue(r3)

		var sequence []dram.CommandKind
		completed := 0
		for now := uint64(0); now < 200 && completed < 3; now++ {
			cmd, ok := commands.Issue(banks, access, now)
			if !ok {
				continue
			}
			sequence = append(sequence, cmd.Kind)
			banks[cmd.Bank].Apply(cmd.Kind, cmd.Request.Layout.Row)
			if cmd.Kind == dram.Read || cmd.Kind == dram.Write {
				access.Complete(cmd.Bank, cmd.Request)
				completed++
			}
		}

		Expect(sequence).To(Equal([]dram.CommandKind{
			dram.Activate, dram.Read, dram.Read, dram.Precharge, dram.Activate, dram.Read,
		}))
	})
})
