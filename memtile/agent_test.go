package memtile

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
)

func newTestAgent() *Agent {
	return NewAgent(Config{
		Name:              "MemTile0",
		Engine:            sim.NewSerialEngine(),
		Freq:              1 * sim.GHz,
		ID:                0,
		LineSize:          64,
		NumRegisters:      32,
		SPRegBytes:        128,
		MaxVVL:            65536,
		NumCores:          4,
		McShift:           0,
		McMask:            0,
		MemReqLatency:     1,
		OutgoingLatency:   1,
		IncomingMCLatency: 1,
	})
}

var _ = Describe("Agent VVL protocol", func() {
	It("computes VVL = min(elements_per_sp, AVL) << LMUL", func() {
		a := newTestAgent()

		set := &event.MCPUSetVVL{AVL: 17, ElementWidth: 8, LMUL: 0, CoreID: 0}
		a.VisitMCPUSetVVL(set)

		Expect(set.VVL).To(Equal(uint32(16)))
		Expect(set.Serviced).To(BeTrue())
		Expect(a.schedOutgoing).To(HaveLen(1))
		Expect(a.schedOutgoing[0].Kind).To(Equal(event.MCPURequest))
	})
})

var _ = Describe("Agent vector UNIT load decomposition", func() {
	It("emits exactly one MC request and one SP-WRITE, then retires the instruction", func() {
		a := newTestAgent()

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

		Expect(a.schedMemReq).To(HaveLen(1))
		Expect(a.table.Len()).To(Equal(1))

		tx, ok := a.table.Get(instr.InstructionID)
		Expect(ok).To(BeTrue())
		Expect(tx.RemainingCacheRequests).To(Equal(1))
		Expect(tx.RemainingScratchpadReplies).To(Equal(1))

		// An ALLOCATE must have been sent for the first use of register 3.
		Expect(a.sp.Status(3)).To(Equal(AllocSent))

		// The ALLOCATE's ack lands, freeing the deferred SP-WRITE.
		allocAck := event.NewScratchpadRequest(event.Origin{}, event.Allocate, 3, 0, instr.InstructionID)
		a.VisitScratchpadRequest(allocAck)
		Expect(a.sp.Status(3)).To(Equal(Ready))

		req := a.schedMemReq[0]
		a.schedMemReq = nil
		a.handleReturnFromMC(req)

		Expect(a.table.Len()).To(Equal(0))
		// [0] MCPU_REQUEST (VVL reply), [1] SCRATCHPAD_COMMAND (ALLOCATE),
		// [2] SCRATCHPAD_COMMAND (the SP-WRITE carrying the loaded line).
		Expect(a.schedOutgoing).To(HaveLen(3))
		Expect(a.schedOutgoing[2].Kind).To(Equal(event.ScratchpadCommandMsg))

		write, ok := a.schedOutgoing[2].Payload.(*event.ScratchpadRequest)
		Expect(ok).To(BeTrue())
		Expect(write.Command).To(Equal(event.Write))
		Expect(write.OperandReady).To(BeTrue())
	})
})

var _ = Describe("Agent LLC integration", func() {
	newLLCAgent := func() *Agent {
		return NewAgent(Config{
			Name:              "MemTile0",
			Engine:            sim.NewSerialEngine(),
			Freq:              1 * sim.GHz,
			ID:                0,
			LineSize:          64,
			NumRegisters:      32,
			SPRegBytes:        128,
			MaxVVL:            65536,
			NumCores:          4,
			McShift:           0,
			McMask:            0,
			LLCEnabled:        true,
			LLCBanks:          1,
			LLCSizeKB:         1,
			LLCAssoc:          4,
			LLCHitLatency:     2,
			MemReqLatency:     1,
			OutgoingLatency:   1,
			IncomingMCLatency: 1,
		})
	}

	It("forwards to the MC on the first access to a line and counts an LLC miss", func() {
		a := newLLCAgent()

		req := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Load).
			WithInstructionID(0).
			Build(6)
		a.schedMemReq = append(a.schedMemReq, req)

		a.pumpMemReq()
		a.delay.Fire(a.now + a.cfg.MemReqLatency)

		Expect(a.Counters.RequestsLLC).To(Equal(1))
		Expect(a.Counters.LLCMisses).To(Equal(1))
		Expect(a.Counters.LLCHits).To(Equal(0))
	})

	It("installs a fill on the MC reply and serves the next access as an LLC hit", func() {
		a := newLLCAgent()

		req := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Load).
			WithInstructionID(0).
			Build(6)
		a.handleReturnFromMC(req)

		second := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Load).
			WithInstructionID(0).
			Build(6)
		a.schedMemReq = append(a.schedMemReq, second)
		a.pumpMemReq()
		a.delay.Fire(a.now + a.cfg.MemReqLatency)

		Expect(a.Counters.LLCHits).To(Equal(1))
		Expect(a.Counters.RequestsMC).To(Equal(0))
	})

	It("does not fill the LLC for a writeback", func() {
		a := newLLCAgent()

		wb := event.NewCacheRequest().
			WithAddress(0x1000).
			WithKind(event.Writeback).
			WithInstructionID(0).
			Build(6)
		a.handleReturnFromMC(wb)

		Expect(a.llc[0].Lookup(wb.LineAddress)).To(BeFalse())
	})
})

var _ = Describe("Agent inter-memtile forwarding", func() {
	It("forwards a bypass request whose address belongs to a different memory tile", func() {
		a := newTestAgent()
		a.cfg.McShift = 0
		a.cfg.McMask = 0x3 // 4 memory tiles, selected by the low 2 bits

		req := event.NewCacheRequest().
			WithAddress(0x1). // selects memory tile 1, not tile 0
			WithKind(event.Load).
			WithInstructionID(0).
			Build(0)

		a.VisitCacheRequest(req)

		Expect(a.schedMemReq).To(BeEmpty())
		Expect(a.schedOutgoing).To(HaveLen(1))
		Expect(a.schedOutgoing[0].Kind).To(Equal(event.MemTileRequest))
		Expect(req.OriginatorMemTile).To(Equal(0))
	})
})
