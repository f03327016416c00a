// Package memtile implements the memory-tile agent ("MCPU"): the hardest
// subsystem spec.md names, decomposing vector memory instructions into
// cache-line-sized requests, running the VVL and scratchpad-allocation
// protocols, and forwarding cache requests to whichever memory tile's
// address range actually owns them (spec.md §4.5).
package memtile

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/clog"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/membank"
	"github.com/sarchlab/coyote/simclock"
	"github.com/sarchlab/coyote/tile"
	"github.com/sarchlab/coyote/trace"
)

// Config carries every MemoryCPUWrapper parameter (spec.md §4.5,
// SPEC_FULL.md §4.5).
type Config struct {
	Name   string
	Engine sim.Engine
	Freq   sim.Freq

	ID int

	LineSize     int
	NumRegisters int
	SPRegBytes   int
	MaxVVL       uint32
	NumCores     int

	McShift uint
	McMask  uint64

	LLCEnabled    bool
	LLCBanks      int
	LLCPolicy     tile.DataMappingPolicy
	LLCSizeKB     uint64
	LLCAssoc      int
	LLCHitLatency uint64

	MemReqLatency     uint64
	OutgoingLatency   uint64
	IncomingMCLatency uint64
}

// Counters mirror MemoryCPUWrapper's sparta::Counter set (spec.md §4.5).
type Counters struct {
	RequestsNoC          int
	RepliesNoC           int
	RepliesWaitNoC       int
	Vector               int
	Scalar               int
	Control              int
	ScratchpadRequests   int
	SendOtherMemTile     int
	ReceivedOtherMemTile int
	RequestsMC           int
	RequestsLLC          int
	LLCHits              int
	LLCMisses            int
}

// Agent is the memory-tile MCPU ticking component.
type Agent struct {
	*sim.TickingComponent

	event.NoOpVisitor

	cfg Config

	vvl   *VVLTable
	table *InstructionTable
	sp    *ScratchpadTracker

	llcGeom llcGeometry
	llc     []*membank.TagArray

	schedMemReq     []*event.CacheRequest
	memReqBusy      bool
	schedOutgoing   []*event.NoCMessage
	outgoingBusy    bool
	schedIncomingMC []*event.CacheRequest
	incomingMCBusy  bool

	delay *simclock.DelayQueue

	NoCPort sim.Port
	NoCPeer sim.Port
	MCPort  sim.Port
	MCPeer  sim.Port

	Counters Counters

	// Trace receives one Event per mem_tile_allocate/mem_tile_forward the
	// way original_source's MemoryCPUWrapper.cpp traces those points;
	// defaults to trace.Discard (spec.md §6).
	Trace trace.Sink

	now uint64
}

func NewAgent(cfg Config) *Agent {
	a := &Agent{
		cfg:   cfg,
		vvl:   NewVVLTable(cfg.NumCores),
		table: NewInstructionTable(),
		sp:    NewScratchpadTracker(cfg.NumRegisters),
		delay: simclock.NewDelayQueue(),
		Trace: trace.Discard{},
	}
	a.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, a)

	a.NoCPort = sim.NewLimitNumMsgPort(a, 4, cfg.Name+".NoC")
	a.AddPort("NoC", a.NoCPort)
	a.MCPort = sim.NewLimitNumMsgPort(a, 4, cfg.Name+".MC")
	a.AddPort("MC", a.MCPort)

	if cfg.LLCEnabled {
		a.llcGeom = newLLCGeometry(cfg.LineSize, cfg.LLCBanks, cfg.LLCSizeKB, cfg.LLCAssoc)
		a.llc = make([]*membank.TagArray, cfg.LLCBanks)
		for i := range a.llc {
			a.llc[i] = membank.NewTagArray(cfg.LineSize, a.llcGeom.numSets(), cfg.LLCAssoc)
		}
	}

	return a
}

func (a *Agent) ConnectNoC(peer sim.Port) { a.NoCPeer = peer }
func (a *Agent) ConnectMC(peer sim.Port)  { a.MCPeer = peer }

// SetTrace installs sink as the destination for this memory tile's
// mem_tile_allocate/mem_tile_forward events, replacing trace.Discard.
func (a *Agent) SetTrace(sink trace.Sink) { a.Trace = sink }

// CanAccept implements the NoC's per-cycle admission-control poll: the
// memory tile refuses MCPU_REQUEST traffic while any vector instruction is
// in flight, but always accepts everything else (spec.md §4.5:
// "can_accept... For messages of class MCPU_REQUEST, the memory tile
// refuses while any instruction is in its table").
func (a *Agent) CanAccept(kind event.MessageKind) bool {
	if kind == event.MCPURequest {
		return a.table.Len() == 0
	}
	return true
}

func (a *Agent) Tick(now sim.VTimeInSec) bool {
	a.now = uint64(now)
	progress := false

	if msg := a.NoCPort.Peek(); msg != nil {
		a.NoCPort.Retrieve(now)
		a.dispatch(msg)
		progress = true
	}
	if msg := a.MCPort.Peek(); msg != nil {
		a.MCPort.Retrieve(now)
		a.receiveFromMC(msg)
		progress = true
	}

	if a.pumpMemReq() {
		progress = true
	}
	if a.pumpOutgoing() {
		progress = true
	}
	if a.pumpIncomingMC() {
		progress = true
	}

	if a.delay.Fire(a.now) {
		progress = true
	}

	return progress
}

func (a *Agent) dispatch(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	a.Counters.RequestsNoC++
	wrapper.Payload.Handle(a)
}

func (a *Agent) receiveFromMC(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	cr, ok := wrapper.Payload.(*event.CacheRequest)
	if !ok {
		return
	}
	a.schedIncomingMC = append(a.schedIncomingMC, cr)
}

// pumpMemReq drains one request per MemReqLatency cycles toward the
// LLC/memory controller (spec.md §4.5's sched_mem_req bus). When an LLC
// slice is enabled, the request is first looked up in the bank
// calculateBank picks for its address (spec.md §4.5's LLC integration):
// a hit completes after LLCHitLatency cycles without ever reaching the
// MC; a miss falls
// through to sendToMC, and the fill is installed once the MC's reply
// comes back through handleReturnFromMC.
func (a *Agent) pumpMemReq() bool {
	if a.memReqBusy || len(a.schedMemReq) == 0 {
		return false
	}
	req := a.schedMemReq[0]
	a.schedMemReq = a.schedMemReq[1:]
	a.memReqBusy = true
	a.delay.Schedule(a.now+a.cfg.MemReqLatency, func() {
		a.memReqBusy = false

		if a.cfg.LLCEnabled {
			a.Counters.RequestsLLC++
			bank := calculateBank(req.Address, a.llcGeom, a.cfg.LLCPolicy)
			if a.llc[bank].Lookup(req.LineAddress) {
				a.Counters.LLCHits++
				a.Trace.Emit(trace.Event{
					Timestamp: a.now, Core: req.Origin().CoreID, PC: req.Origin().PC,
					Type: llcTraceKind(req.Kind), Address: req.Address,
				})
				parent := req
				parent.MemoryAck = true
				a.delay.Schedule(a.now+a.cfg.LLCHitLatency, func() {
					a.completeMemReq(parent)
				})
				return
			}
			a.Counters.LLCMisses++
		}

		a.sendToMC(req)
	})
	return true
}

// llcTraceKind maps a CacheRequest's kind to the llc_read/llc_write trace
// event spec.md §6 names for an LLC access.
func llcTraceKind(kind event.CacheRequestKind) trace.Kind {
	if kind == event.Store || kind == event.Writeback {
		return trace.LLCWrite
	}
	return trace.LLCRead
}

// pumpOutgoing drains one NoC message per OutgoingLatency cycles, applying
// backpressure by re-queuing when the NoC can't accept it yet.
func (a *Agent) pumpOutgoing() bool {
	if a.outgoingBusy || len(a.schedOutgoing) == 0 {
		return false
	}
	msg := a.schedOutgoing[0]
	a.outgoingBusy = true
	a.delay.Schedule(a.now+a.cfg.OutgoingLatency, func() {
		a.outgoingBusy = false

		if a.NoCPort == nil || a.NoCPeer == nil {
			a.schedOutgoing = a.schedOutgoing[1:]
			a.Counters.RepliesNoC++
			return
		}
		sendable := event.NewNoCMessage().
			WithSrc(a.NoCPort).
			WithDst(a.NoCPeer).
			WithSendTime(sim.VTimeInSec(a.now)).
			WithKind(msg.Kind).
			WithPayload(msg.Payload).
			Build()
		if a.NoCPort.Send(sendable) != nil {
			a.Counters.RepliesWaitNoC++
			clog.Trace("memtile outgoing backpressure", "agent", a.Name(), "kind", msg.Kind.String())
			return
		}
		a.schedOutgoing = a.schedOutgoing[1:]
		a.Counters.RepliesNoC++
	})
	return true
}

func (a *Agent) pumpIncomingMC() bool {
	if a.incomingMCBusy || len(a.schedIncomingMC) == 0 {
		return false
	}
	cr := a.schedIncomingMC[0]
	a.schedIncomingMC = a.schedIncomingMC[1:]
	a.incomingMCBusy = true
	a.delay.Schedule(a.now+a.cfg.IncomingMCLatency, func() {
		a.incomingMCBusy = false
		a.handleReturnFromMC(cr)
	})
	return true
}

func (a *Agent) sendToMC(req *event.CacheRequest) {
	a.Counters.RequestsMC++
	if a.MCPort == nil || a.MCPeer == nil {
		return
	}
	kind := event.MemoryRequestLoad
	switch req.Kind {
	case event.Store:
		kind = event.MemoryRequestStore
	case event.Writeback:
		kind = event.MemoryRequestWB
	}
	msg := event.NewNoCMessage().
		WithSrc(a.MCPort).
		WithDst(a.MCPeer).
		WithSendTime(sim.VTimeInSec(a.now)).
		WithKind(kind).
		WithPayload(req).
		Build()
	_ = a.MCPort.Send(msg)
}

func (a *Agent) enqueueOutgoing(kind event.MessageKind, payload event.Event) {
	a.schedOutgoing = append(a.schedOutgoing, &event.NoCMessage{Kind: kind, Payload: payload})
}

// sendToDestination implements the inter-MemTile forwarding rule (spec.md
// §4.5: "calcDestMemTile(addr)... If the destination is this tile, enqueue
// on sched_mem_req. Otherwise stamp the tile's own id... forward... as
// MEM_TILE_REQUEST").
func (a *Agent) sendToDestination(req *event.CacheRequest) {
	dest := tile.CalcDestMemTile(req.Address, a.cfg.McShift, a.cfg.McMask)
	if dest == a.cfg.ID {
		a.schedMemReq = append(a.schedMemReq, req)
		return
	}
	req.OriginatorMemTile = a.cfg.ID
	a.Counters.SendOtherMemTile++
	a.Trace.Emit(trace.Event{
		Timestamp: a.now, Core: req.Origin().CoreID, PC: req.Origin().PC,
		Type: trace.MemTileForward, ID: uint64(dest), Address: req.Address,
	})
	a.enqueueOutgoing(event.MemTileRequest, req)
}

// VisitCacheRequest handles both the scalar bypass path (spec.md §4.5:
// "bypass path") and replies to a request this tile forwarded to another
// memory tile.
func (a *Agent) VisitCacheRequest(r *event.CacheRequest) {
	if r.OriginatorMemTile == event.NoMemTile {
		// A transaction originating at a tile, never yet forwarded.
		r.Size = a.cfg.LineSize
		a.sendToDestination(r)
		a.Counters.Scalar++
		return
	}

	if r.Serviced {
		// A transaction we forwarded elsewhere has completed there.
		a.Counters.ReceivedOtherMemTile++
		a.handleReplyFromMC(r)
		return
	}

	// We are the remote memory tile this request was forwarded to.
	a.Counters.ReceivedOtherMemTile++
	a.schedMemReq = append(a.schedMemReq, r)
}

// VisitMCPUSetVVL implements the VVL protocol (spec.md §4.5).
func (a *Agent) VisitMCPUSetVVL(s *event.MCPUSetVVL) {
	a.Counters.Control++
	vvl := a.vvl.Compute(s, a.cfg.SPRegBytes, a.cfg.MaxVVL)
	s.VVL = vvl
	s.Serviced = true
	a.enqueueOutgoing(event.MCPURequest, s)
}

// VisitMCPUInstruction admits a vector instruction into the table and
// either issues the ALLOCATE/READ sequence toward the scratchpad or begins
// address generation directly (spec.md §4.5).
func (a *Agent) VisitMCPUInstruction(instr *event.MCPUInstruction) {
	a.Counters.Vector++

	vvl := a.vvl.Get(instr.Origin().CoreID)
	id := a.table.Insert(instr, vvl)
	tx, _ := a.table.Get(id)

	if instr.Operation == event.VectorLoad {
		a.startLoad(instr, tx)
		return
	}
	a.startStore(instr, tx)
}

func (a *Agent) startLoad(instr *event.MCPUInstruction, tx *Transaction) {
	if a.sp.Status(instr.Dest.ID) == IsL2 {
		a.sp.BeginAllocate(instr.Dest.ID)
		allocSize := int(tx.VVL) * instr.ElementWidth
		a.Trace.Emit(trace.Event{
			Timestamp: a.now, Core: instr.Origin().CoreID, PC: instr.Origin().PC,
			Type: trace.MemTileAllocate, ID: uint64(allocSize),
		})
		a.sendScratchpadRequest(instr, event.Allocate, allocSize)
	}

	if instr.SubOperation.Indexed() {
		tx.RemainingScratchpadReplies = 1
		a.sendScratchpadRequest(instr, event.Read, int(tx.VVL)*instr.ElementWidth)
		return
	}

	a.computeMemReqAddresses(instr, tx)
}

func (a *Agent) startStore(instr *event.MCPUInstruction, tx *Transaction) {
	tx.RemainingScratchpadReplies = 1
	if instr.SubOperation.Indexed() {
		tx.RemainingScratchpadReplies = 2
	}
	for i := 0; i < tx.RemainingScratchpadReplies; i++ {
		a.sendScratchpadRequest(instr, event.Read, int(tx.VVL)*instr.ElementWidth)
	}
}

func (a *Agent) sendScratchpadRequest(instr *event.MCPUInstruction, cmd event.ScratchpadCommand, size int) {
	req := event.NewScratchpadRequest(instr.Origin(), cmd, instr.Dest.ID, size, instr.InstructionID)
	req.SourceTile = instr.SourceTile
	a.Counters.ScratchpadRequests++
	a.enqueueOutgoing(event.ScratchpadCommandMsg, req)
}

// VisitScratchpadRequest handles ALLOCATE/READ/WRITE replies arriving from
// the VAS tile (spec.md §4.5).
func (a *Agent) VisitScratchpadRequest(sreq *event.ScratchpadRequest) {
	// An ALLOCATE ack completes its register's allocation even when the
	// instruction that sent it has already retired, so the SP-WRITEs
	// deferred on that register still go out.
	if sreq.Command == event.Allocate {
		a.sp.CompleteAllocate(sreq.DestRegisterID)
		return
	}

	tx, ok := a.table.Get(sreq.ParentInstruction)
	if !ok {
		return
	}
	instr := tx.Instruction

	switch sreq.Command {
	case event.Free:
	case event.Read:
		if !sreq.OperandReady {
			return
		}
		tx.RemainingScratchpadReplies--
		if tx.RemainingScratchpadReplies == 0 {
			a.computeMemReqAddresses(instr, tx)
		}
	case event.Write:
		if sreq.OperandReady {
			a.computeMemReqAddresses(instr, tx)
		}
	}
}

// computeMemReqAddresses decomposes instr into per-element CacheRequests
// per its suboperation and forwards each one (spec.md §4.5).
func (a *Agent) computeMemReqAddresses(instr *event.MCPUInstruction, tx *Transaction) {
	switch instr.SubOperation {
	case event.Unit:
		reqs := decomposeUnit(instr, tx.VVL, a.cfg.LineSize)
		tx.RemainingCacheRequests = len(reqs)
		tx.RemainingScratchpadReplies = len(reqs)
		tx.ElementsPerResponse = 1
		for _, r := range reqs {
			a.sendToDestination(r)
		}
	default: // NonUnit, OrderedIndex, UnorderedIndex
		reqs := decomposeIndexed(instr)
		epr := elementsPerResponse(a.cfg.LineSize, instr.ElementWidth)
		tx.RemainingCacheRequests = int(tx.VVL)
		tx.RemainingScratchpadReplies = ceilDiv(int(tx.VVL), epr)
		tx.ElementsPerResponse = epr
		for _, r := range reqs {
			a.sendToDestination(r)
		}
	}
}

// handleReturnFromMC is called once MemReqLatency+IncomingMCLatency cycles
// after a request was pumped to the memory controller and its ack drained
// back in (spec.md §4.5's controllerCycle_incoming_mem_req).
func (a *Agent) handleReturnFromMC(mes *event.CacheRequest) {
	mes.MemoryAck = true

	if a.cfg.LLCEnabled && mes.Kind != event.Writeback {
		bank := calculateBank(mes.Address, a.llcGeom, a.cfg.LLCPolicy)
		a.llc[bank].Insert(mes.LineAddress)
	}

	a.completeMemReq(mes)
}

// completeMemReq finishes a request once its data is known to be
// available, whether that data came from an LLC hit (no MC round trip)
// or an MC reply that has just been installed into the LLC as a fill.
func (a *Agent) completeMemReq(mes *event.CacheRequest) {
	if mes.OriginatorMemTile != event.NoMemTile && mes.OriginatorMemTile != a.cfg.ID {
		// Serving a forwarded request on behalf of another memory tile:
		// reply to the originator, who owns the SP-write/ack delivery.
		mes.Serviced = true
		a.Counters.SendOtherMemTile++
		a.enqueueOutgoing(event.MemTileReply, mes)
		return
	}

	mes.Serviced = true
	a.handleReplyFromMC(mes)
}

// handleReplyFromMC implements handleReplyMessageFromMC: the bypass path
// replies directly with MEMORY_ACK; otherwise the parent instruction's
// counters are decremented and, once all cache requests have landed, an
// SP-WRITE is issued (or the entry is simply retired for a store) (spec.md
// §4.5).
func (a *Agent) handleReplyFromMC(mes *event.CacheRequest) {
	if mes.IsBypass() {
		a.enqueueOutgoing(event.MemoryAck, mes)
		return
	}

	tx, ok := a.table.Get(mes.InstructionID)
	if !ok {
		return
	}

	tx.RemainingCacheRequests--
	dueForReply := tx.RemainingCacheRequests%tx.ElementsPerResponse == 0

	switch mes.Kind {
	case event.Fetch, event.Load:
		if dueForReply {
			tx.RemainingScratchpadReplies--
			instr := tx.Instruction
			reply := event.NewScratchpadRequest(instr.Origin(), event.Write, instr.Dest.ID, a.cfg.LineSize, instr.InstructionID)
			reply.SourceTile = instr.SourceTile
			reply.OperandReady = tx.RemainingScratchpadReplies == 0

			a.sp.Defer(instr.Dest.ID, func() {
				a.Counters.ScratchpadRequests++
				a.enqueueOutgoing(event.ScratchpadCommandMsg, reply)
			})
		}
	case event.Store, event.Writeback:
		// No ack required toward the VAS tile.
	}

	if tx.RemainingCacheRequests == 0 {
		a.table.Delete(mes.InstructionID)
	}
}
