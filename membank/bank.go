// Package membank implements the cache bank component of spec.md §4.2: a
// set-associative, write-back (or write-through) cache slice with
// in-flight-miss tracking, writeback credits, and an optional scratchpad
// reservation, grounded on
// _examples/original_source/Coyote/src/CacheBank.cpp.
package membank

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/clog"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/simclock"
	"github.com/sarchlab/coyote/trace"
)

// WritePolicy selects write-back or write-through behavior (spec.md §4.2).
type WritePolicy int

const (
	WriteBack WritePolicy = iota
	WriteThrough
)

// Config carries every cache-bank parameter spec.md §4.2 names.
type Config struct {
	Name string

	Engine sim.Engine
	Freq   sim.Freq

	// TileID/BankIndex identify this bank's position in the mesh: the tile
	// that owns it, and this bank's index within that tile's bank set.
	// They are stamped onto every request this bank itself originates
	// (writebacks) since those never pass through a tile's access
	// director, unlike requests arriving from a core.
	TileID    int
	BankIndex int

	LineSize              int
	NumSets               int
	Associativity         int
	HitLatency            uint64
	MissLatency           uint64
	MaxOutstandingMisses  int
	MaxInFlightWritebacks int
	WritePolicy           WritePolicy
	ScratchpadWays        int
}

func (c Config) offsetBits() uint { return uint(bits.Len(uint(c.LineSize)) - 1) }
func (c Config) setBits() uint    { return uint(bits.Len(uint(c.NumSets)) - 1) }

// Bank is one cache-bank slice, an akita ticking component with a Top port
// (toward the tile/core) and a Bottom port (toward the next level: a
// remote tile, a memory tile, or an LLC).
type Bank struct {
	*sim.TickingComponent

	event.NoOpVisitor

	cfg Config

	sets []*set
	mshr *mshrTable
	delay *simclock.DelayQueue

	fetchQ      []*event.CacheRequest
	loadQ       []*event.CacheRequest
	storeQ      []*event.CacheRequest
	scratchpadQ []*event.ScratchpadRequest

	disabledWaysBudget int // total ways currently reserved for scratchpad use

	busy     bool
	pendingWB  *event.CacheRequest
	inFlightWB int

	Counters Counters

	// Trace receives one Event per l2_hit/l2_miss the way original_source's
	// CacheBank.cpp traces those points; defaults to trace.Discard so a bank
	// never has to special-case the `trace` option being off (spec.md §6).
	Trace trace.Sink

	TopPort    sim.Port
	BottomPort sim.Port

	// TopPeer/BottomPeer are the fixed remote ports this bank exchanges
	// NoCMessages with: Top toward the core/tile, Bottom toward this
	// tile's Arbiter for injection onto the shared NoC (spec.md §4.3).
	TopPeer    sim.Port
	BottomPeer sim.Port

	now uint64
}

// ConnectTop records the port this bank's Top side sends to and receives
// from.
func (b *Bank) ConnectTop(peer sim.Port) { b.TopPeer = peer }

// ConnectBottom records the port this bank's Bottom side sends to and
// receives from.
func (b *Bank) ConnectBottom(peer sim.Port) { b.BottomPeer = peer }

// SetTrace installs sink as the destination for this bank's l2_hit/l2_miss
// events, replacing the default trace.Discard.
func (b *Bank) SetTrace(sink trace.Sink) { b.Trace = sink }

// NewBank builds a Bank from cfg, wiring Top/Bottom ports the way
// core.Builder wires a Core's ports in the teacher repo.
func NewBank(cfg Config) *Bank {
	b := &Bank{cfg: cfg, delay: simclock.NewDelayQueue(), Trace: trace.Discard{}}
	b.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, b)
	b.TopPort = sim.NewLimitNumMsgPort(b, 4, cfg.Name+".Top")
	b.BottomPort = sim.NewLimitNumMsgPort(b, 4, cfg.Name+".Bottom")
	b.AddPort("Top", b.TopPort)
	b.AddPort("Bottom", b.BottomPort)

	b.sets = make([]*set, cfg.NumSets)
	for i := range b.sets {
		b.sets[i] = newSet(cfg.Associativity)
	}
	b.mshr = newMSHRTable(cfg.MaxOutstandingMisses)

	return b
}

// Tick drains one message per port per cycle (spec.md §4.1: "a port
// conveys at most one value per cycle"), then fires whatever internal
// latency-driven work has become due.
func (b *Bank) Tick(now sim.VTimeInSec) bool {
	cycle := uint64(now)
	b.now = cycle
	progress := false

	if msg := b.TopPort.Peek(); msg != nil {
		b.TopPort.Retrieve(now)
		b.dispatch(msg)
		progress = true
	}

	if msg := b.BottomPort.Peek(); msg != nil {
		b.BottomPort.Retrieve(now)
		b.dispatch(msg)
		progress = true
	}

	if b.delay.Fire(cycle) {
		progress = true
	}

	return progress
}

func (b *Bank) dispatch(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		panic(fmt.Sprintf("coyote: %s received a non-NoCMessage message", b.Name()))
	}
	wrapper.Payload.Handle(b)
}

// PutEvent accepts any event directly (spec.md §4.2's public contract),
// used by components wired without going through a port (e.g. tests, or a
// same-tile local bank handoff).
func (b *Bank) PutEvent(e event.Event) {
	e.Handle(b)
}

func (b *Bank) VisitCacheRequest(r *event.CacheRequest) {
	if r.Serviced {
		b.handleAck(r)
		return
	}
	b.handleNewRequest(r)
}

func (b *Bank) VisitScratchpadRequest(r *event.ScratchpadRequest) {
	b.scratchpadQ = append(b.scratchpadQ, r)
	b.maybeStartIssue()
}

func (b *Bank) handleNewRequest(r *event.CacheRequest) {
	if r.Kind == event.Load && b.hitsPendingStoreOrWB(r.LineAddress) {
		b.Counters.HitsOnStore++
		parent := r
		b.delay.Schedule(b.now+1, func() {
			b.ackUpstream(parent)
		})
		return
	}

	switch r.Kind {
	case event.Fetch:
		b.fetchQ = append(b.fetchQ, r)
	case event.Load:
		b.loadQ = append(b.loadQ, r)
	case event.Store, event.Writeback:
		b.storeQ = append(b.storeQ, r)
	}
	b.maybeStartIssue()
}

// hitsPendingStoreOrWB implements the LOAD short-circuit: a load hits a
// pending writeback to the same line still sitting in this bank's queues
// (spec.md §4.2, scenario 3 in §8). A plain pending STORE does not count:
// per original_source/Coyote/src/CacheBank.cpp's hit_on_store computation,
// stores are not checked here because a load needs the whole line, not
// just the word a pending store carries.
func (b *Bank) hitsPendingStoreOrWB(line uint64) bool {
	for _, s := range b.storeQ {
		if s.Kind == event.Writeback && s.LineAddress == line {
			return true
		}
	}
	if b.pendingWB != nil && b.pendingWB.LineAddress == line {
		return true
	}
	return false
}

func (b *Bank) stalled() bool {
	return b.mshr.full() || b.pendingWB != nil
}

func (b *Bank) hasQueuedWork() bool {
	return len(b.fetchQ) > 0 || len(b.loadQ) > 0 || len(b.storeQ) > 0 || len(b.scratchpadQ) > 0
}

func (b *Bank) maybeStartIssue() {
	if b.busy || b.stalled() || !b.hasQueuedWork() {
		if b.stalled() {
			b.Counters.Stalls++
			clog.Trace("bank stalled", "bank", b.Name(), "mshrFull", b.mshr.full(), "pendingWB", b.pendingWB != nil)
		}
		return
	}
	b.busy = true
	b.delay.Schedule(b.now+1, func() { b.issueAccess() })
}

// issueAccess processes exactly one queued request, the way
// CacheBank::issueAccessInternal_ does in the original implementation:
// scratchpad commands first, then fetch, then load, then store.
func (b *Bank) issueAccess() {
	switch {
	case len(b.scratchpadQ) > 0:
		req := b.scratchpadQ[0]
		b.scratchpadQ = b.scratchpadQ[1:]
		b.issueScratchpad(req)
	case len(b.fetchQ) > 0:
		req := b.fetchQ[0]
		b.fetchQ = b.fetchQ[1:]
		b.issueDataRequest(req)
	case len(b.loadQ) > 0:
		req := b.loadQ[0]
		b.loadQ = b.loadQ[1:]
		b.issueDataRequest(req)
	case len(b.storeQ) > 0:
		req := b.storeQ[0]
		b.storeQ = b.storeQ[1:]
		b.issueDataRequest(req)
	default:
		b.busy = false
		return
	}

	if !b.stalled() && b.hasQueuedWork() {
		b.delay.Schedule(b.now+b.cfg.HitLatency, func() { b.issueAccess() })
	} else {
		b.busy = false
		if b.stalled() {
			b.Counters.Stalls++
		}
	}
}

func (b *Bank) issueScratchpad(req *event.ScratchpadRequest) {
	switch req.Command {
	case event.Allocate:
		b.disabledWaysBudget += waysFor(req.Size, b.cfg.LineSize)
		b.applyDisabledWays()
	case event.Free:
		b.disabledWaysBudget -= waysFor(req.Size, b.cfg.LineSize)
		if b.disabledWaysBudget < 0 {
			b.disabledWaysBudget = 0
		}
		b.applyDisabledWays()
	}
	req.OperandReady = true
	parent := req
	b.delay.Schedule(b.now+b.cfg.HitLatency, func() {
		b.ackScratchpad(parent)
	})
}

func waysFor(sizeBytes, lineSize int) int {
	if lineSize == 0 {
		return 0
	}
	ways := sizeBytes / lineSize
	if sizeBytes%lineSize != 0 {
		ways++
	}
	return ways
}

func (b *Bank) applyDisabledWays() {
	for _, s := range b.sets {
		s.disabledWays = b.disabledWaysBudget
	}
}

func (b *Bank) ackScratchpad(req *event.ScratchpadRequest) {
	b.sendToTop(event.ScratchpadAck, req)
}

func (b *Bank) setAndTag(addr uint64) (setIdx int, tag uint64) {
	offsetBits := b.cfg.offsetBits()
	setBits := b.cfg.setBits()
	setIdx = int((addr >> offsetBits) & ((1 << setBits) - 1))
	tag = addr >> (offsetBits + setBits)
	return
}

func (b *Bank) issueDataRequest(req *event.CacheRequest) {
	if req.Kind == event.Writeback {
		b.reloadCache(req)
		return
	}

	writeThrough := b.cfg.WritePolicy == WriteThrough
	if writeThrough && req.Kind == event.Store {
		b.forwardStoreThrough(req)
		return
	}

	setIdx, tag := b.setAndTag(req.Address)
	s := b.sets[setIdx]
	way := s.lookup(tag)

	if way >= 0 {
		b.hit(req, s, way)
		return
	}

	b.miss(req, setIdx, tag)
}

func (b *Bank) hit(req *event.CacheRequest, s *set, way int) {
	b.Counters.Hits++
	b.Trace.Emit(trace.Event{
		Timestamp: b.now, Core: req.Origin().CoreID, PC: req.Origin().PC,
		Type: trace.L2Hit, Address: req.Address,
	})
	s.touchMRU(way)

	if req.ProducedByVector {
		s.ways[way].accessedByVector = true
	} else {
		s.ways[way].accessedByNonVec = true
	}

	if (req.Kind == event.Store || req.Kind == event.Writeback) && b.cfg.WritePolicy == WriteBack {
		s.ways[way].dirty = true
	}

	if req.Kind == event.Load || req.Kind == event.Fetch {
		b.Counters.BytesRead += uint64(req.Size)
	} else {
		b.Counters.BytesWritten += uint64(req.Size)
	}

	parent := req
	b.delay.Schedule(b.now+b.cfg.HitLatency, func() {
		b.ackUpstream(parent)
	})

	if b.cfg.WritePolicy == WriteThrough && req.Kind == event.Store {
		fwd := parent
		b.delay.Schedule(b.now+b.cfg.HitLatency, func() {
			b.sendDownstream(fwd)
		})
	}
}

func (b *Bank) miss(req *event.CacheRequest, setIdx int, tag uint64) {
	_ = setIdx
	_ = tag

	if entry, ok := b.mshr.lookup(req.LineAddress); ok {
		entry.coalesce(req)
		b.Counters.MissesOnAlreadyPending++
		if req.ProducedByVector {
			b.Counters.VectorMisses++
		} else {
			b.Counters.NonVectorMisses++
		}
		return
	}

	b.mshr.insert(req.LineAddress, req)
	if req.ProducedByVector {
		b.Counters.VectorMisses++
	} else {
		b.Counters.NonVectorMisses++
	}
	b.Counters.Misses++
	b.Trace.Emit(trace.Event{
		Timestamp: b.now, Core: req.Origin().CoreID, PC: req.Origin().PC,
		Type: trace.L2Miss, Address: req.Address,
	})

	parent := req
	b.delay.Schedule(b.now+b.cfg.MissLatency, func() {
		b.sendDownstream(parent)
	})
}

func (b *Bank) forwardStoreThrough(req *event.CacheRequest) {
	b.Counters.BytesWritten += uint64(req.Size)
	parent := req
	b.delay.Schedule(b.now+b.cfg.HitLatency, func() {
		b.ackUpstream(parent)
		b.sendDownstream(parent)
	})
}

// reloadCache handles a WRITEBACK request issued from this bank's queue:
// it installs the written-back line as a valid line in the set's LRU way
// and sends nothing downstream or upstream; kept symmetrical with the
// original's reloadCache_.
func (b *Bank) reloadCache(req *event.CacheRequest) {
	setIdx, tag := b.setAndTag(req.Address)
	s := b.sets[setIdx]
	way := s.victim()
	s.ways[way] = line{tag: tag, valid: true}
	s.touchMRU(way)
}

// handleAck processes a reply travelling back up from the next level: a
// writeback completion, or a miss fill.
func (b *Bank) handleAck(r *event.CacheRequest) {
	if r.Kind == event.Writeback {
		b.handleWritebackAck()
		return
	}

	entry, ok := b.mshr.remove(r.LineAddress)
	if !ok {
		msg := fmt.Sprintf("coyote: invariant violated: ack for line 0x%x not in in-flight miss table", r.LineAddress)
		clog.Invariant(msg, "bank", b.Name(), "line", r.LineAddress)
		panic(msg)
	}

	b.allocateAndMaybeEvict(r)

	for _, orig := range entry.requests {
		o := orig
		if o.Kind == event.Load || o.Kind == event.Fetch {
			b.Counters.BytesRead += uint64(o.Size)
		} else {
			b.Counters.BytesWritten += uint64(o.Size)
		}
		b.ackUpstream(o)
	}

	b.maybeStartIssue()
}

func (b *Bank) allocateAndMaybeEvict(r *event.CacheRequest) {
	setIdx, tag := b.setAndTag(r.LineAddress)
	s := b.sets[setIdx]
	way := s.victim()

	victim := s.ways[way]
	if victim.valid && victim.dirty && b.cfg.WritePolicy == WriteBack {
		b.countEviction(victim, r.ProducedByVector)
		wb := event.NewCacheRequest().
			WithAddress(victim.tag<<(b.cfg.offsetBits()+b.cfg.setBits())|uint64(setIdx)<<b.cfg.offsetBits()).
			WithKind(event.Writeback).
			WithSize(b.cfg.LineSize).
			WithSourceTile(b.cfg.TileID).
			Build(b.cfg.offsetBits())
		wb.SetHome(b.cfg.TileID, b.cfg.BankIndex)
		if b.inFlightWB < b.cfg.MaxInFlightWritebacks {
			b.inFlightWB++
			b.Counters.Writebacks++
			b.sendDownstream(wb)
		} else {
			b.pendingWB = wb
		}
	} else if victim.valid {
		b.countEviction(victim, r.ProducedByVector)
	}

	s.ways[way] = line{tag: tag, valid: true, accessedByVector: r.ProducedByVector, accessedByNonVec: !r.ProducedByVector}
	s.touchMRU(way)
}

func (b *Bank) countEviction(v line, isVector bool) {
	mixed := v.accessedByVector && v.accessedByNonVec
	switch {
	case isVector && mixed:
		b.Counters.VectorEvictsMixed++
	case isVector && v.accessedByVector:
		b.Counters.VectorEvictsVector++
	case isVector:
		b.Counters.VectorEvictsNonVector++
	case mixed:
		b.Counters.NonVectorEvictsMixed++
	case v.accessedByVector:
		b.Counters.NonVectorEvictsVector++
	default:
		b.Counters.NonVectorEvictsNonVector++
	}
}

func (b *Bank) handleWritebackAck() {
	b.inFlightWB--
	if b.pendingWB != nil {
		wb := b.pendingWB
		b.pendingWB = nil
		b.inFlightWB++
		b.Counters.Writebacks++
		b.sendDownstream(wb)
	}
	b.maybeStartIssue()
}

func (b *Bank) ackUpstream(r *event.CacheRequest) {
	r.Serviced = true
	kind := event.RemoteL2Ack
	if r.Kind == event.Writeback {
		kind = event.MemoryAck
	}
	b.sendToTop(kind, r)
}

func (b *Bank) sendDownstream(r *event.CacheRequest) {
	kind := event.MemoryRequestLoad
	switch r.Kind {
	case event.Store:
		kind = event.MemoryRequestStore
	case event.Writeback:
		kind = event.MemoryRequestWB
	}
	b.sendToBottom(kind, r)
}

// sendToTop and sendToBottom wrap an event in a NoCMessage addressed to
// this bank's fixed peer, the way cgra.MoveMsgBuilder wraps a payload
// before a teacher Core sends it out a port. Both are no-ops when the
// bank has not been wired to a peer yet (e.g. a unit test exercising
// internal state only).
func (b *Bank) sendToTop(kind event.MessageKind, payload event.Event) {
	if b.TopPort == nil || b.TopPeer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(b.TopPort).
		WithDst(b.TopPeer).
		WithSendTime(sim.VTimeInSec(b.now)).
		WithKind(kind).
		WithPayload(payload).
		Build()
	_ = b.TopPort.Send(msg)
}

func (b *Bank) sendToBottom(kind event.MessageKind, payload event.Event) {
	if b.BottomPort == nil || b.BottomPeer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(b.BottomPort).
		WithDst(b.BottomPeer).
		WithSendTime(sim.VTimeInSec(b.now)).
		WithKind(kind).
		WithPayload(payload).
		Build()
	_ = b.BottomPort.Send(msg)
}
