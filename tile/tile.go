package tile

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/membank"
)

// Tile is the spec.md §4.3 tile: an address-decoding/routing layer over a
// set of local cache banks, fronting the NoC through a fair Arbiter. It is
// an akita TickingComponent the way core.Core is in the teacher repo.
type Tile struct {
	*sim.TickingComponent

	event.NoOpVisitor

	ID         int
	Director   *AccessDirector
	Arbiter    *Arbiter
	Banks      []*membank.Bank
	Scratchpad *Scratchpad

	CorePort sim.Port
	CorePeer sim.Port
	NoCPort  sim.Port
	NoCPeer  sim.Port

	// BankPort receives CacheRequests this tile's own cache banks send
	// downstream (an L2 miss or a writeback, spec.md §4.2), for injection
	// into the shared NoC through the Arbiter's per-bank class (spec.md
	// §4.3: "Memory-side requests... are also submitted via the arbiter
	// so that NoC injection from a tile is serialized and fair").
	BankPort sim.Port

	acceptor NoCAcceptor

	now sim.VTimeInSec
}

// TileConfig carries everything needed to build a Tile.
type TileConfig struct {
	Name   string
	ID     int
	Engine sim.Engine
	Freq   sim.Freq

	Director *AccessDirector
	Banks    []*membank.Bank

	// NumScratchpadRegisters/ScratchpadRegisterBytes configure this tile's
	// VAS scratchpad (spec.md §4.5). Zero means this tile hosts no
	// scratchpad.
	NumScratchpadRegisters int
	ScratchpadRegisterBytes int
}

func NewTile(cfg TileConfig) *Tile {
	t := &Tile{ID: cfg.ID, Director: cfg.Director, Banks: cfg.Banks}
	if cfg.NumScratchpadRegisters > 0 {
		t.Scratchpad = NewScratchpad(cfg.NumScratchpadRegisters, cfg.ScratchpadRegisterBytes)
	}
	t.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, t)
	t.CorePort = sim.NewLimitNumMsgPort(t, 4, cfg.Name+".Core")
	t.NoCPort = sim.NewLimitNumMsgPort(t, 4, cfg.Name+".NoC")
	t.BankPort = sim.NewLimitNumMsgPort(t, 8, cfg.Name+".Bank")
	t.AddPort("Core", t.CorePort)
	t.AddPort("NoC", t.NoCPort)
	t.AddPort("Bank", t.BankPort)

	t.Arbiter = NewArbiter(cfg.ID)
	t.Arbiter.AddClass("core")
	for i := range t.Banks {
		t.Arbiter.AddClass(bankClassName(i))
	}
	t.Arbiter.AddClass("memory")

	return t
}

func bankClassName(i int) string {
	return "bank" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

// ConnectNoC records the remote port this tile injects into and receives
// NoC traffic from.
func (t *Tile) ConnectNoC(peer sim.Port, acceptor NoCAcceptor) {
	t.NoCPeer = peer
	t.acceptor = acceptor
}

// ConnectCore records the functional-executor-facing port this tile
// delivers acks and completions to.
func (t *Tile) ConnectCore(peer sim.Port) {
	t.CorePeer = peer
}

func (t *Tile) sendToCore(kind event.MessageKind, payload event.Event, now sim.VTimeInSec) {
	if t.CorePort == nil || t.CorePeer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(t.CorePort).
		WithDst(t.CorePeer).
		WithSendTime(now).
		WithKind(kind).
		WithPayload(payload).
		Build()
	_ = t.CorePort.Send(msg)
}

func (t *Tile) Tick(now sim.VTimeInSec) bool {
	t.now = now
	progress := false

	if msg := t.CorePort.Peek(); msg != nil {
		t.CorePort.Retrieve(now)
		t.handleFromCore(msg, now)
		progress = true
	}

	if msg := t.NoCPort.Peek(); msg != nil {
		t.NoCPort.Retrieve(now)
		t.handleFromNoC(msg)
		progress = true
	}

	if msg := t.BankPort.Peek(); msg != nil {
		t.BankPort.Retrieve(now)
		t.handleFromBank(msg)
		progress = true
	}

	if t.acceptor != nil {
		if msg, ok := t.Arbiter.TryForward(t.acceptor); ok {
			_ = t.NoCPort.Send(msg)
			progress = true
		}
	}

	// The tile ticks its own cache banks, so a scheduler registers only
	// the tile.
	for _, bank := range t.Banks {
		if bank.Tick(now) {
			progress = true
		}
	}

	return progress
}

func (t *Tile) handleFromCore(msg sim.Msg, now sim.VTimeInSec) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}

	req, ok := wrapper.Payload.(*event.CacheRequest)
	if !ok {
		wrapper.Payload.Handle(t)
		return
	}

	t.PutAccess(req, now)
}

// PutAccess is the Tile's direct entry point for a CacheRequest
// originating at a local core (spec.md §4.7's put_access), usable
// directly (bypassing ports) by tests and by the functional executor
// shim.
func (t *Tile) PutAccess(req *event.CacheRequest, now sim.VTimeInSec) {
	decision := t.Director.PutAccess(req)

	if decision == RouteLocal {
		t.Banks[req.CacheBank].PutEvent(req)
		return
	}

	msg := t.Director.RemoteL2RequestMessage(req, t.NoCPort, t.NoCPeer, now)
	t.Arbiter.Enqueue("core", msg)
}

// handleFromBank wraps a CacheRequest one of this tile's own banks just
// sent downstream in a MEMORY_REQUEST_{LOAD,STORE,WB} message and hands
// it to the Arbiter's class for that bank, so it waits its turn for NoC
// injection alongside this tile's core and other bank traffic (spec.md §4.3).
func (t *Tile) handleFromBank(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	r, ok := wrapper.Payload.(*event.CacheRequest)
	if !ok {
		return
	}
	out := t.Director.MemoryRequestMessage(r, t.NoCPort, t.NoCPeer, t.now)
	t.Arbiter.Enqueue(bankClassName(r.CacheBank), out)
}

// handleFromNoC dispatches a message arriving over the shared NoC link.
// A MEMORY_ACK is intercepted here, before the generic Visitor dispatch
// that would otherwise lose wrapper.Kind: it is always a reply to one of
// this tile's own banks' downstream requests, routed straight to that
// bank rather than through VisitCacheRequest's REMOTE_L2 handling (which
// treats any other serviced CacheRequest as bound for the local core).
func (t *Tile) handleFromNoC(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	if wrapper.Kind == event.MemoryAck {
		if r, ok := wrapper.Payload.(*event.CacheRequest); ok {
			t.Banks[r.CacheBank].PutEvent(r)
			return
		}
	}
	wrapper.Payload.Handle(t)
}

// VisitCacheRequest handles a CacheRequest arriving from the NoC outside
// the MEMORY_ACK case handleFromNoC already intercepted: either a
// REMOTE_L2_REQUEST destined for one of this tile's own banks, or a
// REMOTE_L2_ACK travelling back through this tile toward its local core.
func (t *Tile) VisitCacheRequest(r *event.CacheRequest) {
	if r.Serviced {
		t.sendToCore(event.RemoteL2Ack, r, t.now)
		return
	}
	t.Banks[r.CacheBank].PutEvent(r)
}

// VisitScratchpadRequest services an ALLOCATE/FREE/READ/WRITE command
// against this tile's scratchpad and enqueues the result onto the
// Arbiter's memory-side class for the memory tile that issued it
// (spec.md §4.5, §4.3's "MCPU instructions" among arbiter-gated traffic).
func (t *Tile) VisitScratchpadRequest(r *event.ScratchpadRequest) {
	if t.Scratchpad == nil {
		return
	}
	t.Scratchpad.Handle(r)
	msg := event.NewNoCMessage().
		WithSrc(t.NoCPort).
		WithDst(t.NoCPeer).
		WithSendTime(t.now).
		WithKind(event.ScratchpadCommandMsg).
		WithPayload(r).
		Build()
	t.Arbiter.Enqueue("memory", msg)
}
