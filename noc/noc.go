// Package noc implements spec.md §4.6's three network-on-chip flavors
// behind one interface: Functional (fixed per-packet latency, unbounded
// queues), Simple (a dimension-order-routed mesh with hop-count latency
// and per-route packet counters), and Detailed (a pluggable interconnect
// strategy standing in for the embedded cycle-accurate simulator spec.md
// describes, analogous to how the functional executor is modeled as an
// external collaborator elsewhere in this module).
//
// Grounded on original_source/Coyote/src/NoC/{NoC,FunctionalNoC,SimpleNoC,
// DetailedNoC}.hpp for the three-variant split, checkSpaceForPacket/
// handleMessageFromTile_/handleMessageFromMemoryCPU_ method shape, and
// per-(src,dst,network) hop-count bookkeeping; on tile.Arbiter/tile.Tile
// for the "single port per node, NoC resolves the real destination
// internally" wiring convention already established by that package.
package noc

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/tile"
)

// NoC is the interface all three flavors satisfy (spec.md §4.6: "three
// flavors... behind one interface").
type NoC interface {
	sim.Component

	// ConnectTile registers a tile's own port as the delivery target for
	// traffic addressed to it, and returns the NoC-side port the tile
	// should pass to Tile.ConnectNoC as its peer.
	ConnectTile(id int, peer sim.Port) sim.Port

	// ConnectMemTile registers a memory tile the same way, additionally
	// recording acceptor as the per-cycle admission-control poll spec.md
	// §4.5 describes ("the NoC polls the memory tile each cycle via
	// can_accept(msg)").
	ConnectMemTile(id int, peer sim.Port, acceptor MemTileAcceptor) sim.Port

	// Bind records which memory tile serves core-tile id's vector memory
	// instructions — topology-time wiring (spec.md §9's "cyclic
	// references... are topology-time wiring, not dynamic graphs") needed
	// only for the payload kinds that carry no resolvable address of
	// their own (MCPU_REQUEST's VVL leg, and scratchpad replies flowing
	// back toward the memory tile that issued the command).
	Bind(coreTile, memTile int)

	// CheckSpaceForPacket satisfies tile.NoCAcceptor: the backpressure
	// check an Arbiter makes before injecting msg's class from
	// injectedByTile.
	CheckSpaceForPacket(injectedByTile int, class event.MessageClass) bool
}

// MemTileAcceptor is the admission-control hook a memory tile exposes;
// memtile.Agent.CanAccept satisfies this exactly.
type MemTileAcceptor interface {
	CanAccept(kind event.MessageKind) bool
}

// endpoint is one node (tile or memory tile) attached to the NoC.
type endpoint struct {
	id   int
	port sim.Port // the NoC's own port for this node (receives, and sends replies back out)
	peer sim.Port // the node's own port, the final delivery target
}

// base holds everything shared by Functional/Simple/Detailed: endpoint
// bookkeeping, core-tile<->memtile bindings, and destination resolution.
// It is not itself a sim.Component; each flavor embeds its own
// *sim.TickingComponent alongside a base.
type base struct {
	name string

	tiles        map[int]*endpoint
	memtiles     map[int]*endpoint
	memAcceptors map[int]MemTileAcceptor

	memTileOfCoreTile map[int]int
	coreTileOfMemTile map[int]int

	mcShift uint
	mcMask  uint64
}

func newBase(name string, mcShift uint, mcMask uint64) base {
	return base{
		name:              name,
		tiles:             make(map[int]*endpoint),
		memtiles:          make(map[int]*endpoint),
		memAcceptors:      make(map[int]MemTileAcceptor),
		memTileOfCoreTile: make(map[int]int),
		coreTileOfMemTile: make(map[int]int),
		mcShift:           mcShift,
		mcMask:            mcMask,
	}
}

func (b *base) connectTile(owner *sim.TickingComponent, id int, peer sim.Port) sim.Port {
	portName := fmt.Sprintf("Tile%d", id)
	port := sim.NewLimitNumMsgPort(owner, 8, b.name+"."+portName)
	owner.AddPort(portName, port)
	b.tiles[id] = &endpoint{id: id, port: port, peer: peer}
	return port
}

func (b *base) connectMemTile(owner *sim.TickingComponent, id int, peer sim.Port, acceptor MemTileAcceptor) sim.Port {
	portName := fmt.Sprintf("MemTile%d", id)
	port := sim.NewLimitNumMsgPort(owner, 8, b.name+"."+portName)
	owner.AddPort(portName, port)
	b.memtiles[id] = &endpoint{id: id, port: port, peer: peer}
	b.memAcceptors[id] = acceptor
	return port
}

func (b *base) bind(coreTile, memTile int) {
	b.memTileOfCoreTile[coreTile] = memTile
	b.coreTileOfMemTile[memTile] = coreTile
}

// checkSpaceForPacket implements the common part of backpressure: unless
// the destination is a memory tile that refuses an MCPU_REQUEST-class
// packet while an instruction is in flight, space is always available —
// both Functional and Simple model unbounded per-destination injection
// queues (spec.md §4.6), and Detailed defers the rest to its
// Interconnect.
func (b *base) checkSpaceForPacket(injectedByTile int, class event.MessageClass) bool {
	if class != event.ClassRequest {
		return true
	}
	memTile, ok := b.memTileOfCoreTile[injectedByTile]
	if !ok {
		return true
	}
	acceptor, ok := b.memAcceptors[memTile]
	if !ok {
		return true
	}
	return acceptor.CanAccept(event.MCPURequest)
}

// route resolves msg's logical destination: true+id for a tile, false+id
// for a memory tile. fromTile/fromID identify the endpoint msg arrived
// on, needed only for the bound payload kinds that carry no destination
// of their own.
func (b *base) route(fromTile bool, fromID int, msg *event.NoCMessage) (toTile bool, toID int, ok bool) {
	switch p := msg.Payload.(type) {
	case *event.CacheRequest:
		switch msg.Kind {
		case event.RemoteL2Request:
			return true, p.HomeTile, true
		case event.RemoteL2Ack:
			return true, p.SourceTile, true
		case event.MemoryRequestLoad, event.MemoryRequestStore, event.MemoryRequestWB:
			return false, tile.CalcDestMemTile(p.Address, b.mcShift, b.mcMask), true
		case event.MemoryAck:
			return true, p.SourceTile, true
		case event.MemTileRequest:
			return false, tile.CalcDestMemTile(p.Address, b.mcShift, b.mcMask), true
		case event.MemTileReply:
			return false, p.OriginatorMemTile, true
		}
	case *event.MCPUInstruction:
		return false, tile.CalcDestMemTile(p.BaseAddress, b.mcShift, b.mcMask), true
	case *event.MCPUSetVVL:
		if fromTile {
			if dest, ok := b.memTileOfCoreTile[fromID]; ok {
				return false, dest, true
			}
			return false, 0, false
		}
		if dest, ok := b.coreTileOfMemTile[fromID]; ok {
			return true, dest, true
		}
		return false, 0, false
	case *event.ScratchpadRequest:
		if fromTile {
			if dest, ok := b.memTileOfCoreTile[fromID]; ok {
				return false, dest, true
			}
			return false, 0, false
		}
		return true, p.SourceTile, true
	}
	return false, 0, false
}

// lookupEndpoint resolves a routed (toTile, toID) pair to the endpoint
// record carrying both the NoC's own port for that node (the send side)
// and the node's own port (the Dst side), for rebuilding an outbound
// NoCMessage the way every other component in this module does (a fresh
// WithSrc/WithDst/Build rather than re-sending a stale wrapper).
func (b *base) lookupEndpoint(toTile bool, toID int) (*endpoint, bool) {
	if toTile {
		ep, ok := b.tiles[toID]
		return ep, ok
	}
	ep, ok := b.memtiles[toID]
	return ep, ok
}

// hopDistance is the |Δx|+|Δy|+1 hop-count formula spec.md §4.6 gives for
// the Simple NoC's mesh. Only Simple uses it; Detailed's crossbar applies
// one fixed latency regardless of distance.
func hopDistance(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	return dx + dy + 1
}
