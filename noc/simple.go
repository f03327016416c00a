package noc

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/simclock"
)

// Coord is a node's (x, y) position in the mesh (spec.md §4.6's "a mesh of
// size X x Y").
type Coord struct {
	X, Y int
}

// Simple is "a mesh of size X x Y; dimension-order routing; hop-count =
// |dx| + |dy| + 1; latency = injection + link-traversal + hops *
// latency-per-hop" (spec.md §4.6), grounded on
// original_source/Coyote/src/NoC/SimpleNoC.{hpp,cpp} (latency_per_hop_,
// hop_count_, dst_count_/src_count_/dst_src_count_ packet matrices).
type Simple struct {
	*sim.TickingComponent
	base

	injectionLatency   uint64
	linkLatency        uint64
	latencyPerHop      uint64
	tileCoord          map[int]Coord
	memTileCoord       map[int]Coord
	delay              *simclock.DelayQueue
	now                uint64

	// PacketCounts[src][dst] accumulates per-route packet counts the way
	// SimpleNoC::writePacketCountMatrix_ periodically dumps to disk,
	// keyed "T<id>"/"M<id>" the way trace events name endpoints.
	PacketCounts map[string]map[string]int
	HopCounts    map[event.MessageClass]int
}

// SimpleConfig carries everything needed to build a Simple NoC.
type SimpleConfig struct {
	Name   string
	Engine sim.Engine
	Freq   sim.Freq

	InjectionLatency uint64
	LinkLatency      uint64
	LatencyPerHop    uint64

	TileCoords    map[int]Coord
	MemTileCoords map[int]Coord

	McShift uint
	McMask  uint64
}

func NewSimple(cfg SimpleConfig) *Simple {
	n := &Simple{
		base:             newBase(cfg.Name, cfg.McShift, cfg.McMask),
		injectionLatency: cfg.InjectionLatency,
		linkLatency:      cfg.LinkLatency,
		latencyPerHop:    cfg.LatencyPerHop,
		tileCoord:        cfg.TileCoords,
		memTileCoord:     cfg.MemTileCoords,
		delay:            simclock.NewDelayQueue(),
		PacketCounts:     make(map[string]map[string]int),
		HopCounts:        make(map[event.MessageClass]int),
	}
	if n.tileCoord == nil {
		n.tileCoord = make(map[int]Coord)
	}
	if n.memTileCoord == nil {
		n.memTileCoord = make(map[int]Coord)
	}
	n.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, n)
	return n
}

func (n *Simple) ConnectTile(id int, peer sim.Port) sim.Port {
	return n.connectTile(n.TickingComponent, id, peer)
}

func (n *Simple) ConnectMemTile(id int, peer sim.Port, acceptor MemTileAcceptor) sim.Port {
	return n.connectMemTile(n.TickingComponent, id, peer, acceptor)
}

func (n *Simple) Bind(coreTile, memTile int) { n.bind(coreTile, memTile) }

func (n *Simple) CheckSpaceForPacket(injectedByTile int, class event.MessageClass) bool {
	return n.checkSpaceForPacket(injectedByTile, class)
}

func (n *Simple) Tick(now sim.VTimeInSec) bool {
	n.now = uint64(now)
	progress := false

	for id, ep := range n.tiles {
		if msg := ep.port.Peek(); msg != nil {
			ep.port.Retrieve(now)
			n.schedule(true, id, msg)
			progress = true
		}
	}
	for id, ep := range n.memtiles {
		if msg := ep.port.Peek(); msg != nil {
			ep.port.Retrieve(now)
			n.schedule(false, id, msg)
			progress = true
		}
	}

	if n.delay.Fire(n.now) {
		progress = true
	}

	return progress
}

func (n *Simple) coordOf(isTile bool, id int) Coord {
	if isTile {
		return n.tileCoord[id]
	}
	return n.memTileCoord[id]
}

func (n *Simple) schedule(fromTile bool, fromID int, msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	toTile, toID, ok := n.route(fromTile, fromID, wrapper)
	if !ok {
		return
	}

	from := n.coordOf(fromTile, fromID)
	to := n.coordOf(toTile, toID)
	hops := hopDistance(from.X, from.Y, to.X, to.Y)
	latency := n.injectionLatency + n.linkLatency + uint64(hops)*n.latencyPerHop

	n.HopCounts[wrapper.Class()] += hops
	n.countPacket(fromTile, fromID, toTile, toID)

	dueAt := n.now + latency
	n.delay.Schedule(dueAt, func() {
		n.deliver(toTile, toID, wrapper)
	})
}

func nodeKey(isTile bool, id int) string {
	prefix := "M"
	if isTile {
		prefix = "T"
	}
	return prefix + itoa(id)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func (n *Simple) countPacket(fromTile bool, fromID int, toTile bool, toID int) {
	src := nodeKey(fromTile, fromID)
	dst := nodeKey(toTile, toID)
	row, ok := n.PacketCounts[src]
	if !ok {
		row = make(map[string]int)
		n.PacketCounts[src] = row
	}
	row[dst]++
}

func (n *Simple) deliver(toTile bool, toID int, wrapper *event.NoCMessage) {
	ep, ok := n.lookupEndpoint(toTile, toID)
	if !ok {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(ep.port).
		WithDst(ep.peer).
		WithSendTime(sim.VTimeInSec(n.now)).
		WithKind(wrapper.Kind).
		WithSizeBits(wrapper.SizeBits).
		WithPayload(wrapper.Payload).
		Build()
	_ = ep.port.Send(msg)
}
