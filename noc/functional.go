package noc

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/simclock"
)

// Functional is "every message arrives after a fixed packet_latency
// cycles; unbounded queues" (spec.md §4.6), grounded on
// original_source/Coyote/src/NoC/FunctionalNoC.{hpp,cpp}.
type Functional struct {
	*sim.TickingComponent
	base

	packetLatency uint64
	delay         *simclock.DelayQueue
	now           uint64
}

// FunctionalConfig carries everything needed to build a Functional NoC.
type FunctionalConfig struct {
	Name   string
	Engine sim.Engine
	Freq   sim.Freq

	PacketLatency uint64
	McShift       uint
	McMask        uint64
}

func NewFunctional(cfg FunctionalConfig) *Functional {
	n := &Functional{
		base:          newBase(cfg.Name, cfg.McShift, cfg.McMask),
		packetLatency: cfg.PacketLatency,
		delay:         simclock.NewDelayQueue(),
	}
	n.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, n)
	return n
}

func (n *Functional) ConnectTile(id int, peer sim.Port) sim.Port {
	return n.connectTile(n.TickingComponent, id, peer)
}

func (n *Functional) ConnectMemTile(id int, peer sim.Port, acceptor MemTileAcceptor) sim.Port {
	return n.connectMemTile(n.TickingComponent, id, peer, acceptor)
}

func (n *Functional) Bind(coreTile, memTile int) { n.bind(coreTile, memTile) }

func (n *Functional) CheckSpaceForPacket(injectedByTile int, class event.MessageClass) bool {
	return n.checkSpaceForPacket(injectedByTile, class)
}

func (n *Functional) Tick(now sim.VTimeInSec) bool {
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

func (n *Functional) schedule(fromTile bool, fromID int, msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	toTile, toID, ok := n.route(fromTile, fromID, wrapper)
	if !ok {
		return
	}
	dueAt := n.now + n.packetLatency
	n.delay.Schedule(dueAt, func() {
		n.deliver(toTile, toID, wrapper)
	})
}

func (n *Functional) deliver(toTile bool, toID int, wrapper *event.NoCMessage) {
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
