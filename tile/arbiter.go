package tile

import "github.com/sarchlab/coyote/event"

// NoCAcceptor is the backpressure hook an Arbiter consults before
// injecting a message (spec.md §4.6's check_space_for_packet).
type NoCAcceptor interface {
	CheckSpaceForPacket(injectedByTile int, class event.MessageClass) bool
}

// Arbiter is a per-tile queueing multiplexer between local input classes
// (cores, L2 banks, memory-side traffic) and the single NoC injection
// point (spec.md §4.3: "a per-tile queueing multiplexer... selects
// messages round-robin among non-empty inputs and forwards one per cycle
// if the NoC can accept").
type Arbiter struct {
	TileID int

	classes []string
	queues  map[string][]*event.NoCMessage
	next    int
}

func NewArbiter(tileID int) *Arbiter {
	return &Arbiter{TileID: tileID, queues: make(map[string][]*event.NoCMessage)}
}

// AddClass registers an input class in wiring order; registration order
// is the round-robin order (spec.md §5: "registration order").
func (a *Arbiter) AddClass(name string) {
	if _, ok := a.queues[name]; ok {
		return
	}
	a.classes = append(a.classes, name)
	a.queues[name] = nil
}

// Enqueue appends msg to class's input queue.
func (a *Arbiter) Enqueue(class string, msg *event.NoCMessage) {
	a.queues[class] = append(a.queues[class], msg)
}

func (a *Arbiter) HasPending() bool {
	for _, q := range a.queues {
		if len(q) > 0 {
			return true
		}
	}
	return false
}

// TryForward selects the next non-empty class in round-robin order whose
// head message the acceptor can take, dequeues and returns it. It reports
// false if no class has anything forwardable this cycle.
func (a *Arbiter) TryForward(acceptor NoCAcceptor) (*event.NoCMessage, bool) {
	n := len(a.classes)
	if n == 0 {
		return nil, false
	}

	for i := 0; i < n; i++ {
		idx := (a.next + i) % n
		class := a.classes[idx]
		q := a.queues[class]
		if len(q) == 0 {
			continue
		}

		msg := q[0]
		if !acceptor.CheckSpaceForPacket(a.TileID, msg.Class()) {
			continue
		}

		a.queues[class] = q[1:]
		a.next = (idx + 1) % n
		return msg, true
	}

	return nil, false
}
