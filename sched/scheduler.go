// Package sched implements the scheduling glue of spec.md §4.1/§5: the
// discrete-event loop that advances every component in lockstep, plus the
// Finish/idle detection that decides when a run ends (spec.md §6: "On
// Finish from every core (or scheduler idle with no pending events), the
// simulator flushes counters to per-component report files and exits 0").
//
// Coyote's components (membank.Bank, dram.MemoryController, tile.Tile,
// memtile.Agent, the noc flavors) are all akita TickingComponents, but none
// of them are driven through akita's own Engine.Run loop — each exposes a
// plain Tick(now) bool the way the teacher's tests drive components
// directly. Scheduler is the one place that ticks the whole graph forward
// cycle by cycle, the role api.Driver's Run plays for the teacher's
// wafer-scale engine, adapted to Coyote's per-cycle Ticker contract instead
// of akita's port-binding driver model.
package sched

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
)

// Ticker is any component Scheduler advances once per cycle.
type Ticker interface {
	Tick(now sim.VTimeInSec) bool
}

// Scheduler ticks every registered component once per cycle, in
// registration order (spec.md §5: "within one component, operations
// scheduled for the same tick execute in registration order"), and tracks
// which cores have emitted Finish.
type Scheduler struct {
	event.NoOpVisitor

	components []Ticker
	numCores   int
	finished   map[int]bool

	Cycle uint64
}

// NewScheduler builds a Scheduler expecting Finish from numCores distinct
// core ids before a run is considered complete.
func NewScheduler(numCores int) *Scheduler {
	return &Scheduler{numCores: numCores, finished: make(map[int]bool)}
}

// Register adds c to the set of components ticked every cycle, in the
// order Register was called.
func (s *Scheduler) Register(c Ticker) {
	s.components = append(s.components, c)
}

// VisitFinish records that a core has completed (spec.md §6); wire a core's
// Finish delivery to a Scheduler (directly, or via whatever terminal port
// receives it) so RunUntilDone can detect completion.
func (s *Scheduler) VisitFinish(f *event.Finish) {
	s.finished[f.Origin().CoreID] = true
}

// AllFinished reports whether every core named at construction has emitted
// Finish.
func (s *Scheduler) AllFinished() bool {
	return len(s.finished) >= s.numCores
}

// TickAll advances every registered component by one cycle and returns
// whether any of them made progress.
func (s *Scheduler) TickAll() bool {
	s.Cycle++
	now := sim.VTimeInSec(s.Cycle)
	progress := false
	for _, c := range s.components {
		if c.Tick(now) {
			progress = true
		}
	}
	return progress
}

// RunUntilDone ticks the graph forward until every core has finished, or
// idleCyclesToStop consecutive cycles produce no progress from any component
// (scheduler idle with no pending events, spec.md §6), whichever comes
// first. It returns the cycle the run stopped at.
func (s *Scheduler) RunUntilDone(idleCyclesToStop uint64) uint64 {
	idle := uint64(0)
	for !s.AllFinished() {
		if s.TickAll() {
			idle = 0
			continue
		}
		idle++
		if idle >= idleCyclesToStop {
			break
		}
	}
	return s.Cycle
}

// RunThroughCycle ticks the graph through cycle upTo inclusive, regardless
// of Finish/idle state; used by tests that need deterministic,
// scenario-exact cycle counts (spec.md §8's scenario table).
func (s *Scheduler) RunThroughCycle(upTo uint64) {
	for s.Cycle < upTo {
		s.TickAll()
	}
}
