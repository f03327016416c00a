package event

// Fence is a control event carrying no payload beyond its origin: it
// blocks the issuing core until prior outstanding accesses drain
// (spec.md §3, §6).
type Fence struct {
	origin Origin
}

func NewFence(o Origin) *Fence { return &Fence{origin: o} }

func (f *Fence) Origin() Origin   { return f.origin }
func (f *Fence) Handle(v Visitor) { v.VisitFence(f) }

// Finish marks a core as having completed its program. Once every core in
// the simulation has emitted Finish, the scheduler flushes counters and
// exits (spec.md §6).
type Finish struct {
	origin Origin
}

func NewFinish(o Origin) *Finish { return &Finish{origin: o} }

func (f *Finish) Origin() Origin   { return f.origin }
func (f *Finish) Handle(v Visitor) { v.VisitFinish(f) }
