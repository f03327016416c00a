package trace

// Filter wraps a Sink with spec.md §6's optional cycle-window and
// events-of-interest whitelist ("a trace may additionally carry a
// (lower_bound, upper_bound) cycle filter and an events-of-interest
// whitelist; when the whitelist is empty all kinds are emitted").
type Filter struct {
	Next Sink

	LowerBound uint64
	UpperBound uint64 // 0 means unbounded

	whitelist map[Kind]bool
}

// NewFilter builds a Filter forwarding to next, with no bound and no
// whitelist (emits everything next would).
func NewFilter(next Sink) *Filter {
	return &Filter{Next: next}
}

// WithBounds restricts emission to [lower, upper] cycles; upper == 0
// means unbounded.
func (f *Filter) WithBounds(lower, upper uint64) *Filter {
	f.LowerBound = lower
	f.UpperBound = upper
	return f
}

// WithKinds restricts emission to the given event kinds; calling it with
// no arguments leaves the whitelist empty, which spec.md §6 defines as
// "emit everything".
func (f *Filter) WithKinds(kinds ...Kind) *Filter {
	f.whitelist = make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		f.whitelist[k] = true
	}
	return f
}

// Emit forwards e to Next only if it passes both the cycle window and
// the whitelist.
func (f *Filter) Emit(e Event) {
	if e.Timestamp < f.LowerBound {
		return
	}
	if f.UpperBound != 0 && e.Timestamp > f.UpperBound {
		return
	}
	if len(f.whitelist) > 0 && !f.whitelist[e.Type] {
		return
	}
	f.Next.Emit(e)
}
