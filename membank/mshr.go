package membank

import "github.com/sarchlab/coyote/event"

// missEntry coalesces every originating request outstanding against one
// line address (spec.md §3's InFlightMissTable).
type missEntry struct {
	lineAddress uint64
	requests    []*event.CacheRequest
}

// mshrTable is the in-flight-miss table: bounded by maxOutstanding,
// keyed by line address (spec.md §3, §8.4).
type mshrTable struct {
	max     int
	entries map[uint64]*missEntry
	order   []uint64 // insertion order, for deterministic iteration
}

func newMSHRTable(max int) *mshrTable {
	return &mshrTable{max: max, entries: make(map[uint64]*missEntry)}
}

func (t *mshrTable) full() bool { return len(t.entries) >= t.max }

func (t *mshrTable) lookup(line uint64) (*missEntry, bool) {
	e, ok := t.entries[line]
	return e, ok
}

// insert adds the first request against a line, creating a new entry. The
// caller must have already checked !full() and !lookup(line).
func (t *mshrTable) insert(line uint64, r *event.CacheRequest) *missEntry {
	e := &missEntry{lineAddress: line, requests: []*event.CacheRequest{r}}
	t.entries[line] = e
	t.order = append(t.order, line)
	return e
}

// coalesce attaches a follow-on request to an existing entry.
func (e *missEntry) coalesce(r *event.CacheRequest) {
	e.requests = append(e.requests, r)
}

// remove clears the entry for a line once its miss has been acknowledged
// (spec.md §8.5 — every coalesced request acks in the same cycle as the
// parent).
func (t *mshrTable) remove(line uint64) (*missEntry, bool) {
	e, ok := t.entries[line]
	if !ok {
		return nil, false
	}
	delete(t.entries, line)
	for i, l := range t.order {
		if l == line {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return e, true
}

func (t *mshrTable) size() int { return len(t.entries) }
