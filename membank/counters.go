package membank

// Counters tracks the per-bank statistics spec.md's scenarios (§8) and
// trace schema (§6) reference. Counters are plain fields rather than a
// formatting subsystem — turning them into a report is the explicitly
// excluded "statistics formatting" concern (spec.md §1).
type Counters struct {
	Hits                  uint64
	Misses                uint64
	VectorMisses          uint64
	NonVectorMisses       uint64
	MissesOnAlreadyPending uint64
	HitsOnStore           uint64
	Stalls                uint64
	Writebacks            uint64
	BytesRead             uint64
	BytesWritten          uint64

	VectorEvictsMixed      uint64
	VectorEvictsVector     uint64
	VectorEvictsNonVector  uint64
	NonVectorEvictsMixed     uint64
	NonVectorEvictsVector    uint64
	NonVectorEvictsNonVector uint64
}
