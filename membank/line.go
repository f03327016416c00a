package membank

// line is one CacheLine slot inside a set (spec.md §3): a tag, validity,
// dirty state, and the two sticky access-source bits used purely to
// classify eviction counters (SPEC_FULL.md §3, grounded on
// original_source/Coyote/src/CacheBank.cpp's reloadCache_ eviction
// bookkeeping).
type line struct {
	tag              uint64
	valid            bool
	dirty            bool
	accessedByVector bool
	accessedByNonVec bool
}

// set is one associativity-way group; recency is tracked as an MRU-ordered
// slice of indices into ways, most-recently-used first.
type set struct {
	ways    []line
	mruOrder []int
	disabledWays int // ways reserved for the scratchpad (spec.md §4.2)
}

func newSet(assoc int) *set {
	s := &set{ways: make([]line, assoc)}
	s.mruOrder = make([]int, assoc)
	for i := range s.mruOrder {
		s.mruOrder[i] = i
	}
	return s
}

// lookup returns the way index holding tag if valid, or -1.
func (s *set) lookup(tag uint64) int {
	for i := range s.ways {
		if s.ways[i].valid && s.ways[i].tag == tag {
			return i
		}
	}
	return -1
}

func (s *set) touchMRU(way int) {
	for i, w := range s.mruOrder {
		if w == way {
			s.mruOrder = append(s.mruOrder[:i], s.mruOrder[i+1:]...)
			break
		}
	}
	s.mruOrder = append([]int{way}, s.mruOrder...)
}

// victim picks a replacement way: the LRU way among ways not disabled for
// scratchpad use.
func (s *set) victim() int {
	usable := len(s.ways) - s.disabledWays
	for i := len(s.mruOrder) - 1; i >= 0; i-- {
		way := s.mruOrder[i]
		if way < usable {
			return way
		}
	}
	// No way is usable (disabledWays covers the whole set); fall back to
	// the globally LRU way.
	return s.mruOrder[len(s.mruOrder)-1]
}
