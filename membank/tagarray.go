package membank

import "math/bits"

// TagArray is a tag-only cache directory: the same set/way machinery a
// Bank uses to track residency, decoupled from Bank's port/ticking/MSHR
// plumbing. It backs the memory tile's LLC slices (SPEC_FULL.md §4.5's
// LLC integration), which only ever need to know whether a line is
// resident, never to hold or move data.
type TagArray struct {
	offsetBits uint
	setBits    uint
	sets       []*set
}

// NewTagArray builds a TagArray for a single LLC bank slice of the given
// geometry.
func NewTagArray(lineSize, numSets, associativity int) *TagArray {
	t := &TagArray{
		offsetBits: uint(bits.Len(uint(lineSize)) - 1),
		setBits:    uint(bits.Len(uint(numSets)) - 1),
		sets:       make([]*set, numSets),
	}
	for i := range t.sets {
		t.sets[i] = newSet(associativity)
	}
	return t
}

func (t *TagArray) decompose(lineAddr uint64) (setIdx int, tag uint64) {
	shifted := lineAddr >> t.offsetBits
	mask := uint64(1)<<t.setBits - 1
	return int(shifted & mask), shifted >> t.setBits
}

// Lookup reports whether lineAddr is resident, touching MRU order on a
// hit.
func (t *TagArray) Lookup(lineAddr uint64) bool {
	setIdx, tag := t.decompose(lineAddr)
	s := t.sets[setIdx]
	way := s.lookup(tag)
	if way < 0 {
		return false
	}
	s.touchMRU(way)
	return true
}

// Insert installs lineAddr as resident, evicting the set's current
// victim way if it was not already present.
func (t *TagArray) Insert(lineAddr uint64) {
	setIdx, tag := t.decompose(lineAddr)
	s := t.sets[setIdx]
	if way := s.lookup(tag); way >= 0 {
		s.touchMRU(way)
		return
	}
	way := s.victim()
	s.ways[way] = line{tag: tag, valid: true}
	s.touchMRU(way)
}
