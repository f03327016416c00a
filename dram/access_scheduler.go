package dram

import "github.com/sarchlab/coyote/event"

// AccessPolicy selects how the access scheduler orders per-bank queues
// (spec.md §4.4).
type AccessPolicy int

const (
	AccessFifo AccessPolicy = iota
	AccessFifoRRTypePriority
)

// typeClass buckets a CacheRequest into the three sub-queues
// fifo-rr-type-priority serves in order (spec.md §4.4: "fetches served
// first, then loads, then stores").
func typeClass(r *event.CacheRequest) int {
	switch r.Kind {
	case event.Fetch:
		return 0
	case event.Load:
		return 1
	default: // Store, Writeback
		return 2
	}
}

// AccessScheduler holds per-bank request queues and produces the next
// BankCommand a ready bank should issue.
type AccessScheduler struct {
	policy   AccessPolicy
	numBanks int

	// fifo[bank] is used directly under AccessFifo; under
	// AccessFifoRRTypePriority, typeQueues[bank][class] holds the three
	// sub-queues instead.
	fifo       [][]*event.CacheRequest
	typeQueues [][3][]*event.CacheRequest

	nextBank int
}

func NewAccessScheduler(policy AccessPolicy, numBanks int) *AccessScheduler {
	s := &AccessScheduler{policy: policy, numBanks: numBanks}
	s.fifo = make([][]*event.CacheRequest, numBanks)
	s.typeQueues = make([][3][]*event.CacheRequest, numBanks)
	return s
}

// Enqueue adds req to the queue for its decoded bank (spec.md §4.4: the
// memory controller stamps Layout.Bank before handing a request to the
// access scheduler).
func (s *AccessScheduler) Enqueue(req *event.CacheRequest) {
	bank := req.Layout.Bank
	if s.policy == AccessFifoRRTypePriority {
		c := typeClass(req)
		s.typeQueues[bank][c] = append(s.typeQueues[bank][c], req)
		return
	}
	s.fifo[bank] = append(s.fifo[bank], req)
}

func (s *AccessScheduler) head(bank int) *event.CacheRequest {
	if s.policy == AccessFifoRRTypePriority {
		for c := 0; c < 3; c++ {
			if len(s.typeQueues[bank][c]) > 0 {
				return s.typeQueues[bank][c][0]
			}
		}
		return nil
	}
	if len(s.fifo[bank]) == 0 {
		return nil
	}
	return s.fifo[bank][0]
}

// pop removes req from whichever queue currently holds it as head.
func (s *AccessScheduler) pop(bank int, req *event.CacheRequest) {
	if s.policy == AccessFifoRRTypePriority {
		c := typeClass(req)
		s.typeQueues[bank][c] = s.typeQueues[bank][c][1:]
		return
	}
	s.fifo[bank] = s.fifo[bank][1:]
}

// NextReady scans banks round-robin, starting after the last bank
// served, and returns the BankCommand the first non-empty bank's head
// request needs (spec.md §4.4: "round-robin across banks").
func (s *AccessScheduler) NextReady(banks []*MemoryBank) (*BankCommand, bool) {
	n := s.numBanks
	for i := 0; i < n; i++ {
		idx := (s.nextBank + i) % n
		req := s.head(idx)
		if req == nil {
			continue
		}

		s.nextBank = (idx + 1) % n
		kind := banks[idx].NextCommand(req.Layout.Row, req.Kind == event.Store || req.Kind == event.Writeback)
		return &BankCommand{Kind: kind, Bank: idx, Request: req}, true
	}
	return nil, false
}

// Complete removes req from bank's queue once its final command has
// issued (called by the MemoryController after a READ/WRITE that
// finishes the request).
func (s *AccessScheduler) Complete(bank int, req *event.CacheRequest) {
	s.pop(bank, req)
}
