package dram

import "github.com/sarchlab/coyote/event"

// CommandPolicy selects command-reordering behavior (spec.md §4.4).
type CommandPolicy int

const (
	CommandFifo CommandPolicy = iota
	CommandOldestRWOverPrecharge
)

// CommandScheduler verifies DRAM timing constraints before a BankCommand
// may issue, and — under CommandOldestRWOverPrecharge — prefers a
// READ/WRITE over a PRECHARGE/ACTIVATE candidate when timing allows.
type CommandScheduler struct {
	policy  CommandPolicy
	timing  Timing
	history *bankHistory
}

func NewCommandScheduler(policy CommandPolicy, timing Timing) *CommandScheduler {
	return &CommandScheduler{policy: policy, timing: timing, history: newBankHistory()}
}

// Issue asks access for the next candidate command and, if timing
// permits, issues it (recording history) and reports it. Under
// CommandOldestRWOverPrecharge, if the round-robin candidate is a
// PRECHARGE/ACTIVATE that cannot issue or that is dominated by a ready
// READ/WRITE elsewhere, it scans the banks in index order and issues the
// first head request whose READ/WRITE passes timing instead (spec.md
// §4.4: "reads/writes chosen before
// precharges/activates as long as timing allows").
func (s *CommandScheduler) Issue(banks []*MemoryBank, access *AccessScheduler, now uint64) (*BankCommand, bool) {
	candidate, ok := access.NextReady(banks)
	if !ok {
		return nil, false
	}

	if s.policy == CommandOldestRWOverPrecharge && isPrepCommand(candidate.Kind) {
		if promoted, ok := s.findReadyRW(banks, access, now); ok {
			promoted.HighPriority = true
			s.commit(promoted, now)
			return promoted, true
		}
	}

	if !checkTiming(s.timing, s.history, candidate.Kind, candidate.Bank, now) {
		return nil, false
	}

	s.commit(candidate, now)
	return candidate, true
}

func isPrepCommand(k CommandKind) bool {
	return k == Precharge || k == Activate
}

// findReadyRW scans all banks for a READ/WRITE command that currently
// passes timing, without disturbing access scheduler ordering beyond
// picking whichever bank is ready (a queue-peek, not a dequeue).
func (s *CommandScheduler) findReadyRW(banks []*MemoryBank, access *AccessScheduler, now uint64) (*BankCommand, bool) {
	for idx, bank := range banks {
		req := access.head(idx)
		if req == nil {
			continue
		}
		kind := bank.NextCommand(req.Layout.Row, isWriteKind(req))
		if kind != Read && kind != Write {
			continue
		}
		if !checkTiming(s.timing, s.history, kind, idx, now) {
			continue
		}
		return &BankCommand{Kind: kind, Bank: idx, Request: req}, true
	}
	return nil, false
}

func isWriteKind(r *event.CacheRequest) bool {
	return r.Kind == event.Store || r.Kind == event.Writeback
}

func (s *CommandScheduler) commit(cmd *BankCommand, now uint64) {
	s.history.record(cmd.Kind, cmd.Bank, now)
}
