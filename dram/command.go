package dram

import "github.com/sarchlab/coyote/event"

// CommandKind is one of the four DRAM commands spec.md §4.4 names.
type CommandKind int

const (
	Activate CommandKind = iota
	Precharge
	Read
	Write
)

func (k CommandKind) String() string {
	switch k {
	case Activate:
		return "ACTIVATE"
	case Precharge:
		return "PRECHARGE"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// BankCommand is one command the access scheduler produces for a bank's
// head request, grounded on
// original_source/Coyote/src/MemoryTile/BankCommand.hpp: every command
// carries HighPriority/CompletesRequest defaulting to false, set
// explicitly by whichever scheduler promotes it.
type BankCommand struct {
	Kind            CommandKind
	Bank            int
	Request         *event.CacheRequest
	HighPriority     bool
	CompletesRequest bool
}
