// Package trace defines the event schema spec.md §6 names for the
// trace-file line format `timestamp,core,pc,event_type,id,address`. The
// on-disk writer itself is explicitly out of scope (spec.md §1); this
// package only gives components something to call so they stay decoupled
// from whatever eventually renders a trace to disk, mirroring
// core/util.go's `Trace(msg, args...)` call sites without adopting its
// slog-based implementation (the wire format here is fixed-column, not
// free-form key/value).
package trace

// Kind is one recognized event_type value from spec.md §6's table.
type Kind string

const (
	L2Read  Kind = "l2_read"
	L2Write Kind = "l2_write"
	L2WB    Kind = "l2_wb"
	L2Hit   Kind = "l2_hit"
	L2Miss  Kind = "l2_miss"

	LLCRead  Kind = "llc_read"
	LLCWrite Kind = "llc_write"

	Stall Kind = "stall"

	Resume             Kind = "resume"
	ResumeMC           Kind = "resume_mc"
	ResumeMemoryBank   Kind = "resume_memory_bank"
	ResumeCacheBank    Kind = "resume_cache_bank"
	ResumeTile         Kind = "resume_tile"
	ResumeAddress      Kind = "resume_address"

	LocalRequest     Kind = "local_request"
	SurrogateRequest Kind = "surrogate_request"
	RemoteRequest    Kind = "remote_request"

	MemoryRequest   Kind = "memory_request"
	MemoryOperation Kind = "memory_operation"
	MemoryAck       Kind = "memory_ack"
	BankOperation   Kind = "bank_operation"

	MissServiced  Kind = "miss_serviced"
	MissOnEvicted Kind = "miss_on_evicted"

	MemTileAllocate   Kind = "mem_tile_allocate"
	MemTileRead       Kind = "mem_tile_read"
	MemTileWrite      Kind = "mem_tile_write"
	MemTileForward    Kind = "mem_tile_forward"

	KI Kind = "KI"
)

// StallReason enumerates the string values spec.md §6 allows as a
// "stall" event's id field.
type StallReason string

const (
	StallFetchMiss              StallReason = "fetch_miss"
	StallRAW                    StallReason = "raw"
	StallMSHRs                  StallReason = "mshrs"
	StallWaitingOnBarrier       StallReason = "waiting_on_barrier"
	StallCoreFinished           StallReason = "core_finished"
	StallVectorWaitingOnScalar  StallReason = "vector_waiting_on_scalar_store"
)

// Event is one trace-file line: timestamp,core,pc,event_type,id,address.
type Event struct {
	Timestamp uint64
	Core      int
	PC        uint64
	Type      Kind

	// ID is the event's id field: a size, a bank/tile/controller id, a
	// cycle delta, or 0, depending on Type (spec.md §6's table).
	ID uint64

	// Reason carries a StallReason when Type is Stall; empty otherwise.
	Reason StallReason

	// Address is the event's hex address field; 0 when not applicable.
	Address uint64
}

// Sink accepts trace events as components emit them. A component holds a
// Sink (never a concrete writer), so it stays agnostic to whether trace
// output is enabled, filtered, or discarded.
type Sink interface {
	Emit(e Event)
}

// Discard is a Sink that drops every event, the default when spec.md
// §6's `trace` option is false.
type Discard struct{}

func (Discard) Emit(Event) {}
