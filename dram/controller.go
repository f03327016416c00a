package dram

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/simclock"
)

// AddressMappingPolicy selects the bit-field order used to decompose an
// address into (rank, bank, row, column) (spec.md §4.4).
type AddressMappingPolicy int

const (
	OpenPage AddressMappingPolicy = iota
	ClosePage
	RowBankColumnBankGroupInterleave
	RowColumnBank
	BankRowColumn
)

// Geometry carries the controller's address-decoding bit widths.
type Geometry struct {
	ColumnBits int
	BankBits   int
	RankBits   int
	RowBits    int

	McShift int
	McMask  uint64

	BankGroupSize int
}

// decode splits addr into (rank, bank, row, column) per policy, the way
// original_source's address-mapping classes do with mask/shift pairs.
func decode(policy AddressMappingPolicy, addr uint64, g Geometry) event.MemoryLayout {
	shift := uint(0)
	take := func(bits int) uint64 {
		if bits <= 0 {
			return 0
		}
		v := (addr >> shift) & ((uint64(1) << uint(bits)) - 1)
		shift += uint(bits)
		return v
	}

	var column, bank, rank, row uint64

	switch policy {
	case RowColumnBank:
		bank = take(g.BankBits)
		column = take(g.ColumnBits)
		rank = take(g.RankBits)
		row = take(g.RowBits)
	case BankRowColumn:
		column = take(g.ColumnBits)
		row = take(g.RowBits)
		rank = take(g.RankBits)
		bank = take(g.BankBits)
	default: // OpenPage, ClosePage, RowBankColumnBankGroupInterleave
		column = take(g.ColumnBits)
		bank = take(g.BankBits)
		rank = take(g.RankBits)
		row = take(g.RowBits)
	}

	return event.MemoryLayout{
		Controller: 0,
		Rank:       int(rank),
		Bank:       int(bank),
		Row:        row,
		Column:     column,
	}
}

// Config carries every MemoryController parameter.
type Config struct {
	Name   string
	Engine sim.Engine
	Freq   sim.Freq

	NumBanks int
	Geometry Geometry
	Timing   Timing

	AddressPolicy AddressMappingPolicy
	AccessPolicy  AccessPolicy
	CommandPolicy CommandPolicy

	DataLatency uint64

	WriteAllocate bool
}

// MemoryController owns N DRAM banks, decodes addresses, and schedules
// commands through an AccessScheduler and a CommandScheduler
// (spec.md §4.4).
type MemoryController struct {
	*sim.TickingComponent

	event.NoOpVisitor

	cfg   Config
	banks []*MemoryBank

	access  *AccessScheduler
	command *CommandScheduler
	delay   *simclock.DelayQueue

	inFlight map[uint64]bool

	Port sim.Port
	Peer sim.Port

	now uint64
}

func NewMemoryController(cfg Config) *MemoryController {
	c := &MemoryController{cfg: cfg, delay: simclock.NewDelayQueue(), inFlight: make(map[uint64]bool)}
	c.TickingComponent = sim.NewTickingComponent(cfg.Name, cfg.Engine, cfg.Freq, c)
	c.Port = sim.NewLimitNumMsgPort(c, 4, cfg.Name+".Port")
	c.AddPort("Port", c.Port)

	c.banks = make([]*MemoryBank, cfg.NumBanks)
	for i := range c.banks {
		c.banks[i] = &MemoryBank{Index: i}
	}
	c.access = NewAccessScheduler(cfg.AccessPolicy, cfg.NumBanks)
	c.command = NewCommandScheduler(cfg.CommandPolicy, cfg.Timing)

	return c
}

// ConnectPeer records the fixed remote port this controller exchanges
// MEMORY_REQUEST_*/MEMORY_ACK traffic with.
func (c *MemoryController) ConnectPeer(peer sim.Port) { c.Peer = peer }

func (c *MemoryController) Tick(now sim.VTimeInSec) bool {
	c.now = uint64(now)
	progress := false

	if msg := c.Port.Peek(); msg != nil {
		c.Port.Retrieve(now)
		c.dispatch(msg)
		progress = true
	}

	if cmd, ok := c.command.Issue(c.banks, c.access, c.now); ok {
		c.apply(cmd)
		progress = true
	}

	if c.delay.Fire(c.now) {
		progress = true
	}

	return progress
}

func (c *MemoryController) dispatch(msg sim.Msg) {
	wrapper, ok := msg.(*event.NoCMessage)
	if !ok {
		return
	}
	wrapper.Payload.Handle(c)
}

func (c *MemoryController) VisitCacheRequest(r *event.CacheRequest) {
	r.SetLayout(decode(c.cfg.AddressPolicy, r.Address, c.cfg.Geometry))
	c.access.Enqueue(r)
}

func (c *MemoryController) apply(cmd *BankCommand) {
	bank := c.banks[cmd.Bank]
	bank.Apply(cmd.Kind, cmd.Request.Layout.Row)

	if cmd.Kind != Read && cmd.Kind != Write {
		return
	}

	req := cmd.Request
	c.access.Complete(cmd.Bank, req)

	parent := req
	c.delay.Schedule(c.now+c.cfg.DataLatency, func() {
		c.completeRequest(parent)
	})
}

func (c *MemoryController) completeRequest(req *event.CacheRequest) {
	if req.Kind == event.Store && c.cfg.WriteAllocate && !c.inFlight[req.LineAddress] {
		c.inFlight[req.LineAddress] = true
		refill := event.NewCacheRequest().
			WithAddress(req.Address).
			WithKind(event.Fetch).
			WithSize(req.Size).
			Build(0)
		refill.SetLayout(decode(c.cfg.AddressPolicy, refill.Address, c.cfg.Geometry))
		c.access.Enqueue(refill)
	}

	req.Serviced = true
	c.sendAck(req)
}

func (c *MemoryController) sendAck(r *event.CacheRequest) {
	if c.Port == nil || c.Peer == nil {
		return
	}
	msg := event.NewNoCMessage().
		WithSrc(c.Port).
		WithDst(c.Peer).
		WithSendTime(sim.VTimeInSec(c.now)).
		WithKind(event.MemoryAck).
		WithPayload(r).
		Build()
	_ = c.Port.Send(msg)
}
