package tile

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/coyote/event"
)

// RoutingDecision is what PutAccess resolves a CacheRequest to (spec.md
// §4.7).
type RoutingDecision int

const (
	RouteLocal RoutingDecision = iota
	RouteRemote
)

// CalcDestMemTile picks the memory tile that owns addr, shared with the
// memtile package's inter-memtile forwarding (spec.md §4.5/§4.7:
// "calcDestMemTile(addr) = (addr >> mc_shift) & mc_mask").
func CalcDestMemTile(addr uint64, mcShift uint, mcMask uint64) int {
	return int((addr >> mcShift) & mcMask)
}

// AccessDirectorConfig carries every parameter an AccessDirector needs to
// resolve routing decisions (spec.md §4.7).
type AccessDirectorConfig struct {
	TileID      int
	Geometry    Geometry
	HomePolicy  HomePolicy
	DataPolicy  DataMappingPolicy
	McShift     uint
	McMask      uint64
}

// AccessDirector converts a raw CacheRequest into a routing decision
// (spec.md §4.7), owned by a Tile.
type AccessDirector struct {
	cfg AccessDirectorConfig
}

func NewAccessDirector(cfg AccessDirectorConfig) *AccessDirector {
	return &AccessDirector{cfg: cfg}
}

// PutAccess is the entry point: it computes the line address, home tile,
// and cache bank, stamps them onto req, and reports whether the request
// can be handed to a local bank or must go out over the NoC.
func (d *AccessDirector) PutAccess(req *event.CacheRequest) RoutingDecision {
	req.SetLineAddress(d.cfg.Geometry.BlockOffsetBits())

	home := d.homeTile(req.Address)
	bank := resolveBankIndex(d.cfg.DataPolicy, req.Address, d.cfg.Geometry)
	req.SetHome(home, bank)

	if home == d.cfg.TileID {
		return RouteLocal
	}
	return RouteRemote
}

func (d *AccessDirector) homeTile(addr uint64) int {
	if d.cfg.HomePolicy == TilePrivate {
		return d.cfg.TileID
	}
	return resolveHomeTile(d.cfg.DataPolicy, addr, d.cfg.Geometry, d.cfg.TileID)
}

// MemoryRequestMessage wraps req in a MEMORY_REQUEST_{LOAD,STORE,WB}
// NoCMessage addressed to the memory tile that owns req's address
// (spec.md §4.7).
func (d *AccessDirector) MemoryRequestMessage(req *event.CacheRequest, src, dst sim.Port, now sim.VTimeInSec) *event.NoCMessage {
	kind := event.MemoryRequestLoad
	switch req.Kind {
	case event.Store:
		kind = event.MemoryRequestStore
	case event.Writeback:
		kind = event.MemoryRequestWB
	}
	return event.NewNoCMessage().
		WithSrc(src).
		WithDst(dst).
		WithSendTime(now).
		WithKind(kind).
		WithPayload(req).
		Build()
}

// RemoteL2RequestMessage wraps req in a REMOTE_L2_REQUEST NoCMessage
// addressed to req.HomeTile (spec.md §4.7).
func (d *AccessDirector) RemoteL2RequestMessage(req *event.CacheRequest, src, dst sim.Port, now sim.VTimeInSec) *event.NoCMessage {
	return event.NewNoCMessage().
		WithSrc(src).
		WithDst(dst).
		WithSendTime(now).
		WithKind(event.RemoteL2Request).
		WithPayload(req).
		Build()
}
