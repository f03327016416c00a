package event

import (
	"github.com/sarchlab/akita/v4/sim"
)

// MessageClass partitions NoCMessage traffic into the two virtual networks
// spec.md §4.6 requires to prevent protocol-level deadlock.
type MessageClass int

const (
	ClassRequest MessageClass = iota
	ClassReply
)

func (c MessageClass) String() string {
	if c == ClassRequest {
		return "REQUEST"
	}
	return "REPLY"
}

// MessageKind enumerates every NoCMessage payload kind from spec.md §6.
type MessageKind int

const (
	RemoteL2Request MessageKind = iota
	RemoteL2Ack
	MemoryRequestLoad
	MemoryRequestStore
	MemoryRequestWB
	MemoryAck
	MCPURequest
	MemTileRequest
	MemTileReply
	ScratchpadCommandMsg
	ScratchpadDataReply
	ScratchpadAck
)

var kindNames = map[MessageKind]string{
	RemoteL2Request:      "REMOTE_L2_REQUEST",
	RemoteL2Ack:          "REMOTE_L2_ACK",
	MemoryRequestLoad:    "MEMORY_REQUEST_LOAD",
	MemoryRequestStore:   "MEMORY_REQUEST_STORE",
	MemoryRequestWB:      "MEMORY_REQUEST_WB",
	MemoryAck:            "MEMORY_ACK",
	MCPURequest:          "MCPU_REQUEST",
	MemTileRequest:       "MEM_TILE_REQUEST",
	MemTileReply:         "MEM_TILE_REPLY",
	ScratchpadCommandMsg: "SCRATCHPAD_COMMAND",
	ScratchpadDataReply:  "SCRATCHPAD_DATA_REPLY",
	ScratchpadAck:        "SCRATCHPAD_ACK",
}

func (k MessageKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// ClassOf returns the virtual network a MessageKind belongs to (spec.md
// §4.6's table).
func (k MessageKind) ClassOf() MessageClass {
	switch k {
	case RemoteL2Ack, MemoryAck, MemTileReply, ScratchpadAck, ScratchpadDataReply:
		return ClassReply
	default:
		return ClassRequest
	}
}

// NoCMessage wraps one Event with routing and accounting metadata, the
// wire format in spec.md §6.
type NoCMessage struct {
	sim.MsgMeta

	Kind           MessageKind
	SizeBits       uint32
	VirtualNetwork int
	Payload        Event
}

// Meta satisfies sim.Msg, the way cgra.MoveMsg does in the teacher repo.
func (m *NoCMessage) Meta() *sim.MsgMeta { return &m.MsgMeta }

func (m *NoCMessage) Class() MessageClass { return m.Kind.ClassOf() }

// NoCMessageBuilder is a fluent builder in the style of
// cgra.MoveMsgBuilder, adapted to akita v4's RemotePort-based MsgMeta.
type NoCMessageBuilder struct {
	src, dst sim.Port
	sendTime sim.VTimeInSec
	kind     MessageKind
	sizeBits uint32
	payload  Event
}

func NewNoCMessage() NoCMessageBuilder { return NoCMessageBuilder{} }

func (b NoCMessageBuilder) WithSrc(p sim.Port) NoCMessageBuilder {
	b.src = p
	return b
}

func (b NoCMessageBuilder) WithDst(p sim.Port) NoCMessageBuilder {
	b.dst = p
	return b
}

func (b NoCMessageBuilder) WithSendTime(t sim.VTimeInSec) NoCMessageBuilder {
	b.sendTime = t
	return b
}

func (b NoCMessageBuilder) WithKind(k MessageKind) NoCMessageBuilder {
	b.kind = k
	return b
}

func (b NoCMessageBuilder) WithSizeBits(bits uint32) NoCMessageBuilder {
	b.sizeBits = bits
	return b
}

func (b NoCMessageBuilder) WithPayload(e Event) NoCMessageBuilder {
	b.payload = e
	return b
}

func (b NoCMessageBuilder) Build() *NoCMessage {
	return &NoCMessage{
		MsgMeta: sim.MsgMeta{
			ID:       sim.GetIDGenerator().Generate(),
			Src:      b.src.AsRemote(),
			Dst:      b.dst.AsRemote(),
			SendTime: b.sendTime,
		},
		Kind:     b.kind,
		SizeBits: b.sizeBits,
		Payload:  b.payload,
	}
}
