package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/coyote/event"
	"github.com/sarchlab/coyote/tile"
)

var geometry = tile.Geometry{
	LineSize:     64,
	SetsPerBank:  16,
	BanksPerTile: 4,
	NumTiles:     8,
}

var _ = Describe("AccessDirector", func() {
	It("TILE_PRIVATE always routes home to the source tile", func() {
		d := tile.NewAccessDirector(tile.AccessDirectorConfig{
			TileID:     3,
			Geometry:   geometry,
			HomePolicy: tile.TilePrivate,
		})

		req := event.NewCacheRequest().WithAddress(0xABCD00).WithKind(event.Load).Build(geometry.BlockOffsetBits())
		decision := d.PutAccess(req)

		Expect(decision).To(Equal(tile.RouteLocal))
		Expect(req.HomeTile).To(Equal(3))
	})

	It("FULLY_SHARED with SET_INTERLEAVING spreads consecutive lines across tiles", func() {
		d := tile.NewAccessDirector(tile.AccessDirectorConfig{
			TileID:     0,
			Geometry:   geometry,
			HomePolicy: tile.FullyShared,
			DataPolicy: tile.SetInterleaving,
		})

		lineSize := uint64(1) << geometry.BlockOffsetBits()
		homes := make(map[int]bool)
		for i := uint64(0); i < 8; i++ {
			req := event.NewCacheRequest().WithAddress(i * lineSize).Build(geometry.BlockOffsetBits())
			d.PutAccess(req)
			homes[req.HomeTile] = true
		}

		Expect(homes).To(HaveLen(8))
	})

	It("reports RouteRemote when the resolved home differs from this tile", func() {
		d := tile.NewAccessDirector(tile.AccessDirectorConfig{
			TileID:     0,
			Geometry:   geometry,
			HomePolicy: tile.FullyShared,
			DataPolicy: tile.SetInterleaving,
		})

		lineSize := uint64(1) << geometry.BlockOffsetBits()
		req := event.NewCacheRequest().WithAddress(3 * lineSize).Build(geometry.BlockOffsetBits())
		decision := d.PutAccess(req)

		Expect(decision).To(Equal(tile.RouteRemote))
		Expect(req.HomeTile).To(Equal(3))
	})
})

type fakeAcceptor struct {
	accept bool
}

func (f fakeAcceptor) CheckSpaceForPacket(int, event.MessageClass) bool { return f.accept }

var _ = Describe("Arbiter", func() {
	It("forwards round-robin across non-empty classes", func() {
		a := tile.NewArbiter(0)
		a.AddClass("core")
		a.AddClass("bank0")

		m1 := &event.NoCMessage{Kind: event.RemoteL2Request}
		m2 := &event.NoCMessage{Kind: event.MemoryRequestLoad}
		a.Enqueue("core", m1)
		a.Enqueue("bank0", m2)

		first, ok := a.TryForward(fakeAcceptor{accept: true})
		Expect(ok).To(BeTrue())
		Expect(first).To(Equal(m1))

		second, ok := a.TryForward(fakeAcceptor{accept: true})
		Expect(ok).To(BeTrue())
		Expect(second).To(Equal(m2))
	})

	It("forwards nothing when the acceptor refuses every class", func() {
		a := tile.NewArbiter(0)
		a.AddClass("core")
		a.Enqueue("core", &event.NoCMessage{Kind: event.RemoteL2Request})

		_, ok := a.TryForward(fakeAcceptor{accept: false})
		Expect(ok).To(BeFalse())
	})
})
