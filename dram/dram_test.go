package dram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/coyote/event"
)

func reqWithLayout(bank int, row uint64, kind event.CacheRequestKind) *event.CacheRequest {
	r := event.NewCacheRequest().WithKind(kind).Build(0)
	r.SetLayout(event.MemoryLayout{Bank: bank, Row: row})
	return r
}

var _ = Describe("CommandScheduler", func() {
	It("issues ACT, RD, RD, PRE, ACT, RD for two reads to a row then one to a different row", func() {
		timing := Timing{
			TRRDS: 2, TRRDL: 2, TRC: 6, TRP: 2, TRCDRD: 2, TRCDWR: 2,
			TRAS: 4, TRTP: 2, TWR: 2, TWL: 1, BL: 1, TCCDS: 1, TCCDL: 1,
			TRTW: 2, TWTRL: 2,
		}
		banks := []*MemoryBank{{Index: 0}}
		access := NewAccessScheduler(AccessFifo, 1)
		sched := NewCommandScheduler(CommandFifo, timing)

		r1 := reqWithLayout(0, 5, event.Load)
		r2 := reqWithLayout(0, 5, event.Load)
		r3 := reqWithLayout(0, 7, event.Load)
		access.Enqueue(r1)
		access.Enqueue(r2)
		access.Enqueue(r3)

		var sequence []CommandKind
		completed := 0
		for now := uint64(0); now < 200 && completed < 3; now++ {
			cmd, ok := sched.Issue(banks, access, now)
			if !ok {
				continue
			}
			sequence = append(sequence, cmd.Kind)
			banks[cmd.Bank].Apply(cmd.Kind, cmd.Request.Layout.Row)
			if cmd.Kind == Read || cmd.Kind == Write {
				access.Complete(cmd.Bank, cmd.Request)
				completed++
			}
		}

		Expect(sequence).To(Equal([]CommandKind{Activate, Read, Read, Precharge, Activate, Read}))
	})
})
