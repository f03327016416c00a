package trace

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) { r.events = append(r.events, e) }

var _ = Describe("Filter", func() {
	var rec *recordingSink

	BeforeEach(func() {
		rec = &recordingSink{}
	})

	It("drops events outside the cycle window", func() {
		f := NewFilter(rec).WithBounds(10, 20)

		f.Emit(Event{Timestamp: 5, Type: L2Hit})
		f.Emit(Event{Timestamp: 15, Type: L2Hit})
		f.Emit(Event{Timestamp: 25, Type: L2Hit})

		Expect(rec.events).To(HaveLen(1))
		Expect(rec.events[0].Timestamp).To(Equal(uint64(15)))
	})

	It("emits every kind when the whitelist is empty", func() {
		f := NewFilter(rec)

		f.Emit(Event{Type: L2Hit})
		f.Emit(Event{Type: Stall})

		Expect(rec.events).To(HaveLen(2))
	})

	It("restricts emission to whitelisted kinds once one is set", func() {
		f := NewFilter(rec).WithKinds(L2Hit)

		f.Emit(Event{Type: L2Hit})
		f.Emit(Event{Type: Stall})

		Expect(rec.events).To(HaveLen(1))
		Expect(rec.events[0].Type).To(Equal(L2Hit))
	})

	It("has no upper bound when UpperBound is left at zero", func() {
		f := NewFilter(rec).WithBounds(0, 0)

		f.Emit(Event{Timestamp: 1_000_000, Type: KI})

		Expect(rec.events).To(HaveLen(1))
	})
})
