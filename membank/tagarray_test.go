package membank

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TagArray", func() {
	It("misses on an address it has never seen", func() {
		t := NewTagArray(64, 4, 2)
		Expect(t.Lookup(0x1000)).To(BeFalse())
	})

	It("hits on an address inserted earlier", func() {
		t := NewTagArray(64, 4, 2)
		t.Insert(0x1000)
		Expect(t.Lookup(0x1000)).To(BeTrue())
	})

	It("evicts the LRU way once a set's ways are exhausted", func() {
		t := NewTagArray(64, 1, 2)

		t.Insert(0x0000)
		t.Insert(0x0040)

		// Touching 0x0000 makes 0x0040 the LRU way; a third distinct line
		// mapping to the same set evicts 0x0040, not 0x0000.
		Expect(t.Lookup(0x0000)).To(BeTrue())
		t.Insert(0x0080)
		Expect(t.Lookup(0x0000)).To(BeTrue())
		Expect(t.Lookup(0x0040)).To(BeFalse())
		Expect(t.Lookup(0x0080)).To(BeTrue())
	})
})
