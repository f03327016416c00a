// Package dram implements the two-level (access-scheduler,
// command-scheduler) DRAM controller of spec.md §4.4, grounded on
// _examples/original_source/Coyote/src/MemoryTile/{MemoryBank,BankCommand,
// CommandSchedulerIF}.{hpp,cpp}.
package dram

// Timing holds the DRAM timing-constraint parameters spec.md §4.4's
// table names.
type Timing struct {
	TRRDS uint64
	TRRDL uint64
	TRC   uint64
	TRP   uint64
	TRCDRD uint64
	TRCDWR uint64
	TRAS  uint64
	TRTP  uint64
	TWR   uint64
	TWL   uint64
	BL    uint64
	TCCDS uint64
	TCCDL uint64
	TRTW  uint64
	TWTRL uint64

	BankGroupSize int
}

// bankHistory tracks the last-issued timestamp of each command class, per
// bank, plus the three "any bank" timestamps (ACTIVATE, READ, WRITE)
// timing needs.
type bankHistory struct {
	lastActivate  map[int]uint64
	lastPrecharge map[int]uint64
	lastRead      map[int]uint64
	lastWrite     map[int]uint64
	accessedSinceActivate map[int]bool

	lastActivateAny uint64
	haveActivateAny bool
	lastReadAny     uint64
	haveReadAny     bool
	lastWriteAny    uint64
	haveWriteAny    bool

	lastActivateBank *int
	lastReadBank     *int
	lastWriteBank    *int
}

func newBankHistory() *bankHistory {
	return &bankHistory{
		lastActivate:          make(map[int]uint64),
		lastPrecharge:         make(map[int]uint64),
		lastRead:              make(map[int]uint64),
		lastWrite:             make(map[int]uint64),
		accessedSinceActivate: make(map[int]bool),
	}
}

func sameBankGroup(a, b, groupSize int) bool {
	if groupSize <= 0 {
		return false
	}
	return a/groupSize == b/groupSize
}

// checkTiming reports whether cmd may legally issue against bank at now,
// implementing the formulas transcribed from CommandSchedulerIF.cpp.
func checkTiming(t Timing, h *bankHistory, cmd CommandKind, bank int, now uint64) bool {
	switch cmd {
	case Activate:
		return h.activateOK(t, bank, now)
	case Precharge:
		return h.prechargeOK(t, bank, now)
	case Read:
		return h.readOK(t, bank, now)
	case Write:
		return h.writeOK(t, bank, now)
	default:
		return false
	}
}

func (h *bankHistory) activateOK(t Timing, bank int, now uint64) bool {
	if h.haveActivateAny {
		rrd := t.TRRDS
		if prev, ok := h.lastActivateBankOf(); ok && sameBankGroup(prev, bank, t.BankGroupSize) {
			rrd = t.TRRDL
		}
		if now < h.lastActivateAny+rrd {
			return false
		}
	}
	if last, ok := h.lastActivate[bank]; ok && now < last+t.TRC {
		return false
	}
	if last, ok := h.lastPrecharge[bank]; ok && now < last+t.TRP {
		return false
	}
	return true
}

// lastActivateBankOf resolves which bank last issued an ACTIVATE, used
// only to decide the RRD-short-vs-long bank-group check. record sets it
// whenever an ACTIVATE issues.
func (h *bankHistory) lastActivateBankOf() (int, bool) {
	if h.lastActivateBank == nil {
		return 0, false
	}
	return *h.lastActivateBank, true
}

func (h *bankHistory) lastReadBankOf() (int, bool) {
	if h.lastReadBank == nil {
		return 0, false
	}
	return *h.lastReadBank, true
}

func (h *bankHistory) lastWriteBankOf() (int, bool) {
	if h.lastWriteBank == nil {
		return 0, false
	}
	return *h.lastWriteBank, true
}

func (h *bankHistory) prechargeOK(t Timing, bank int, now uint64) bool {
	if h.haveReadAny && now < h.lastReadAny+t.TRTP {
		return false
	}
	if last, ok := h.lastWrite[bank]; ok && now < last+t.TWR+t.TWL+t.BL {
		return false
	}
	if last, ok := h.lastActivate[bank]; ok && now < last+t.TRAS+t.TRP {
		return false
	}
	return true
}

func (h *bankHistory) readOK(t Timing, bank int, now uint64) bool {
	if h.haveReadAny {
		ccd := t.TCCDS
		if prev, ok := h.lastReadBankOf(); ok && sameBankGroup(prev, bank, t.BankGroupSize) {
			ccd = t.TCCDL
		}
		if now < h.lastReadAny+ccd {
			return false
		}
	}
	if !h.accessedSinceActivate[bank] {
		if last, ok := h.lastActivate[bank]; !ok || now < last+t.TRCDRD {
			return false
		}
	}
	if last, ok := h.lastWrite[bank]; ok && now < last+t.TWTRL+t.TWL+t.BL {
		return false
	}
	return true
}

func (h *bankHistory) writeOK(t Timing, bank int, now uint64) bool {
	if h.haveWriteAny {
		ccd := t.TCCDS
		if prev, ok := h.lastWriteBankOf(); ok && sameBankGroup(prev, bank, t.BankGroupSize) {
			ccd = t.TCCDL
		}
		if now < h.lastWriteAny+ccd {
			return false
		}
	}
	if last, ok := h.lastRead[bank]; ok && now < last+t.TRTW {
		return false
	}
	if !h.accessedSinceActivate[bank] {
		if last, ok := h.lastActivate[bank]; !ok || now < last+t.TRCDWR {
			return false
		}
	}
	return true
}

// record updates history after cmd issues against bank at now.
func (h *bankHistory) record(cmd CommandKind, bank int, now uint64) {
	switch cmd {
	case Activate:
		h.lastActivate[bank] = now
		h.lastActivateAny = now
		h.haveActivateAny = true
		h.accessedSinceActivate[bank] = false
		b := bank
		h.lastActivateBank = &b
	case Precharge:
		h.lastPrecharge[bank] = now
	case Read:
		h.lastRead[bank] = now
		h.lastReadAny = now
		h.haveReadAny = true
		h.accessedSinceActivate[bank] = true
		b := bank
		h.lastReadBank = &b
	case Write:
		h.lastWrite[bank] = now
		h.lastWriteAny = now
		h.haveWriteAny = true
		h.accessedSinceActivate[bank] = true
		b := bank
		h.lastWriteBank = &b
	}
}
