package nt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PTE", func() {
	It("should decode a valid entry as present before anything else", func() {
		pte := PTE(1 | 1<<10 | 1<<11 | 0x123<<12)

		Expect(pte.Decode()).To(Equal(PTEPresent))
		Expect(pte.PageFrameNumber()).To(Equal(uint64(0x123)))
	})

	It("should decode the prototype form before the transition form", func() {
		pte := PTE(1<<10 | 1<<11)

		Expect(pte.Decode()).To(Equal(PTEPrototype))
	})

	It("should decode a transition entry with its narrower frame field",
		func() {
			pte := PTE(1<<11 | mask(40)<<12)

			Expect(pte.Decode()).To(Equal(PTETransition))
			Expect(pte.TransitionFrame()).To(Equal(mask(36)))
		})

	It("should decode an all-zero entry as empty", func() {
		Expect(PTE(0).Decode()).To(Equal(PTEEmpty))
	})

	It("should decode a never-written entry as demand-zero", func() {
		Expect(PTE(0x20).Decode()).To(Equal(PTEDemandZero))
	})

	It("should decode a pagefile-resident entry", func() {
		Expect(PTE(1<<32 | 0x20).Decode()).To(Equal(PTEPagedOut))
	})

	It("should sign-extend the prototype target", func() {
		raw := PTE(uint64(0xA00012345678)<<16 | 1<<10)

		Expect(raw.PrototypeTarget()).To(Equal(uint64(0xFFFFA00012345678)))
	})

	It("should recognize the in-process sentinel", func() {
		inProc := PTE(uint64(0xFFFF00000000)<<16 | 1<<10)
		pool := PTE(uint64(0xA00012345678)<<16 | 1<<10)

		Expect(inProc.TargetIsInProcess()).To(BeTrue())
		Expect(pool.TargetIsInProcess()).To(BeFalse())
	})
})
