package nt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VirtualAddress", func() {
	It("should decompose an address into table indices", func() {
		addr := VirtualAddress(5<<39 | 6<<30 | 7<<21 | 8<<12 | 0xABC)

		Expect(addr.PML4Index()).To(Equal(uint64(5)))
		Expect(addr.PDPIndex()).To(Equal(uint64(6)))
		Expect(addr.PDIndex()).To(Equal(uint64(7)))
		Expect(addr.PTIndex()).To(Equal(uint64(8)))
		Expect(addr.Offset()).To(Equal(uint64(0xABC)))
	})

	It("should keep each index within 9 bits", func() {
		addr := VirtualAddress(0xFFFFFFFFFFFFFFFF)

		Expect(addr.PML4Index()).To(Equal(uint64(0x1FF)))
		Expect(addr.PDPIndex()).To(Equal(uint64(0x1FF)))
		Expect(addr.PDIndex()).To(Equal(uint64(0x1FF)))
		Expect(addr.PTIndex()).To(Equal(uint64(0x1FF)))
	})

	It("should recognize kernel addresses", func() {
		Expect(VirtualAddress(0xFFFF800000001000).IsKernel()).To(BeTrue())
		Expect(VirtualAddress(0xFFF0000000001000).IsKernel()).To(BeFalse())
		Expect(VirtualAddress(0x00007FF600001000).IsKernel()).To(BeFalse())
	})
})

var _ = Describe("DTB", func() {
	It("should strip control bits from the register value", func() {
		Expect(DTB(0x1AB008).tableBase()).To(Equal(uint64(0x1AB000)))
	})
})
