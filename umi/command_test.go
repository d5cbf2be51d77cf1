package umi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Opcode", func() {
	It("should classify the regular opcodes", func() {
		Expect(OpInvalid.Class()).To(Equal(ClassInvalid))
		Expect(OpReadRequest.Class()).To(Equal(ClassRequest))
		Expect(OpWriteRequest.Class()).To(Equal(ClassRequest))
		Expect(OpWritePosted.Class()).To(Equal(ClassRequest))
		Expect(OpReadResponse.Class()).To(Equal(ClassResponse))
		Expect(OpWriteResponse.Class()).To(Equal(ClassResponse))
		Expect(OpLinkControl.Class()).To(Equal(ClassLink))
		Expect(OpLinkResponse.Class()).To(Equal(ClassLink))
	})

	It("should classify all atomic opcodes as requests", func() {
		for op := AtomicAdd; op < numAtomicOps; op++ {
			opcode := OpAtomicBase + Opcode(op)

			Expect(opcode.IsAtomic()).To(BeTrue())
			Expect(opcode.AtomicOp()).To(Equal(op))
			Expect(opcode.Class()).To(Equal(ClassRequest))
			Expect(opcode.HasData()).To(BeTrue())
			Expect(opcode.NeedsResponse()).To(BeTrue())
		}
	})

	It("should treat unlisted values as reserved", func() {
		Expect(Opcode(0x06).Class()).To(Equal(ClassReserved))
		Expect(Opcode(0x0D).Class()).To(Equal(ClassReserved))
		Expect(Opcode(0x19).Class()).To(Equal(ClassReserved))
		Expect(Opcode(0x1F).Class()).To(Equal(ClassReserved))
	})

	It("should route requests and responses to their channels", func() {
		Expect(OpReadRequest.Channel()).To(Equal(ChannelRequest))
		Expect(OpWritePosted.Channel()).To(Equal(ChannelRequest))
		Expect((OpAtomicBase + Opcode(AtomicSwap)).Channel()).
			To(Equal(ChannelRequest))
		Expect(OpReadResponse.Channel()).To(Equal(ChannelResponse))
		Expect(OpWriteResponse.Channel()).To(Equal(ChannelResponse))
	})

	It("should refuse a channel for link-control opcodes", func() {
		Expect(func() { OpLinkControl.Channel() }).To(Panic())
	})

	It("should not demand a response for posted writes", func() {
		Expect(OpWritePosted.NeedsResponse()).To(BeFalse())
		Expect(OpWriteRequest.NeedsResponse()).To(BeTrue())
		Expect(OpReadRequest.NeedsResponse()).To(BeTrue())
	})
})

var _ = Describe("Command", func() {
	It("should pack and unpack a regular command", func() {
		cmd := Command{
			Opcode: OpWriteRequest,
			Size:   3,
			Len:    0xA5,
			QoS:    0x9,
			Prot:   0x2,
			EOM:    true,
			EOF:    true,
			Ex:     true,
			Err:    0x1,
			Host:   true,
			User:   0x5,
		}

		Expect(UnpackCommand(cmd.Pack())).To(Equal(cmd))
	})

	It("should pack the fields into their documented positions", func() {
		cmd := Command{Opcode: OpReadRequest, Size: 5, Len: 7}

		raw := cmd.Pack()

		Expect(raw & 0x1F).To(Equal(uint32(OpReadRequest)))
		Expect((raw >> 5) & 0xF).To(Equal(uint32(5)))
		Expect((raw >> 9) & 0xFF).To(Equal(uint32(7)))
	})

	It("should pack and unpack a link-control command", func() {
		cmd := MakeLinkCredit(ChannelResponse, 0xBEEF)

		raw := cmd.Pack()

		Expect(raw & 0x1F).To(Equal(uint32(OpLinkControl)))
		Expect(raw & (1 << 5)).NotTo(BeZero())
		Expect(raw & linkRsvdMask).To(BeZero())
		Expect(raw >> 16).To(Equal(uint32(0xBEEF)))
		Expect(UnpackCommand(raw)).To(Equal(cmd))
	})

	It("should keep the request-channel selector bit clear", func() {
		cmd := MakeLinkCredit(ChannelRequest, 4)

		raw := cmd.Pack()

		Expect(raw & (1 << 5)).To(BeZero())
		Expect(UnpackCommand(raw).LinkChannel).To(Equal(ChannelRequest))
	})
})
