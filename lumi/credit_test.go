package lumi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TomHuangsrc/umi/umi"
)

var _ = Describe("CreditManager", func() {
	var m *CreditManager

	BeforeEach(func() {
		m = NewCreditManager(4)
	})

	It("should start with the initial count on every channel", func() {
		Expect(m.Available(umi.ChannelRequest)).To(Equal(4))
		Expect(m.Available(umi.ChannelResponse)).To(Equal(4))
	})

	It("should decrement on consume and recover on remote update", func() {
		m.Consume(umi.ChannelRequest)
		m.Consume(umi.ChannelRequest)
		Expect(m.Available(umi.ChannelRequest)).To(Equal(2))

		m.OnRemoteCreditUpdate(umi.ChannelRequest, 2)
		Expect(m.Available(umi.ChannelRequest)).To(Equal(4))
	})

	It("should keep the channels independent", func() {
		m.Consume(umi.ChannelRequest)

		Expect(m.Available(umi.ChannelRequest)).To(Equal(3))
		Expect(m.Available(umi.ChannelResponse)).To(Equal(4))
	})

	It("should panic on underflow", func() {
		for i := 0; i < 4; i++ {
			m.Consume(umi.ChannelResponse)
		}

		Expect(func() { m.Consume(umi.ChannelResponse) }).To(Panic())
	})

	It("should treat repeated remote updates as idempotent", func() {
		m.Consume(umi.ChannelRequest)
		m.OnRemoteCreditUpdate(umi.ChannelRequest, 1)
		m.OnRemoteCreditUpdate(umi.ChannelRequest, 1)
		m.OnRemoteCreditUpdate(umi.ChannelRequest, 1)

		Expect(m.Available(umi.ChannelRequest)).To(Equal(4))
	})

	It("should export the cumulative freed count once per change", func() {
		_, ok := m.ExportUpdate(umi.ChannelRequest)
		Expect(ok).To(BeFalse())

		m.OnLocalReceive(umi.ChannelRequest)
		m.OnLocalReceive(umi.ChannelRequest)

		cmd, ok := m.ExportUpdate(umi.ChannelRequest)
		Expect(ok).To(BeTrue())
		Expect(cmd.Opcode).To(Equal(umi.OpLinkControl))
		Expect(cmd.LinkChannel).To(Equal(umi.ChannelRequest))
		Expect(cmd.LinkValue).To(Equal(uint16(2)))

		_, ok = m.ExportUpdate(umi.ChannelRequest)
		Expect(ok).To(BeFalse())
	})

	It("should survive counter wrap-around", func() {
		for i := 0; i < 0x10000+8; i++ {
			m.Consume(umi.ChannelRequest)
			m.OnRemoteCreditUpdate(umi.ChannelRequest, uint16(i+1))
		}

		Expect(m.Available(umi.ChannelRequest)).To(Equal(4))
	})

	It("should return to the initial count on reset", func() {
		m.Consume(umi.ChannelRequest)
		m.OnLocalReceive(umi.ChannelResponse)

		m.Reset()

		Expect(m.Available(umi.ChannelRequest)).To(Equal(4))
		_, ok := m.ExportUpdate(umi.ChannelResponse)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("SubBuffer", func() {
	It("should store and return whole phits in order", func() {
		b := newSubBuffer("Lanes", 4, 2)

		b.pushPhit(Phit{Bytes: []byte{1, 2, 3, 4}})
		b.pushPhit(Phit{Bytes: []byte{5, 6, 7, 8}})
		Expect(b.canPush()).To(BeFalse())
		Expect(b.phits()).To(Equal(2))

		Expect(b.popPhit()).To(Equal([]byte{1, 2, 3, 4}))
		Expect(b.popPhit()).To(Equal([]byte{5, 6, 7, 8}))
		Expect(b.empty()).To(BeTrue())
	})

	It("should panic when pushed beyond its depth", func() {
		b := newSubBuffer("Lanes", 1, 1)
		b.pushPhit(Phit{Bytes: []byte{9}})

		Expect(func() {
			b.pushPhit(Phit{Bytes: []byte{10}})
		}).To(Panic())
	})
})
