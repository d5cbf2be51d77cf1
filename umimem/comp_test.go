package umimem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

type memTestAgent struct {
	*sim.TickingComponent

	Port sim.Port

	toSend   []*umi.Packet
	received []*umi.Packet
}

func newMemTestAgent(name string, engine sim.Engine) *memTestAgent {
	a := &memTestAgent{}
	a.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, a)
	a.Port = sim.NewPort(a, 4, 4, name+".Port")
	a.AddPort("Port", a.Port)

	return a
}

func (a *memTestAgent) Tick() bool {
	madeProgress := false

	if msg := a.Port.RetrieveIncoming(); msg != nil {
		a.received = append(a.received, msg.(*umi.Packet))
		madeProgress = true
	}

	if len(a.toSend) > 0 {
		pkt := a.toSend[0]
		if pkt.Src.Send(pkt) == nil {
			a.toSend = a.toSend[1:]
			madeProgress = true
		}
	}

	return madeProgress
}

var _ = Describe("Memory endpoint", func() {
	var (
		engine sim.Engine
		mem    *Comp
		agent  *memTestAgent
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		mem = MakeBuilder().
			WithEngine(engine).
			WithLatency(3).
			WithCapacity(1 << 16).
			Build("Mem")
		agent = newMemTestAgent("Agent", engine)

		conn := sim.NewDirectConnection("Conn", engine, 1*sim.GHz)
		conn.PlugIn(agent.Port)
		conn.PlugIn(mem.TopPort)

		mem.SetResponseDestination(agent.Port)
	})

	run := func(pkts ...*umi.Packet) {
		agent.toSend = pkts
		agent.TickLater()
		Expect(engine.Run()).To(Succeed())
	}

	request := func(opcode umi.Opcode) umi.PacketBuilder {
		return umi.PacketBuilder{}.
			WithSrc(agent.Port).WithDst(mem.TopPort).
			WithOpcode(opcode)
	}

	It("should acknowledge a write and serve it back", func() {
		run(
			request(umi.OpWriteRequest).
				WithSize(2).WithDstAddr(0x100).WithSrcAddr(0x8).
				WithData([]byte{1, 2, 3, 4}).
				Build(),
			request(umi.OpReadRequest).
				WithSize(2).WithDstAddr(0x100).WithSrcAddr(0x8).
				Build(),
		)

		Expect(agent.received).To(HaveLen(2))

		ack := agent.received[0]
		Expect(ack.Cmd.Opcode).To(Equal(umi.OpWriteResponse))
		Expect(ack.DstAddr).To(Equal(uint64(0x8)))
		Expect(ack.SrcAddr).To(Equal(uint64(0x100)))

		rd := agent.received[1]
		Expect(rd.Cmd.Opcode).To(Equal(umi.OpReadResponse))
		Expect(rd.Data).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should not respond to a posted write", func() {
		run(
			request(umi.OpWritePosted).
				WithSize(0).WithDstAddr(0x200).
				WithData([]byte{0x5A}).
				Build(),
		)

		Expect(agent.received).To(BeEmpty())
		Expect(mem.Storage().Read(0x200, 1)).To(Equal([]byte{0x5A}))
	})

	It("should read multiple beats", func() {
		image := make([]byte, 32)
		for i := range image {
			image[i] = byte(i)
		}
		mem.Storage().Write(0x400, image)

		run(
			request(umi.OpReadRequest).
				WithSize(3).WithLen(3).
				WithDstAddr(0x400).WithSrcAddr(0x8).
				Build(),
		)

		Expect(agent.received).To(HaveLen(1))
		Expect(agent.received[0].Data).To(Equal(image))
	})

	It("should return the old value from an atomic add", func() {
		mem.Storage().Write(0x300, []byte{10, 0, 0, 0})

		run(
			request(umi.OpAtomicBase + umi.Opcode(umi.AtomicAdd)).
				WithSize(2).WithDstAddr(0x300).WithSrcAddr(0x8).
				WithData([]byte{5, 0, 0, 0}).
				Build(),
		)

		Expect(agent.received).To(HaveLen(1))
		Expect(agent.received[0].Cmd.Opcode).To(Equal(umi.OpReadResponse))
		Expect(agent.received[0].Data).To(Equal([]byte{10, 0, 0, 0}))
		Expect(mem.Storage().Read(0x300, 4)).To(Equal([]byte{15, 0, 0, 0}))
	})

	It("should keep responses in request order", func() {
		run(
			request(umi.OpWriteRequest).
				WithSize(0).WithDstAddr(0x10).WithSrcAddr(0x8).
				WithData([]byte{1}).
				Build(),
			request(umi.OpReadRequest).
				WithSize(0).WithDstAddr(0x10).WithSrcAddr(0x8).
				Build(),
			request(umi.OpWriteRequest).
				WithSize(0).WithDstAddr(0x11).WithSrcAddr(0x8).
				WithData([]byte{2}).
				Build(),
		)

		Expect(agent.received).To(HaveLen(3))
		Expect(agent.received[0].Cmd.Opcode).To(Equal(umi.OpWriteResponse))
		Expect(agent.received[1].Cmd.Opcode).To(Equal(umi.OpReadResponse))
		Expect(agent.received[1].Data).To(Equal([]byte{1}))
		Expect(agent.received[2].Cmd.Opcode).To(Equal(umi.OpWriteResponse))
	})
})
