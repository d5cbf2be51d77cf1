package xbar

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// xbarAgent sits on one side of a switch port: it injects pre-addressed
// packets one per cycle and records everything delivered to it.
type xbarAgent struct {
	*sim.TickingComponent

	Port sim.Port

	toSend   []*umi.Packet
	received []*umi.Packet
}

func newXbarAgent(name string, engine sim.Engine) *xbarAgent {
	a := &xbarAgent{}
	a.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, a)
	a.Port = sim.NewPort(a, 4, 4, name+".Port")
	a.AddPort("Port", a.Port)

	return a
}

func (a *xbarAgent) Tick() bool {
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

func writeTo(src, dst sim.Port, addr uint64, payload byte) *umi.Packet {
	return umi.PacketBuilder{}.
		WithSrc(src).WithDst(dst).
		WithOpcode(umi.OpWritePosted).WithSize(0).
		WithDstAddr(addr).
		WithData([]byte{payload}).
		Build()
}

var _ = Describe("Crossbar", func() {
	var (
		engine sim.Engine
		sw     *Comp
		agents []*xbarAgent
	)

	build := func(n int, mode ArbitrationMode) {
		engine = sim.NewSerialEngine()
		sw = MakeBuilder().
			WithEngine(engine).
			WithNumPorts(n).
			WithArbitrationMode(mode).
			Build("Xbar")

		agents = nil
		for i := 0; i < n; i++ {
			agent := newXbarAgent("Agent"+string(rune('A'+i)), engine)
			agents = append(agents, agent)

			conn := sim.NewDirectConnection(
				"Conn"+string(rune('A'+i)), engine, 1*sim.GHz)
			conn.PlugIn(agent.Port)
			conn.PlugIn(sw.Port(i))

			sw.ConnectRemote(i, agent.Port)
		}
	}

	run := func() {
		for _, a := range agents {
			a.TickLater()
		}
		Expect(engine.Run()).To(Succeed())
	}

	It("should route packets by address range", func() {
		build(2, RoundRobin)

		mapper := &RangedPortMapper{}
		mapper.AddRange(0x0000, 0x1000, agents[0].Port)
		mapper.AddRange(0x1000, 0x2000, agents[1].Port)
		sw.SetMapper(mapper)

		agents[0].toSend = []*umi.Packet{
			writeTo(agents[0].Port, sw.Port(0), 0x1000, 1),
			writeTo(agents[0].Port, sw.Port(0), 0x1004, 2),
		}
		agents[1].toSend = []*umi.Packet{
			writeTo(agents[1].Port, sw.Port(1), 0x0008, 3),
		}

		run()

		Expect(agents[1].received).To(HaveLen(2))
		Expect(agents[1].received[0].Data).To(Equal([]byte{1}))
		Expect(agents[1].received[1].Data).To(Equal([]byte{2}))
		Expect(agents[0].received).To(HaveLen(1))
		Expect(agents[0].received[0].Data).To(Equal([]byte{3}))
	})

	It("should keep ingress order under egress contention", func() {
		build(3, RoundRobin)

		mapper := &SinglePortMapper{Port: agents[2].Port}
		sw.SetMapper(mapper)

		agents[0].toSend = []*umi.Packet{
			writeTo(agents[0].Port, sw.Port(0), 0x10, 10),
			writeTo(agents[0].Port, sw.Port(0), 0x14, 11),
			writeTo(agents[0].Port, sw.Port(0), 0x18, 12),
		}
		agents[1].toSend = []*umi.Packet{
			writeTo(agents[1].Port, sw.Port(1), 0x20, 20),
			writeTo(agents[1].Port, sw.Port(1), 0x24, 21),
			writeTo(agents[1].Port, sw.Port(1), 0x28, 22),
		}

		run()

		Expect(agents[2].received).To(HaveLen(6))

		var fromA, fromB []byte
		for _, pkt := range agents[2].received {
			b := pkt.Data[0]
			if b >= 20 {
				fromB = append(fromB, b)
			} else {
				fromA = append(fromA, b)
			}
		}
		Expect(fromA).To(Equal([]byte{10, 11, 12}))
		Expect(fromB).To(Equal([]byte{20, 21, 22}))
	})

	It("should deliver a broadcast to every target at once", func() {
		build(3, FixedPriority)

		mapper := &BroadcastPortMapper{
			Ports: []sim.Port{agents[1].Port, agents[2].Port},
		}
		sw.SetMapper(mapper)

		agents[0].toSend = []*umi.Packet{
			writeTo(agents[0].Port, sw.Port(0), 0x40, 7),
		}

		run()

		Expect(agents[1].received).To(HaveLen(1))
		Expect(agents[2].received).To(HaveLen(1))
		Expect(agents[1].received[0].Data).To(Equal([]byte{7}))
		Expect(agents[2].received[0].Data).To(Equal([]byte{7}))
		Expect(agents[1].received[0].ID).
			ToNot(Equal(agents[2].received[0].ID))
	})

	It("should never route through a masked pairing", func() {
		build(2, RoundRobin)
		sw.Mask(0, 1)

		mapper := &RangedPortMapper{}
		mapper.AddRange(0x0000, 0x1000, agents[0].Port)
		mapper.AddRange(0x1000, 0x2000, agents[1].Port)
		sw.SetMapper(mapper)

		agents[0].toSend = []*umi.Packet{
			writeTo(agents[0].Port, sw.Port(0), 0x1000, 8),
		}
		agents[1].toSend = []*umi.Packet{
			writeTo(agents[1].Port, sw.Port(1), 0x0000, 9),
		}

		run()

		// The masked packet parks at its ingress; the open direction still
		// flows.
		Expect(agents[1].received).To(BeEmpty())
		Expect(agents[0].received).To(HaveLen(1))
		Expect(agents[0].received[0].Data).To(Equal([]byte{9}))
	})
})
