package lumi

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// linkAgent stands in for a core device: it pushes a list of pre-addressed
// packets into the link one per cycle and collects whatever the link
// delivers back.
type linkAgent struct {
	*sim.TickingComponent

	ReqPort sim.Port
	RspPort sim.Port

	toSend   []*umi.Packet
	received []*umi.Packet
}

func newLinkAgent(name string, engine sim.Engine) *linkAgent {
	a := &linkAgent{}
	a.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, a)
	a.ReqPort = sim.NewPort(a, 4, 4, name+".Req")
	a.RspPort = sim.NewPort(a, 4, 4, name+".Rsp")
	a.AddPort("Req", a.ReqPort)
	a.AddPort("Rsp", a.RspPort)

	return a
}

func (a *linkAgent) Tick() bool {
	madeProgress := false

	for _, port := range []sim.Port{a.ReqPort, a.RspPort} {
		if msg := port.RetrieveIncoming(); msg != nil {
			a.received = append(a.received, msg.(*umi.Packet))
			madeProgress = true
		}
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

func (a *linkAgent) byChannel(ch umi.Channel) []*umi.Packet {
	var out []*umi.Packet
	for _, pkt := range a.received {
		if pkt.Channel() == ch {
			out = append(out, pkt)
		}
	}
	return out
}

type linkFixture struct {
	engine      sim.Engine
	host, dev   *linkAgent
	left, right *Comp
}

func buildLinkFixture(width, credits int) *linkFixture {
	f := &linkFixture{}
	f.engine = sim.NewSerialEngine()

	builder := MakeBuilder().
		WithEngine(f.engine).
		WithWidth(width).
		WithInitialCredits(credits)
	f.left = builder.WithFreq(1 * sim.GHz).Build("Left")
	f.right = builder.WithFreq(1 * sim.GHz).Build("Right")
	ConnectEndpoints("Link", f.left, f.right, 2)

	f.host = newLinkAgent("Host", f.engine)
	f.dev = newLinkAgent("Dev", f.engine)

	pairs := []struct {
		name string
		a, b sim.Port
	}{
		{"HostReqConn", f.host.ReqPort, f.left.ReqPort},
		{"HostRspConn", f.host.RspPort, f.left.RspPort},
		{"DevReqConn", f.dev.ReqPort, f.right.ReqPort},
		{"DevRspConn", f.dev.RspPort, f.right.RspPort},
	}
	for _, pair := range pairs {
		conn := sim.NewDirectConnection(pair.name, f.engine, 1*sim.GHz)
		conn.PlugIn(pair.a)
		conn.PlugIn(pair.b)
	}

	f.left.SetRequestDestination(f.host.ReqPort)
	f.left.SetResponseDestination(f.host.RspPort)
	f.right.SetRequestDestination(f.dev.ReqPort)
	f.right.SetResponseDestination(f.dev.RspPort)

	return f
}

func (f *linkFixture) run() {
	f.host.TickLater()
	f.dev.TickLater()

	err := f.engine.Run()
	Expect(err).ToNot(HaveOccurred())
}

func hostRequests(f *linkFixture) []*umi.Packet {
	return []*umi.Packet{
		umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpWriteRequest).WithSize(2).
			WithDstAddr(0x1000).WithSrcAddr(0x10).
			WithData([]byte{1, 2, 3, 4, 5, 6, 7, 8}).
			Build(),
		umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpReadRequest).WithSize(3).WithLen(1).
			WithDstAddr(0x2000).WithSrcAddr(0x20).
			Build(),
		umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpWritePosted).WithSize(0).
			WithDstAddr(0x3000).
			WithData([]byte{0xAA, 0xBB, 0xCC}).
			Build(),
		umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpAtomicBase + umi.Opcode(umi.AtomicAdd)).
			WithSize(2).
			WithDstAddr(0x4000).WithSrcAddr(0x40).
			WithData([]byte{9, 9, 9, 9}).
			Build(),
	}
}

func devResponses(f *linkFixture) []*umi.Packet {
	return []*umi.Packet{
		umi.PacketBuilder{}.
			WithSrc(f.dev.RspPort).WithDst(f.right.RspPort).
			WithOpcode(umi.OpReadResponse).WithSize(3).
			WithDstAddr(0x20).WithSrcAddr(0x2000).
			WithData([]byte{8, 7, 6, 5, 4, 3, 2, 1,
				0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80}).
			Build(),
		umi.PacketBuilder{}.
			WithSrc(f.dev.RspPort).WithDst(f.right.RspPort).
			WithOpcode(umi.OpWriteResponse).WithSize(2).
			WithDstAddr(0x10).WithSrcAddr(0x1000).
			Build(),
	}
}

func expectSamePackets(got, want []*umi.Packet) {
	Expect(got).To(HaveLen(len(want)))
	for i := range want {
		Expect(got[i].Cmd).To(Equal(want[i].Cmd), "packet %d", i)
		Expect(got[i].DstAddr).To(Equal(want[i].DstAddr), "packet %d", i)
		Expect(got[i].SrcAddr).To(Equal(want[i].SrcAddr), "packet %d", i)
		Expect(got[i].Data).To(Equal(want[i].Data), "packet %d", i)
	}
}

var _ = Describe("Link", func() {
	for _, width := range []int{1, 2, 4, 8, 16, 32} {
		width := width

		It(fmt.Sprintf(
			"should carry traffic both ways at width %d", width,
		), func() {
			f := buildLinkFixture(width, 8)
			reqs := hostRequests(f)
			rsps := devResponses(f)
			f.host.toSend = append([]*umi.Packet{}, reqs...)
			f.dev.toSend = append([]*umi.Packet{}, rsps...)

			f.run()

			expectSamePackets(f.dev.byChannel(umi.ChannelRequest), reqs)
			expectSamePackets(f.host.byChannel(umi.ChannelResponse), rsps)
		})
	}

	It("should decode identically at width 1 and width 32", func() {
		narrow := buildLinkFixture(1, 8)
		narrow.host.toSend = hostRequests(narrow)
		narrow.run()

		wide := buildLinkFixture(32, 8)
		wide.host.toSend = hostRequests(wide)
		wide.run()

		expectSamePackets(wide.dev.received, narrow.dev.received)
	})

	It("should make progress with a single credit per channel", func() {
		f := buildLinkFixture(4, 1)
		reqs := hostRequests(f)
		f.host.toSend = append([]*umi.Packet{}, reqs...)

		f.run()

		expectSamePackets(f.dev.byChannel(umi.ChannelRequest), reqs)
	})

	It("should return every credit once the traffic drains", func() {
		f := buildLinkFixture(8, 4)
		f.host.toSend = hostRequests(f)
		f.dev.toSend = devResponses(f)

		f.run()

		for _, ep := range []*Comp{f.left, f.right} {
			for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
				Expect(ep.CreditsAvailable(ch)).To(Equal(4))
			}
		}
	})

	It("should keep per-channel order under mixed traffic", func() {
		f := buildLinkFixture(2, 3)
		reqs := hostRequests(f)
		rsps := devResponses(f)
		f.host.toSend = append([]*umi.Packet{}, reqs...)
		f.dev.toSend = append([]*umi.Packet{}, rsps...)

		f.run()

		expectSamePackets(f.dev.byChannel(umi.ChannelRequest), reqs)
		Expect(f.dev.byChannel(umi.ChannelResponse)).To(BeEmpty())
		expectSamePackets(f.host.byChannel(umi.ChannelResponse), rsps)
		Expect(f.host.byChannel(umi.ChannelRequest)).To(BeEmpty())
	})

	It("should exchange packets larger than the credit window", func() {
		// 28-byte packets are 14 phits at width 2, far beyond the 3-phit
		// window, so both framers stall mid-packet and can resume only if
		// credit updates interject between data phits in both directions.
		f := buildLinkFixture(2, 3)

		req := umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpWriteRequest).WithSize(0).
			WithDstAddr(0x1000).WithSrcAddr(0x10).
			WithData([]byte{1, 2, 3, 4, 5, 6, 7, 8}).
			Build()
		rsp := umi.PacketBuilder{}.
			WithSrc(f.dev.RspPort).WithDst(f.right.RspPort).
			WithOpcode(umi.OpReadResponse).WithSize(0).
			WithDstAddr(0x10).WithSrcAddr(0x1000).
			WithData([]byte{8, 7, 6, 5, 4, 3, 2, 1}).
			Build()

		f.host.toSend = []*umi.Packet{req}
		f.dev.toSend = []*umi.Packet{rsp}

		f.run()

		expectSamePackets(
			f.dev.byChannel(umi.ChannelRequest), []*umi.Packet{req})
		expectSamePackets(
			f.host.byChannel(umi.ChannelResponse), []*umi.Packet{rsp})
	})

	It("should panic when assembly runs past the predicted packet end", func() {
		engine := sim.NewSerialEngine()
		ep := MakeBuilder().WithEngine(engine).WithWidth(8).Build("EP")

		d := ep.deframer
		d.holding = true
		d.holdChannel = umi.ChannelRequest
		d.asmExpected = 4
		d.asmTotal = 4
		d.lanes[umi.ChannelRequest].pushPhit(Phit{Bytes: make([]byte, 8)})

		Expect(func() { d.assemble() }).To(
			PanicWith(MatchRegexp("framing overrun")))
	})

	It("should drop invalid packets without delivering them", func() {
		f := buildLinkFixture(4, 8)
		reqs := hostRequests(f)

		junk := umi.PacketBuilder{}.
			WithSrc(f.host.ReqPort).WithDst(f.left.ReqPort).
			WithOpcode(umi.OpInvalid).
			Build()

		f.host.toSend = []*umi.Packet{reqs[0], junk, reqs[1]}
		f.run()

		expectSamePackets(
			f.dev.byChannel(umi.ChannelRequest),
			[]*umi.Packet{reqs[0], reqs[1]})
	})
})
