package lumi

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// The splitter routes each reassembled packet to the request or response
// core port by opcode class. Back-pressure is per channel: a refused send
// stalls only the packet's own channel, and a packet is handed over exactly
// once. Link-control traffic is consumed earlier and never reaches it.
type splitter struct {
	reqOut sim.Port
	rspOut sim.Port
	reqDst sim.Port
	rspDst sim.Port
}

func (s *splitter) trySend(pkt *umi.Packet) bool {
	var out, dst sim.Port

	switch pkt.Channel() {
	case umi.ChannelRequest:
		out, dst = s.reqOut, s.reqDst
	case umi.ChannelResponse:
		out, dst = s.rspOut, s.rspDst
	}

	if dst == nil {
		panic("no destination configured for " + pkt.Channel().String() +
			" channel")
	}

	pkt.ID = sim.GetIDGenerator().Generate()
	pkt.Src = out
	pkt.Dst = dst
	pkt.TrafficClass = pkt.Cmd.Opcode.String()

	return out.Send(pkt) == nil
}
