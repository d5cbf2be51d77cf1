// Package tracing observes packet traffic through port hooks and forwards
// it to pluggable tracers.
package tracing

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// A PacketEvent describes one observation of a packet at a port.
type PacketEvent struct {
	Time     sim.VTimeInSec
	Location string
	Dir      string
	ID       string
	Opcode   string
	DstAddr  uint64
	SrcAddr  uint64
	NumBytes int
}

// A Tracer consumes packet events.
type Tracer interface {
	OnPacket(e PacketEvent)
}

// CollectTrace hooks the tracer to a port so that every packet sent or
// received there is reported.
func CollectTrace(port sim.Port, teller sim.TimeTeller, tracer Tracer) {
	port.AcceptHook(&traceHook{tracer: tracer, teller: teller})
}

type traceHook struct {
	tracer Tracer
	teller sim.TimeTeller
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	var dir string
	switch ctx.Pos {
	case sim.HookPosPortMsgSend:
		dir = "send"
	case sim.HookPosPortMsgRecvd:
		dir = "recv"
	default:
		return
	}

	pkt, ok := ctx.Item.(*umi.Packet)
	if !ok {
		return
	}

	h.tracer.OnPacket(PacketEvent{
		Time:     h.teller.CurrentTime(),
		Location: ctx.Domain.(sim.Named).Name(),
		Dir:      dir,
		ID:       pkt.ID,
		Opcode:   pkt.Cmd.Opcode.String(),
		DstAddr:  pkt.DstAddr,
		SrcAddr:  pkt.SrcAddr,
		NumBytes: pkt.TrafficBytes,
	})
}
