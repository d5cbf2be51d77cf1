package umimem

import (
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// A Comp is a memory endpoint. Requests arrive at TopPort, are applied to
// the storage in arrival order, and responses leave after a fixed number of
// cycles. Posted writes produce no response; atomics return the value the
// memory held before the operation.
type Comp struct {
	*sim.TickingComponent

	TopPort sim.Port

	storage *Storage
	latency int
	rspDst  sim.Port

	inflight []*transaction
}

type transaction struct {
	cyclesLeft int
	rsp        *umi.Packet
}

// SetResponseDestination names the port responses are addressed to. It must
// be connected to TopPort.
func (c *Comp) SetResponseDestination(p sim.Port) {
	c.rspDst = p
}

// Storage exposes the backing storage, mainly for preloading test images.
func (c *Comp) Storage() *Storage {
	return c.storage
}

// Tick accepts at most one request and retires at most one response.
func (c *Comp) Tick() bool {
	madeProgress := c.respond()

	for _, t := range c.inflight {
		if t.cyclesLeft > 0 {
			t.cyclesLeft--
			madeProgress = true
		}
	}

	madeProgress = c.accept() || madeProgress

	return madeProgress
}

func (c *Comp) respond() bool {
	if len(c.inflight) == 0 {
		return false
	}

	head := c.inflight[0]
	if head.cyclesLeft > 0 {
		return false
	}

	if head.rsp.Src.Send(head.rsp) != nil {
		return false
	}

	c.inflight = c.inflight[1:]

	return true
}

func (c *Comp) accept() bool {
	msg := c.TopPort.PeekIncoming()
	if msg == nil {
		return false
	}

	pkt := msg.(*umi.Packet)
	rsp := c.serve(pkt)

	if rsp != nil {
		c.inflight = append(c.inflight, &transaction{
			cyclesLeft: c.latency,
			rsp:        rsp,
		})
	}

	c.TopPort.RetrieveIncoming()

	return true
}

// serve applies one request to the storage and builds its response, if any.
// A response swaps the request's addresses: it is routed to where the
// request came from.
func (c *Comp) serve(pkt *umi.Packet) *umi.Packet {
	opcode := pkt.Cmd.Opcode

	switch {
	case opcode == umi.OpWritePosted:
		c.storage.Write(pkt.DstAddr, pkt.Data)
		return nil

	case opcode == umi.OpWriteRequest:
		c.storage.Write(pkt.DstAddr, pkt.Data)

		return umi.PacketBuilder{}.
			WithSrc(c.TopPort).WithDst(c.rspDst).
			WithOpcode(umi.OpWriteResponse).
			WithSize(pkt.Cmd.Size).WithLen(pkt.Cmd.Len).
			WithDstAddr(pkt.SrcAddr).WithSrcAddr(pkt.DstAddr).
			Build()

	case opcode == umi.OpReadRequest:
		n := (uint64(pkt.Cmd.Len) + 1) << pkt.Cmd.Size
		data := c.storage.Read(pkt.DstAddr, n)

		return umi.PacketBuilder{}.
			WithSrc(c.TopPort).WithDst(c.rspDst).
			WithOpcode(umi.OpReadResponse).
			WithSize(pkt.Cmd.Size).
			WithDstAddr(pkt.SrcAddr).WithSrcAddr(pkt.DstAddr).
			WithData(data).
			Build()

	case opcode.IsAtomic():
		width := uint64(1) << pkt.Cmd.Size
		old := c.storage.Read(pkt.DstAddr, width)
		updated := applyAtomic(
			opcode.AtomicOp(), old, pkt.Data, pkt.Cmd.Size)
		c.storage.Write(pkt.DstAddr, updated)

		return umi.PacketBuilder{}.
			WithSrc(c.TopPort).WithDst(c.rspDst).
			WithOpcode(umi.OpReadResponse).
			WithSize(pkt.Cmd.Size).
			WithDstAddr(pkt.SrcAddr).WithSrcAddr(pkt.DstAddr).
			WithData(old).
			Build()
	}

	panic(fmt.Sprintf("memory cannot serve a %s packet", opcode))
}
