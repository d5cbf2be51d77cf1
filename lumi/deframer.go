package lumi

import (
	"encoding/binary"
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// The deframer reassembles packets out of the phit stream. It runs as three
// stages within one endpoint tick: ingress classifies and steers arriving
// phits, assembly drains one channel's lane storage into a shared
// reassembly register, and the splitter hands finished packets to the core.
type deframer struct {
	width  int
	codec  umi.Codec
	credit *CreditManager

	rx    *sim.AsyncFIFO
	lanes [umi.NumChannels]*subBuffer
	out   *splitter

	// Ingress state for the data packet currently on the wire. Its phits
	// are contiguous with respect to the data stream, but control phits may
	// interject between them; seen counts bytes including tail padding,
	// total stays zero until four header bytes are in.
	inSeen    int
	inTotal   int
	inHdr     []byte
	inChannel umi.Channel

	// Command words arriving on the control lane, reassembled separately so
	// an interjected credit update lands even mid-data-packet.
	ctrlBuf []byte

	// Assembly register, shared by both channels. holdChannel is pinned
	// from the first drained phit until the packet completes.
	asmBuf      []byte
	asmExpected int
	asmTotal    int
	holding     bool
	holdChannel umi.Channel

	pendingOut *umi.Packet
}

// ingest pops at most one phit, classifies it, and steers it. Control-lane
// phits carry command-only packets: they bypass lane storage, consume no
// credit, and take effect the moment the command word is complete, even if
// they arrived between the phits of a data packet.
func (d *deframer) ingest() bool {
	raw := d.rx.Peek()
	if raw == nil {
		return false
	}
	phit := raw.(Phit)

	if phit.Ctrl {
		d.rx.Pop()
		d.ingestControl(phit)

		return true
	}

	if d.inSeen == 0 {
		d.inChannel = umi.DecodeOpcode(uint32(phit.Bytes[0])).Channel()
	}

	if !d.lanes[d.inChannel].canPush() {
		panic(fmt.Sprintf(
			"credit overrun: phit arrived for full %s lanes", d.inChannel))
	}

	d.rx.Pop()

	if len(d.inHdr) < umi.CmdBytes {
		take := umi.CmdBytes - len(d.inHdr)
		if take > d.width {
			take = d.width
		}
		d.inHdr = append(d.inHdr, phit.Bytes[:take]...)
	}

	if d.inTotal == 0 && len(d.inHdr) == umi.CmdBytes {
		n, err := d.codec.PacketBytes(binary.LittleEndian.Uint32(d.inHdr))
		if err != nil {
			panic(err)
		}
		d.inTotal = phitAlign(n, d.width)
	}

	d.lanes[d.inChannel].pushPhit(phit)

	d.inSeen += d.width

	if d.inTotal != 0 && d.inSeen >= d.inTotal {
		d.inSeen = 0
		d.inTotal = 0
		d.inHdr = d.inHdr[:0]
	}

	return true
}

// ingestControl accumulates a control-lane phit. A command-only packet is
// the four command bytes plus tail padding, so narrow links deliver it over
// several phits; those phits never interleave with other control packets.
func (d *deframer) ingestControl(phit Phit) {
	d.ctrlBuf = append(d.ctrlBuf, phit.Bytes...)

	if len(d.ctrlBuf) < umi.CmdBytes {
		return
	}

	d.applyControl(binary.LittleEndian.Uint32(d.ctrlBuf[:umi.CmdBytes]))
	d.ctrlBuf = d.ctrlBuf[:0]
}

// applyControl handles a completed command-only packet. Credit updates feed
// the credit manager; invalid and reserved commands are dropped here, never
// reaching either core port.
func (d *deframer) applyControl(raw uint32) {
	cmd := umi.UnpackCommand(raw)

	if cmd.Opcode == umi.OpLinkControl {
		d.credit.OnRemoteCreditUpdate(cmd.LinkChannel, cmd.LinkValue)
	}
}

// assemble drains at most one phit from lane storage into the reassembly
// register. The register is shared: once a packet's first phit lands, the
// channel is held until the packet completes, so channels never interleave
// mid-packet. Draining a phit is what frees its credit.
func (d *deframer) assemble() bool {
	if d.pendingOut != nil {
		return false
	}

	if !d.holding {
		if !d.pickHoldChannel() {
			return false
		}
	}

	if d.lanes[d.holdChannel].empty() {
		return false
	}

	bytes := d.lanes[d.holdChannel].popPhit()
	d.credit.OnLocalReceive(d.holdChannel)
	d.asmBuf = append(d.asmBuf, bytes...)

	if d.asmTotal == 0 && len(d.asmBuf) >= umi.CmdBytes {
		n, err := d.codec.PacketBytes(binary.LittleEndian.Uint32(d.asmBuf))
		if err != nil {
			panic(err)
		}
		d.asmExpected = n
		d.asmTotal = phitAlign(n, d.width)
	}

	if d.asmTotal != 0 && len(d.asmBuf) > d.asmTotal {
		panic(fmt.Sprintf(
			"framing overrun: %d bytes assembled, packet ends at %d",
			len(d.asmBuf), d.asmTotal))
	}

	if d.asmTotal != 0 && len(d.asmBuf) == d.asmTotal {
		d.finishPacket()
	}

	return true
}

// pickHoldChannel chooses which channel the reassembly register serves
// next. The request channel wins when both have data waiting.
func (d *deframer) pickHoldChannel() bool {
	for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
		if !d.lanes[ch].empty() {
			d.holding = true
			d.holdChannel = ch
			return true
		}
	}
	return false
}

// finishPacket decodes the completed register contents, discarding the tail
// padding, and releases the register. The register wraps to empty exactly
// at the phit boundary, so the next packet starts clean.
func (d *deframer) finishPacket() {
	pkt, _, err := d.codec.Decode(d.asmBuf[:d.asmExpected])
	if err != nil {
		panic(err)
	}

	pkt.TrafficBytes = d.asmExpected
	d.pendingOut = pkt
	d.asmBuf = d.asmBuf[:0]
	d.asmExpected = 0
	d.asmTotal = 0
	d.holding = false
}

// emit hands the completed packet to the splitter. The deframer does not
// advance a channel while the core cannot accept its packet.
func (d *deframer) emit() bool {
	if d.pendingOut == nil {
		return false
	}

	if !d.out.trySend(d.pendingOut) {
		return false
	}

	d.pendingOut = nil

	return true
}
