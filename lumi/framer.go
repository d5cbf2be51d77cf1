package lumi

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// phitAlign rounds a byte count up to a whole number of phits.
func phitAlign(n, width int) int {
	return (n + width - 1) / width * width
}

// The framer serializes packets into phits, one per link cycle. It owns the
// transmit direction of an endpoint: credit-update injection, packet
// selection, encoding, and per-phit credit consumption.
type framer struct {
	width  int
	codec  umi.Codec
	credit *CreditManager

	reqIn sim.Port
	rspIn sim.Port
	tx    *sim.AsyncFIFO

	// In-flight packet, already encoded and padded to a phit boundary.
	pending  []byte
	credited bool
	channel  umi.Channel

	// In-flight credit update. It drains ahead of pending and may interject
	// between the phits of a data packet stalled on credit, so the control
	// lane keeps moving while data is blocked. Without that, two endpoints
	// both stalled mid-packet could each be waiting for the credit update
	// the other cannot send.
	ctrl []byte
}

// transmit advances the transmit side by at most one phit.
func (f *framer) transmit() bool {
	progress := false

	if len(f.ctrl) == 0 && (len(f.pending) == 0 || f.credited) {
		progress = f.pickExport()
	}

	if len(f.ctrl) > 0 {
		if f.tx.Full() {
			return progress
		}

		f.tx.Push(Phit{Bytes: f.ctrl[:f.width:f.width], Ctrl: true})
		f.ctrl = f.ctrl[f.width:]

		return true
	}

	if len(f.pending) == 0 {
		progress = f.pickNext() || progress
		if len(f.pending) == 0 {
			return progress
		}
	}

	if f.tx.Full() {
		return progress
	}

	if f.credited && f.credit.Available(f.channel) <= 0 {
		return progress
	}

	if f.credited {
		f.credit.Consume(f.channel)
	}

	phit := Phit{Bytes: f.pending[:f.width:f.width], Ctrl: !f.credited}
	f.pending = f.pending[f.width:]
	f.tx.Push(phit)

	return true
}

// pickExport loads a due credit update into the control lane. Exports are
// interjected only when no other command-only packet is in flight, so the
// control lane stays contiguous on the wire.
func (f *framer) pickExport() bool {
	for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
		cmd, ok := f.credit.ExportUpdate(ch)
		if !ok {
			continue
		}

		buf, err := f.codec.Encode(&umi.Packet{Cmd: cmd})
		if err != nil {
			panic(err)
		}

		f.ctrl = make([]byte, phitAlign(len(buf), f.width))
		copy(f.ctrl, buf)

		return true
	}

	return false
}

// pickNext selects the next core packet to serialize. The request channel
// wins when both ports hold one.
func (f *framer) pickNext() bool {
	for _, port := range []sim.Port{f.reqIn, f.rspIn} {
		msg := port.PeekIncoming()
		if msg == nil {
			continue
		}

		pkt := msg.(*umi.Packet)
		f.load(pkt)
		port.RetrieveIncoming()

		return true
	}

	return false
}

// load encodes the packet, pads it to a phit boundary, and works out the
// flow-control class of its phits. Command-only packets with no data
// channel, link control among them, travel uncredited on the control lane.
func (f *framer) load(pkt *umi.Packet) {
	buf, err := f.codec.Encode(pkt)
	if err != nil {
		panic(err)
	}

	padded := make([]byte, phitAlign(len(buf), f.width))
	copy(padded, buf)

	f.pending = padded

	switch pkt.Cmd.Opcode.Class() {
	case umi.ClassRequest, umi.ClassResponse:
		f.credited = true
		f.channel = pkt.Cmd.Opcode.Channel()
	default:
		f.credited = false
	}
}
