// Package lumi implements the link layer that carries UMI packets over a
// narrow, credit-flow-controlled physical channel. An endpoint combines a
// framer on the transmit side with a deframer, per-channel sub-buffer lanes,
// and a channel splitter on the receive side. The two directions of a link
// are a pair of sim.AsyncFIFOs, which are also the clock-domain crossing
// between the two endpoints.
package lumi

// A Phit is one physical-layer transfer: exactly the configured link width
// in bytes. The tail phit of a packet is zero-padded to full width.
//
// Ctrl models the sideband lane marker: it tags phits of command-only
// packets, which travel uncredited and may interject between the phits of a
// stalled data packet. Phits of any one packet, control or data, are still
// contiguous with respect to their own lane.
type Phit struct {
	Bytes []byte
	Ctrl  bool
}
