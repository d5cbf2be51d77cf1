package lumi

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// A Comp is one endpoint of a link. The core side is a pair of ports, one
// per data channel: the attached device sends packets to transmit into them
// and receives reassembled packets out of them. The phy side is a pair of
// AsyncFIFOs set with SetPhy; the FIFOs are the clock-domain crossing, so
// the two endpoints of a link may tick at different frequencies.
type Comp struct {
	*sim.TickingComponent

	ReqPort sim.Port
	RspPort sim.Port

	width   int
	credits *CreditManager

	framer   *framer
	deframer *deframer
	splitter *splitter
}

// SetPhy attaches the endpoint to its wire: tx carries phits toward the far
// side, rx carries phits from it. The endpoint registers wake callbacks so
// it resumes ticking when the wire state changes.
func (c *Comp) SetPhy(tx, rx *sim.AsyncFIFO) {
	c.framer.tx = tx
	c.deframer.rx = rx

	tx.NotifyWriter(c.TickLater)
	rx.NotifyReader(c.TickLater)
}

// SetRequestDestination names the port that receives reassembled request
// packets. It must be connected to ReqPort.
func (c *Comp) SetRequestDestination(p sim.Port) {
	c.splitter.reqDst = p
}

// SetResponseDestination names the port that receives reassembled response
// packets. It must be connected to RspPort.
func (c *Comp) SetResponseDestination(p sim.Port) {
	c.splitter.rspDst = p
}

// Width returns the link width in bytes per cycle.
func (c *Comp) Width() int {
	return c.width
}

// CreditsAvailable returns the transmit credits left on a channel, for
// monitoring.
func (c *Comp) CreditsAvailable(ch umi.Channel) int {
	return c.credits.Available(ch)
}

// Tick runs the endpoint for one link cycle: the receive pipeline from back
// to front, then the transmit side. Each stage moves at most one phit or
// packet per cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.deframer.emit() || madeProgress
	madeProgress = c.deframer.assemble() || madeProgress
	madeProgress = c.deframer.ingest() || madeProgress
	madeProgress = c.framer.transmit() || madeProgress

	return madeProgress
}
