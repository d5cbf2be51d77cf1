package lumi

import "github.com/TomHuangsrc/umi/sim"

// ConnectEndpoints wires two endpoints into a full-duplex link by creating
// the two phit FIFOs between them. The FIFOs are the only shared state, so
// the endpoints may run in different clock domains. The FIFO depth models
// wire latency and the synchronizer stages of the crossing.
func ConnectEndpoints(name string, left, right *Comp, fifoDepth int) {
	if left.width != right.width {
		panic("endpoint widths do not match")
	}

	lr := sim.NewAsyncFIFO(name+".LeftToRight", fifoDepth)
	rl := sim.NewAsyncFIFO(name+".RightToLeft", fifoDepth)

	left.SetPhy(lr, rl)
	right.SetPhy(rl, lr)
}
