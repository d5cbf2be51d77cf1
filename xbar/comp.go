package xbar

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// A Comp is an N-by-N packet switch. Every local port is both an ingress
// and an egress; packets are routed by destination address through the
// configured mapper and arbitrated per egress.
//
// A packet that maps to several remote ports is a broadcast: it moves only
// in a cycle where every targeted egress has granted its ingress and can
// accept, and it is then forwarded to all of them at once. A packet that
// cannot move stays at the head of its ingress, so packets through any one
// ingress keep their order.
type Comp struct {
	*sim.TickingComponent

	numPorts int
	ports    []sim.Port
	remotes  []sim.Port
	localIdx map[sim.Port]int

	mapper  AddressToPortMapper
	arbiter *Arbiter

	requests [][]bool
}

// Port returns the local port with the given index.
func (c *Comp) Port(i int) sim.Port {
	return c.ports[i]
}

// SetMapper installs the address-to-port mapper. The mapper must only
// return ports previously registered with ConnectRemote.
func (c *Comp) SetMapper(m AddressToPortMapper) {
	c.mapper = m
}

// ConnectRemote records that the remote port sits beyond local port i.
// Packets routed to the remote port leave through local port i.
func (c *Comp) ConnectRemote(i int, remote sim.Port) {
	c.remotes[i] = remote
	c.localIdx[remote] = i
}

// Tick moves at most one packet per ingress, subject to arbitration.
func (c *Comp) Tick() bool {
	madeProgress := false

	heads := make([]*umi.Packet, c.numPorts)
	targets := make([][]int, c.numPorts)

	for i := range c.requests {
		for j := range c.requests[i] {
			c.requests[i][j] = false
		}
	}

	for i, port := range c.ports {
		msg := port.PeekIncoming()
		if msg == nil {
			continue
		}

		pkt := msg.(*umi.Packet)
		heads[i] = pkt

		for _, remote := range c.mapper.Find(pkt.DstAddr) {
			j, found := c.localIdx[remote]
			if !found {
				panic("mapper returned an unregistered port")
			}
			targets[i] = append(targets[i], j)
			c.requests[i][j] = true
		}
	}

	grants := c.arbiter.Arbitrate(c.requests)

	for i, pkt := range heads {
		if pkt == nil {
			continue
		}

		ready := true
		for _, j := range targets[i] {
			if grants[j] != i || !c.ports[j].CanSend() {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		c.ports[i].RetrieveIncoming()

		for n, j := range targets[i] {
			out := pkt
			if n > 0 {
				out = pkt.Clone().(*umi.Packet)
			}
			out.Src = c.ports[j]
			out.Dst = c.remotes[j]

			err := c.ports[j].Send(out)
			if err != nil {
				panic("egress refused a send after reporting CanSend")
			}

			c.arbiter.Commit(j)
		}

		madeProgress = true
	}

	return madeProgress
}
