package xbar

import (
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
)

// A Builder can build crossbar switches.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	numPorts    int
	mode        ArbitrationMode
	portBufSize int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		numPorts:    2,
		mode:        RoundRobin,
		portBufSize: 4,
	}
}

// WithEngine sets the event engine the switch runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the switch clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumPorts sets the number of ports.
func (b Builder) WithNumPorts(n int) Builder {
	b.numPorts = n
	return b
}

// WithArbitrationMode selects fixed-priority or round-robin arbitration.
func (b Builder) WithArbitrationMode(mode ArbitrationMode) Builder {
	b.mode = mode
	return b
}

// WithPortBufSize sets the capacity of the port buffers.
func (b Builder) WithPortBufSize(size int) Builder {
	b.portBufSize = size
	return b
}

// Build creates a crossbar with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		numPorts: b.numPorts,
		ports:    make([]sim.Port, b.numPorts),
		remotes:  make([]sim.Port, b.numPorts),
		localIdx: make(map[sim.Port]int),
		arbiter:  NewArbiter(b.numPorts, b.mode),
		requests: make([][]bool, b.numPorts),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	for i := 0; i < b.numPorts; i++ {
		portName := fmt.Sprintf("Port%d", i)
		c.ports[i] = sim.NewPort(c, b.portBufSize, b.portBufSize,
			name+"."+portName)
		c.AddPort(portName, c.ports[i])
		c.requests[i] = make([]bool, b.numPorts)
	}

	return c
}

// Mask suppresses the ingress-egress pairing on the built switch.
func (c *Comp) Mask(ingress, egress int) {
	c.arbiter.Mask(ingress, egress)
}
