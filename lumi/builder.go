package lumi

import (
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// MaxWidth is the widest supported link, one full DW=256 beat per cycle.
const MaxWidth = 32

// A Builder can build link endpoints.
type Builder struct {
	engine         sim.Engine
	freq           sim.Freq
	width          int
	initialCredits int
	portBufSize    int
	codec          umi.Codec
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:           1 * sim.GHz,
		width:          8,
		initialCredits: 16,
		portBufSize:    4,
		codec:          umi.DefaultCodec,
	}
}

// WithEngine sets the event engine the endpoint runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the link clock frequency of the endpoint.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWidth sets the link width in bytes per cycle. The width must be a
// power of two between 1 and 32.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithInitialCredits sets the per-channel credit count, which is also the
// depth of the receive lane storage in phits.
func (b Builder) WithInitialCredits(credits int) Builder {
	b.initialCredits = credits
	return b
}

// WithPortBufSize sets the capacity of the core-side port buffers.
func (b Builder) WithPortBufSize(size int) Builder {
	b.portBufSize = size
	return b
}

// WithCodec sets the packet codec, controlling the maximum transfer size
// and strictness toward reserved opcodes.
func (b Builder) WithCodec(codec umi.Codec) Builder {
	b.codec = codec
	return b
}

// Build creates a link endpoint with the given name.
func (b Builder) Build(name string) *Comp {
	if b.width <= 0 || b.width > MaxWidth || b.width&(b.width-1) != 0 {
		panic(fmt.Sprintf("link width %d is not a power of two in [1, %d]",
			b.width, MaxWidth))
	}

	c := &Comp{
		width:   b.width,
		credits: NewCreditManager(b.initialCredits),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.ReqPort = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Req")
	c.RspPort = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Rsp")
	c.AddPort("Req", c.ReqPort)
	c.AddPort("Rsp", c.RspPort)

	c.splitter = &splitter{
		reqOut: c.ReqPort,
		rspOut: c.RspPort,
	}

	c.framer = &framer{
		width:  b.width,
		codec:  b.codec,
		credit: c.credits,
		reqIn:  c.ReqPort,
		rspIn:  c.RspPort,
	}

	c.deframer = &deframer{
		width:  b.width,
		codec:  b.codec,
		credit: c.credits,
		out:    c.splitter,
	}
	for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
		c.deframer.lanes[ch] = newSubBuffer(
			fmt.Sprintf("%s.%sLanes", name, ch),
			b.width, b.initialCredits)
	}

	return c
}
