package umimem

import "github.com/TomHuangsrc/umi/sim"

// A Builder can build memory endpoints.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	latency     int
	capacity    uint64
	portBufSize int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		latency:     10,
		capacity:    1 << 22,
		portBufSize: 4,
	}
}

// WithEngine sets the event engine the memory runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the memory clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets the access latency in cycles.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithCapacity sets the storage size in bytes.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithPortBufSize sets the capacity of the port buffers.
func (b Builder) WithPortBufSize(size int) Builder {
	b.portBufSize = size
	return b
}

// Build creates a memory endpoint with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		storage: NewStorage(b.capacity),
		latency: b.latency,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.TopPort = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Top")
	c.AddPort("Top", c.TopPort)

	return c
}
