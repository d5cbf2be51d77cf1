package tracing

import "log"

// A LogTracer prints packet events through a standard logger. It is mainly
// useful for debugging small simulations.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a tracer that writes to the logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// OnPacket logs one packet event.
func (t *LogTracer) OnPacket(e PacketEvent) {
	t.logger.Printf("%.10f %s %s %s dst=0x%X src=0x%X bytes=%d",
		float64(e.Time), e.Location, e.Dir, e.Opcode,
		e.DstAddr, e.SrcAddr, e.NumBytes)
}
