package tracing

import (
	"github.com/TomHuangsrc/umi/datarecording"
	"github.com/tebeka/atexit"
)

const packetTraceTable = "packet_trace"

// Column names avoid SQL keywords; the recorder emits them unquoted.
type packetTraceEntry struct {
	Time     float64
	Location string
	Dir      string
	ID       string
	Opcode   string
	DstAddr  uint64
	SrcAddr  uint64
	NumBytes int
}

// A DBTracer stores packet events in a recording database.
type DBTracer struct {
	backend datarecording.DataRecorder
}

// NewDBTracer creates a tracer writing into the recorder.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{backend: backend}
	t.backend.CreateTable(packetTraceTable, packetTraceEntry{})

	atexit.Register(func() { t.backend.Flush() })

	return t
}

// OnPacket records one packet event.
func (t *DBTracer) OnPacket(e PacketEvent) {
	t.backend.InsertData(packetTraceTable, packetTraceEntry{
		Time:     float64(e.Time),
		Location: e.Location,
		Dir:      e.Dir,
		ID:       e.ID,
		Opcode:   e.Opcode,
		DstAddr:  e.DstAddr,
		SrcAddr:  e.SrcAddr,
		NumBytes: e.NumBytes,
	})
}
