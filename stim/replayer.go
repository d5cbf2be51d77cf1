package stim

import (
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/umi"
)

// A Replayer is a host agent that injects traced transactions into a link
// at their recorded pacing and collects the responses. Invalid records are
// skipped; a record's delay counts from the previous transaction.
type Replayer struct {
	*sim.TickingComponent

	ReqPort sim.Port
	RspPort sim.Port

	reqDst  sim.Port
	records []Record

	idx       int
	delayLeft int
	started   bool

	Responses []*umi.Packet
}

// NewReplayer creates a replayer that will issue the given records.
func NewReplayer(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	records []Record,
) *Replayer {
	r := &Replayer{records: records, delayLeft: -1}
	r.TickingComponent = sim.NewTickingComponent(name, engine, freq, r)

	r.ReqPort = sim.NewPort(r, 4, 4, name+".Req")
	r.RspPort = sim.NewPort(r, 4, 4, name+".Rsp")
	r.AddPort("Req", r.ReqPort)
	r.AddPort("Rsp", r.RspPort)

	return r
}

// SetRequestDestination names the port requests are addressed to. It must
// be connected to ReqPort.
func (r *Replayer) SetRequestDestination(p sim.Port) {
	r.reqDst = p
}

// Done reports whether every record has been issued and every expected
// response has arrived.
func (r *Replayer) Done() bool {
	return r.idx >= len(r.records) && r.outstanding() == 0
}

func (r *Replayer) outstanding() int {
	expected := 0
	for i := 0; i < r.idx; i++ {
		rec := r.records[i]
		if rec.Valid && rec.Cmd.Opcode.NeedsResponse() {
			expected++
		}
	}
	return expected - len(r.Responses)
}

// Tick collects at most one response and issues at most one transaction.
func (r *Replayer) Tick() bool {
	madeProgress := false

	if msg := r.RspPort.RetrieveIncoming(); msg != nil {
		r.Responses = append(r.Responses, msg.(*umi.Packet))
		madeProgress = true
	}

	madeProgress = r.issue() || madeProgress

	return madeProgress
}

func (r *Replayer) issue() bool {
	for r.idx < len(r.records) && !r.records[r.idx].Valid {
		r.idx++
	}

	if r.idx >= len(r.records) {
		return false
	}

	rec := r.records[r.idx]

	if r.delayLeft < 0 {
		r.delayLeft = rec.Delay
	}

	if r.delayLeft > 0 {
		r.delayLeft--
		return true
	}

	pkt := &umi.Packet{
		Cmd:     rec.Cmd,
		DstAddr: rec.DstAddr,
		SrcAddr: rec.SrcAddr,
		Data:    append([]byte(nil), rec.Data...),
	}
	pkt.ID = sim.GetIDGenerator().Generate()
	pkt.Src = r.ReqPort
	pkt.Dst = r.reqDst
	pkt.TrafficClass = rec.Cmd.Opcode.String()

	if r.ReqPort.Send(pkt) != nil {
		return false
	}

	r.idx++
	r.delayLeft = -1

	return true
}
