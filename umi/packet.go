package umi

import (
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
)

// A Packet is the atomic unit of the UMI protocol. Packets implement sim.Msg
// so that they can travel over ports and connections unchanged.
type Packet struct {
	sim.MsgMeta

	Cmd     Command
	DstAddr uint64
	SrcAddr uint64
	Data    []byte
}

// Meta returns the meta data associated with the packet.
func (p *Packet) Meta() *sim.MsgMeta {
	return &p.MsgMeta
}

// Clone returns a copy of the packet with a different ID. The payload is
// deep-copied so that the clone never aliases the original.
func (p *Packet) Clone() sim.Msg {
	clonePkt := *p
	clonePkt.ID = sim.GetIDGenerator().Generate()
	clonePkt.Data = append([]byte(nil), p.Data...)

	return &clonePkt
}

// Channel returns the data channel the packet travels on.
func (p *Packet) Channel() Channel {
	return p.Cmd.Opcode.Channel()
}

// PayloadBytes returns the total payload size implied by the command.
func (p *Packet) PayloadBytes() int {
	if !p.Cmd.Opcode.HasData() {
		return 0
	}
	return (int(p.Cmd.Len) + 1) << p.Cmd.Size
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s dst=0x%X src=0x%X size=%d len=%d",
		p.Cmd.Opcode, p.DstAddr, p.SrcAddr, p.Cmd.Size, p.Cmd.Len)
}

// PacketBuilder can build packets.
type PacketBuilder struct {
	src, dst  sim.Port
	opcode    Opcode
	size      uint8
	dstAddr   uint64
	srcAddr   uint64
	data      []byte
	noDataLen uint8
	qos       uint8
	prot      uint8
	ex        bool
	err       uint8
}

// WithSrc sets the source port of the packet to build.
func (b PacketBuilder) WithSrc(src sim.Port) PacketBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the packet to build.
func (b PacketBuilder) WithDst(dst sim.Port) PacketBuilder {
	b.dst = dst
	return b
}

// WithOpcode sets the opcode of the packet to build.
func (b PacketBuilder) WithOpcode(opcode Opcode) PacketBuilder {
	b.opcode = opcode
	return b
}

// WithSize sets the log2 transfer size per beat.
func (b PacketBuilder) WithSize(size uint8) PacketBuilder {
	b.size = size
	return b
}

// WithDstAddr sets the destination address of the packet to build.
func (b PacketBuilder) WithDstAddr(addr uint64) PacketBuilder {
	b.dstAddr = addr
	return b
}

// WithSrcAddr sets the source address. A source address is required for any
// command that demands a response.
func (b PacketBuilder) WithSrcAddr(addr uint64) PacketBuilder {
	b.srcAddr = addr
	return b
}

// WithData sets the payload of the packet to build. The payload length must
// be a whole number of beats of the configured size.
func (b PacketBuilder) WithData(data []byte) PacketBuilder {
	b.data = data
	return b
}

// WithQoS sets the quality-of-service bits.
func (b PacketBuilder) WithQoS(qos uint8) PacketBuilder {
	b.qos = qos
	return b
}

// WithProt sets the protection bits.
func (b PacketBuilder) WithProt(prot uint8) PacketBuilder {
	b.prot = prot
	return b
}

// WithExclusive marks the transaction exclusive.
func (b PacketBuilder) WithExclusive() PacketBuilder {
	b.ex = true
	return b
}

// WithErr sets the error code on a response packet.
func (b PacketBuilder) WithErr(err uint8) PacketBuilder {
	b.err = err
	return b
}

// Build creates a new packet. The beat count is derived from the payload
// length; a single message always ends with EOM set.
func (b PacketBuilder) Build() *Packet {
	p := &Packet{}
	p.ID = sim.GetIDGenerator().Generate()
	p.Src = b.src
	p.Dst = b.dst
	p.TrafficClass = b.opcode.String()

	p.Cmd = Command{
		Opcode: b.opcode,
		Size:   b.size,
		QoS:    b.qos,
		Prot:   b.prot,
		EOM:    true,
		Ex:     b.ex,
		Err:    b.err,
	}
	p.DstAddr = b.dstAddr
	p.SrcAddr = b.srcAddr

	if b.opcode.HasData() {
		beatBytes := 1 << b.size
		if len(b.data) == 0 || len(b.data)%beatBytes != 0 {
			panic(fmt.Sprintf(
				"payload of %d bytes is not a whole number of %d-byte beats",
				len(b.data), beatBytes))
		}

		beats := len(b.data) / beatBytes
		if beats > 256 {
			panic("payload exceeds 256 beats")
		}

		p.Cmd.Len = uint8(beats - 1)
		p.Data = append([]byte(nil), b.data...)
	} else {
		// No-data commands still carry size/len describing the transfer.
		p.Cmd.Len = b.noDataLen
	}

	p.TrafficBytes = DefaultCodec.MustPacketBytes(p.Cmd.Pack())

	return p
}

// WithLen sets the beat count (len = beats-1) explicitly for commands that
// carry no payload, such as read requests.
func (b PacketBuilder) WithLen(l uint8) PacketBuilder {
	b.noDataLen = l
	return b
}
