package umi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire geometry. The command word is CW=32 bits, addresses are AW=64 bits,
// and a beat carries at most DW=256 bits of data.
const (
	CmdBytes    = 4
	AddrBytes   = 8
	HeaderBytes = CmdBytes + 2*AddrBytes

	// MaxSize is the largest log2 beat size a DW=256 data path can carry.
	MaxSize = 5

	// MaxPacketBytes bounds the reassembly storage: a full header plus 256
	// beats of the widest size.
	MaxPacketBytes = HeaderBytes + 256<<MaxSize
)

// ErrMalformedCommand reports a command word that cannot describe a legal
// packet: a size beyond the configured maximum, or, in strict mode, a
// reserved opcode.
var ErrMalformedCommand = errors.New("malformed command")

// A Codec translates packets to and from their little-endian wire form. The
// zero value is not useful; use DefaultCodec or construct one with the
// supported maximum size.
type Codec struct {
	// MaxSize is the largest supported log2 beat size.
	MaxSize uint8

	// Strict makes decoding fail on reserved opcodes instead of passing
	// them through as command-only Invalid packets.
	Strict bool
}

// DefaultCodec accepts all sizes a DW=256 link can carry and is lenient.
var DefaultCodec = Codec{MaxSize: MaxSize}

// PacketBytes predicts the total wire length of a packet from its raw
// command word alone. Both the encode and the decode path use this one
// function; the link framer depends on the two always agreeing.
func (c Codec) PacketBytes(raw uint32) (int, error) {
	cmd := UnpackCommand(raw)
	opcode := cmd.Opcode

	if opcode.Class() == ClassReserved && c.Strict {
		return 0, fmt.Errorf("%w: reserved opcode 0x%02X",
			ErrMalformedCommand, uint8(opcode))
	}

	if opcode.IsCommandOnly() {
		return CmdBytes, nil
	}

	if cmd.Size > c.MaxSize {
		return 0, fmt.Errorf("%w: size %d exceeds maximum %d",
			ErrMalformedCommand, cmd.Size, c.MaxSize)
	}

	if !opcode.HasData() {
		return HeaderBytes, nil
	}

	payload := (int(cmd.Len) + 1) << cmd.Size

	return HeaderBytes + payload, nil
}

// MustPacketBytes is PacketBytes for command words already known valid.
func (c Codec) MustPacketBytes(raw uint32) int {
	n, err := c.PacketBytes(raw)
	if err != nil {
		panic(err)
	}
	return n
}

// Encode serializes a packet into its wire form: the command word, then the
// destination and source addresses, then the payload, all little-endian.
// Command-only packets are the command word alone.
func (c Codec) Encode(p *Packet) ([]byte, error) {
	raw := p.Cmd.Pack()

	total, err := c.PacketBytes(raw)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf, raw)

	if p.Cmd.Opcode.IsCommandOnly() {
		return buf, nil
	}

	binary.LittleEndian.PutUint64(buf[CmdBytes:], p.DstAddr)
	binary.LittleEndian.PutUint64(buf[CmdBytes+AddrBytes:], p.SrcAddr)

	if p.Cmd.Opcode.HasData() {
		if len(p.Data) != total-HeaderBytes {
			return nil, fmt.Errorf(
				"payload is %d bytes, command describes %d",
				len(p.Data), total-HeaderBytes)
		}
		copy(buf[HeaderBytes:], p.Data)
	}

	return buf, nil
}

// Decode deserializes one packet from the head of b, returning the packet
// and the number of bytes consumed. The returned packet never aliases b.
// In lenient mode a reserved opcode decodes as a command-only Invalid
// packet and passes through.
func (c Codec) Decode(b []byte) (*Packet, int, error) {
	if len(b) < CmdBytes {
		return nil, 0, fmt.Errorf(
			"need %d bytes to decode a command, have %d", CmdBytes, len(b))
	}

	raw := binary.LittleEndian.Uint32(b)

	total, err := c.PacketBytes(raw)
	if err != nil {
		return nil, 0, err
	}

	if len(b) < total {
		return nil, 0, fmt.Errorf(
			"need %d bytes to decode the packet, have %d", total, len(b))
	}

	p := &Packet{Cmd: UnpackCommand(raw)}

	if p.Cmd.Opcode.Class() == ClassReserved {
		p.Cmd = Command{Opcode: OpInvalid}
		return p, total, nil
	}

	if p.Cmd.Opcode.IsCommandOnly() {
		return p, total, nil
	}

	p.DstAddr = binary.LittleEndian.Uint64(b[CmdBytes:])
	p.SrcAddr = binary.LittleEndian.Uint64(b[CmdBytes+AddrBytes:])

	if p.Cmd.Opcode.HasData() {
		p.Data = append([]byte(nil), b[HeaderBytes:total]...)
	}

	return p, total, nil
}
