// Package umi models the UMI memory-transaction protocol: the command word,
// the packet structure, and the codec that maps packets to and from the wire
// byte stream.
package umi

import "fmt"

// An Opcode identifies the class and subtype of a UMI command. Atomic
// requests occupy a contiguous range so that the atomic operation can be
// recovered from the opcode alone.
type Opcode uint8

// The supported opcodes. All unlisted values are reserved.
const (
	OpInvalid       Opcode = 0x00
	OpReadRequest   Opcode = 0x01
	OpReadResponse  Opcode = 0x02
	OpWriteRequest  Opcode = 0x03
	OpWriteResponse Opcode = 0x04
	OpWritePosted   Opcode = 0x05
	OpLinkResponse  Opcode = 0x0E
	OpLinkControl   Opcode = 0x0F

	// OpAtomicBase+op, for op in [AtomicAdd, AtomicSwap].
	OpAtomicBase Opcode = 0x10
)

// An AtomicOp selects the read-modify-write operation of an atomic request.
type AtomicOp uint8

// The atomic operations.
const (
	AtomicAdd AtomicOp = iota
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicMax
	AtomicMin
	AtomicMaxU
	AtomicMinU
	AtomicSwap

	numAtomicOps
)

// A Class groups opcodes by the role they play on the link.
type Class int

// The command classes.
const (
	ClassInvalid Class = iota
	ClassRequest
	ClassResponse
	ClassLink
	ClassReserved
)

// A Channel is one of the two credited data channels of a link. Link-control
// traffic travels on its own uncredited lane and is not a Channel.
type Channel int

// The data channels.
const (
	ChannelRequest Channel = iota
	ChannelResponse

	NumChannels
)

func (ch Channel) String() string {
	switch ch {
	case ChannelRequest:
		return "Request"
	case ChannelResponse:
		return "Response"
	}
	return fmt.Sprintf("Channel(%d)", int(ch))
}

// DecodeOpcode extracts the opcode from a raw command word.
func DecodeOpcode(raw uint32) Opcode {
	return Opcode(raw & opcodeMask)
}

// IsAtomic returns true for atomic request opcodes.
func (o Opcode) IsAtomic() bool {
	return o >= OpAtomicBase && o < OpAtomicBase+Opcode(numAtomicOps)
}

// AtomicOp returns the atomic operation of an atomic request opcode.
func (o Opcode) AtomicOp() AtomicOp {
	if !o.IsAtomic() {
		panic("not an atomic opcode")
	}
	return AtomicOp(o - OpAtomicBase)
}

// Class returns the class of the opcode. It is the single source of truth
// for channel routing and for the command-only/no-data/has-data distinction
// that length prediction depends on.
func (o Opcode) Class() Class {
	switch o {
	case OpInvalid:
		return ClassInvalid
	case OpReadRequest, OpWriteRequest, OpWritePosted:
		return ClassRequest
	case OpReadResponse, OpWriteResponse:
		return ClassResponse
	case OpLinkControl, OpLinkResponse:
		return ClassLink
	}

	if o.IsAtomic() {
		return ClassRequest
	}

	return ClassReserved
}

// IsCommandOnly reports whether a packet with this opcode consists of the
// command word alone.
func (o Opcode) IsCommandOnly() bool {
	switch o.Class() {
	case ClassInvalid, ClassLink, ClassReserved:
		return true
	}
	return false
}

// HasData reports whether a packet with this opcode carries a payload.
func (o Opcode) HasData() bool {
	switch o {
	case OpWriteRequest, OpWritePosted, OpReadResponse:
		return true
	}
	return o.IsAtomic()
}

// NeedsResponse reports whether the command demands a response, which in
// turn requires a valid source address.
func (o Opcode) NeedsResponse() bool {
	switch o {
	case OpReadRequest, OpWriteRequest:
		return true
	}
	return o.IsAtomic()
}

// Channel returns the data channel the opcode travels on. It panics for
// link-control opcodes, which never appear on a data channel.
func (o Opcode) Channel() Channel {
	switch o.Class() {
	case ClassRequest:
		return ChannelRequest
	case ClassResponse:
		return ChannelResponse
	}
	panic(fmt.Sprintf("opcode %s has no data channel", o))
}

func (o Opcode) String() string {
	switch o {
	case OpInvalid:
		return "Invalid"
	case OpReadRequest:
		return "ReadRequest"
	case OpReadResponse:
		return "ReadResponse"
	case OpWriteRequest:
		return "WriteRequest"
	case OpWriteResponse:
		return "WriteResponse"
	case OpWritePosted:
		return "WritePosted"
	case OpLinkControl:
		return "LinkControl"
	case OpLinkResponse:
		return "LinkResponse"
	}

	if o.IsAtomic() {
		names := [...]string{
			"Add", "And", "Or", "Xor",
			"Max", "Min", "MaxU", "MinU", "Swap",
		}
		return "Atomic" + names[o.AtomicOp()]
	}

	return fmt.Sprintf("Reserved(0x%02X)", uint8(o))
}

// Bit positions within the 32-bit command word.
const (
	opcodeMask = 0x1F

	sizeShift = 5
	sizeMask  = 0xF

	lenShift = 9
	lenMask  = 0xFF

	qosShift = 17
	qosMask  = 0xF

	protShift = 21
	protMask  = 0x3

	eomBit = 1 << 23
	eofBit = 1 << 24
	exBit  = 1 << 25

	errShift = 26
	errMask  = 0x3

	hostBit = 1 << 28

	userShift = 29
	userMask  = 0x7

	// Link-control commands reuse the word differently: a channel selector
	// in bit 5 and a 16-bit absolute credit value in the top half. Bits 15:6
	// are reserved-zero.
	linkChanBit    = 1 << 5
	linkValueShift = 16
	linkRsvdMask   = 0xFFC0
)

// A Command is the decoded view of the 32-bit command word.
type Command struct {
	Opcode Opcode
	Size   uint8 // log2 bytes per beat, 0-15
	Len    uint8 // beats - 1
	QoS    uint8
	Prot   uint8
	EOM    bool
	EOF    bool
	Ex     bool
	Err    uint8
	Host   bool
	User   uint8

	// Link-control fields, meaningful only for ClassLink opcodes.
	LinkChannel Channel
	LinkValue   uint16
}

// MakeLinkCredit builds the credit-update command carrying the receiver's
// absolute credit count for one channel.
func MakeLinkCredit(ch Channel, value uint16) Command {
	return Command{
		Opcode:      OpLinkControl,
		LinkChannel: ch,
		LinkValue:   value,
	}
}

// Pack encodes the command into its 32-bit wire form. Pack and
// UnpackCommand are exact inverses.
func (c Command) Pack() uint32 {
	raw := uint32(c.Opcode) & opcodeMask

	if c.Opcode.Class() == ClassLink {
		if c.LinkChannel == ChannelResponse {
			raw |= linkChanBit
		}
		raw |= uint32(c.LinkValue) << linkValueShift
		return raw
	}

	raw |= (uint32(c.Size) & sizeMask) << sizeShift
	raw |= uint32(c.Len) << lenShift
	raw |= (uint32(c.QoS) & qosMask) << qosShift
	raw |= (uint32(c.Prot) & protMask) << protShift
	if c.EOM {
		raw |= eomBit
	}
	if c.EOF {
		raw |= eofBit
	}
	if c.Ex {
		raw |= exBit
	}
	raw |= (uint32(c.Err) & errMask) << errShift
	if c.Host {
		raw |= hostBit
	}
	raw |= (uint32(c.User) & userMask) << userShift

	return raw
}

// UnpackCommand decodes a 32-bit command word.
func UnpackCommand(raw uint32) Command {
	opcode := DecodeOpcode(raw)

	if opcode.Class() == ClassLink {
		c := Command{Opcode: opcode}
		if raw&linkChanBit != 0 {
			c.LinkChannel = ChannelResponse
		}
		c.LinkValue = uint16(raw >> linkValueShift)
		return c
	}

	return Command{
		Opcode: opcode,
		Size:   uint8((raw >> sizeShift) & sizeMask),
		Len:    uint8((raw >> lenShift) & lenMask),
		QoS:    uint8((raw >> qosShift) & qosMask),
		Prot:   uint8((raw >> protShift) & protMask),
		EOM:    raw&eomBit != 0,
		EOF:    raw&eofBit != 0,
		Ex:     raw&exBit != 0,
		Err:    uint8((raw >> errShift) & errMask),
		Host:   raw&hostBit != 0,
		User:   uint8((raw >> userShift) & userMask),
	}
}
