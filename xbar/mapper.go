package xbar

import (
	"fmt"

	"github.com/TomHuangsrc/umi/sim"
)

// An AddressToPortMapper maps a destination address to the remote ports
// that should receive the packet. A unicast mapper returns one port; a
// multicast mapper may return several, in which case the switch forwards
// only when every one of them can accept.
type AddressToPortMapper interface {
	Find(addr uint64) []sim.Port
}

// SinglePortMapper sends everything to one port.
type SinglePortMapper struct {
	Port sim.Port
}

// Find returns the only port.
func (m *SinglePortMapper) Find(_ uint64) []sim.Port {
	return []sim.Port{m.Port}
}

// BankedPortMapper distributes addresses across ports in fixed-size
// interleaved banks.
type BankedPortMapper struct {
	BankSize uint64
	Ports    []sim.Port
}

// Find returns the port that owns the bank of the address.
func (m *BankedPortMapper) Find(addr uint64) []sim.Port {
	bank := addr / m.BankSize % uint64(len(m.Ports))
	return []sim.Port{m.Ports[bank]}
}

// RangedPortMapper maps disjoint address ranges to ports.
type RangedPortMapper struct {
	ranges []addrRange
}

type addrRange struct {
	low, high uint64
	port      sim.Port
}

// AddRange registers [low, high) as belonging to the port.
func (m *RangedPortMapper) AddRange(low, high uint64, port sim.Port) {
	if high <= low {
		panic(fmt.Sprintf("empty address range [0x%X, 0x%X)", low, high))
	}
	m.ranges = append(m.ranges, addrRange{low, high, port})
}

// Find returns the owner of the address. Addresses outside every range are
// a configuration error.
func (m *RangedPortMapper) Find(addr uint64) []sim.Port {
	for _, r := range m.ranges {
		if addr >= r.low && addr < r.high {
			return []sim.Port{r.port}
		}
	}

	panic(fmt.Sprintf("address 0x%X maps to no port", addr))
}

// BroadcastPortMapper sends every packet to all its ports at once.
type BroadcastPortMapper struct {
	Ports []sim.Port
}

// Find returns all ports.
func (m *BroadcastPortMapper) Find(_ uint64) []sim.Port {
	return m.Ports
}
