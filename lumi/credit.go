package lumi

import (
	"fmt"

	"github.com/TomHuangsrc/umi/umi"
)

// A CreditManager tracks the flow-control state of both directions of one
// endpoint. The unit of credit is one phit on one data channel.
//
// The transmit side consumes one credit per phit and learns about freed
// space through absolute counts carried by link-control packets; the receive
// side counts every phit it drains out of lane storage and exports the
// cumulative count. Absolute counts make a lost or repeated update
// self-healing: applying the same value twice changes nothing.
type CreditManager struct {
	initial [umi.NumChannels]uint16

	// Transmit direction.
	consumed [umi.NumChannels]uint16
	remote   [umi.NumChannels]uint16

	// Receive direction.
	freed    [umi.NumChannels]uint16
	exported [umi.NumChannels]uint16
}

// NewCreditManager creates a credit manager where each data channel starts
// with the given number of credits.
func NewCreditManager(initialCredits int) *CreditManager {
	if initialCredits <= 0 || initialCredits > 0xFFFF {
		panic(fmt.Sprintf("initial credit count %d out of range",
			initialCredits))
	}

	m := &CreditManager{}
	for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
		m.initial[ch] = uint16(initialCredits)
	}

	return m
}

// Available returns the number of phits the transmit side may still send on
// the channel. The subtraction is on wrapping 16-bit counters, matching the
// width of the value a link-control packet can carry.
func (m *CreditManager) Available(ch umi.Channel) int {
	inFlight := m.consumed[ch] - m.remote[ch]
	return int(m.initial[ch]) - int(inFlight)
}

// Consume spends one credit before a phit is emitted. Consuming with no
// credit available is a protocol violation and panics.
func (m *CreditManager) Consume(ch umi.Channel) {
	if m.Available(ch) <= 0 {
		panic(fmt.Sprintf("credit underflow on %s channel", ch))
	}
	m.consumed[ch]++
}

// OnRemoteCreditUpdate records the far side's cumulative freed count for the
// channel, as carried by a link-control packet.
func (m *CreditManager) OnRemoteCreditUpdate(ch umi.Channel, value uint16) {
	m.remote[ch] = value
}

// OnLocalReceive counts one phit drained from local lane storage, making its
// slot available again to the far side.
func (m *CreditManager) OnLocalReceive(ch umi.Channel) {
	m.freed[ch]++
}

// ExportUpdate returns the link-control command that carries the current
// freed count for the channel, or false when the far side already has it.
func (m *CreditManager) ExportUpdate(ch umi.Channel) (umi.Command, bool) {
	if m.freed[ch] == m.exported[ch] {
		return umi.Command{}, false
	}

	m.exported[ch] = m.freed[ch]

	return umi.MakeLinkCredit(ch, m.freed[ch]), true
}

// Reset returns every channel to its configured initial credit count and
// clears all cumulative state, as on a link restart.
func (m *CreditManager) Reset() {
	for ch := umi.Channel(0); ch < umi.NumChannels; ch++ {
		m.consumed[ch] = 0
		m.remote[ch] = 0
		m.freed[ch] = 0
		m.exported[ch] = 0
	}
}

// Initial returns the configured initial credit count of the channel.
func (m *CreditManager) Initial(ch umi.Channel) int {
	return int(m.initial[ch])
}
