// Package xbar provides an N-by-N crossbar for UMI packets: a per-egress
// arbiter plus a switch component that routes packets between ports by
// destination address.
package xbar

import "fmt"

// ArbitrationMode selects how an egress chooses among competing ingresses.
type ArbitrationMode int

const (
	// FixedPriority always grants the lowest-numbered requesting ingress.
	FixedPriority ArbitrationMode = iota

	// RoundRobin rotates priority so that every requesting ingress is
	// granted within N cycles. The pointer advances only when a granted
	// transfer is committed.
	RoundRobin
)

// An Arbiter resolves an N-by-N request matrix into at most one grant per
// egress per cycle. Grants are recomputed every cycle from the current
// requests; an uncommitted grant is not a commitment.
type Arbiter struct {
	n    int
	mode ArbitrationMode

	masked [][]bool
	next   []int
	grants []int
}

// NewArbiter creates an arbiter for n ingress and n egress ports.
func NewArbiter(n int, mode ArbitrationMode) *Arbiter {
	if n <= 0 {
		panic(fmt.Sprintf("arbiter size %d must be positive", n))
	}

	a := &Arbiter{
		n:      n,
		mode:   mode,
		masked: make([][]bool, n),
		next:   make([]int, n),
		grants: make([]int, n),
	}
	for i := range a.masked {
		a.masked[i] = make([]bool, n)
	}

	return a
}

// Mask suppresses the ingress-egress pairing permanently. A masked pair is
// never granted even when requested.
func (a *Arbiter) Mask(ingress, egress int) {
	a.masked[ingress][egress] = true
}

// Arbitrate computes this cycle's grants. requests[i][j] means ingress i
// wants egress j. The returned slice holds, per egress, the granted ingress
// index or -1, and is valid until the next call.
func (a *Arbiter) Arbitrate(requests [][]bool) []int {
	if len(requests) != a.n {
		panic(fmt.Sprintf("request matrix has %d rows, arbiter expects %d",
			len(requests), a.n))
	}

	for j := 0; j < a.n; j++ {
		a.grants[j] = -1

		start := 0
		if a.mode == RoundRobin {
			start = a.next[j]
		}

		for k := 0; k < a.n; k++ {
			i := (start + k) % a.n
			if requests[i][j] && !a.masked[i][j] {
				a.grants[j] = i
				break
			}
		}
	}

	return a.grants
}

// Commit records that the last grant on the egress was accepted, advancing
// the round-robin pointer past the winner. Committing an egress with no
// grant is a caller bug.
func (a *Arbiter) Commit(egress int) {
	granted := a.grants[egress]
	if granted < 0 {
		panic(fmt.Sprintf("commit on egress %d with no grant", egress))
	}

	a.next[egress] = (granted + 1) % a.n
}
