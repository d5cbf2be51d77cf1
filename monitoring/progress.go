package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how far a long-running activity, such as a trace
// replay, has advanced. It is updated by the code doing the work and read
// by the dashboard.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Completed uint64    `json:"completed"`
	InFlight  uint64    `json:"in_flight"`
}

// AddInFlight records that more items have been issued but not yet retired.
func (b *ProgressBar) AddInFlight(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InFlight += amount
}

// AddCompleted records items that retired without an in-flight phase.
func (b *ProgressBar) AddCompleted(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Completed += amount
}

// RetireInFlight moves items from in-flight to completed.
func (b *ProgressBar) RetireInFlight(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InFlight -= amount
	b.Completed += amount
}

// Fraction returns the completed share in [0, 1].
func (b *ProgressBar) Fraction() float64 {
	b.Lock()
	defer b.Unlock()

	if b.Total == 0 {
		return 0
	}

	return float64(b.Completed) / float64(b.Total)
}
