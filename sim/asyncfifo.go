package sim

import (
	"log"
	"sync"
)

// An AsyncFIFO is a bounded queue that carries data across a clock-domain
// boundary. It is the only structure that may be shared between components
// that tick at different frequencies. The writer side must check Full before
// every Push; the reader side must treat Empty as a stall condition.
type AsyncFIFO struct {
	lock sync.Mutex

	name     string
	capacity int
	elements []interface{}

	readerWake func()
	writerWake func()
}

// NewAsyncFIFO creates a new AsyncFIFO with the given capacity.
func NewAsyncFIFO(name string, capacity int) *AsyncFIFO {
	if capacity <= 0 {
		log.Panic("async fifo capacity must be positive")
	}

	return &AsyncFIFO{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the FIFO.
func (f *AsyncFIFO) Name() string {
	return f.name
}

// Capacity returns the number of elements the FIFO can hold.
func (f *AsyncFIFO) Capacity() int {
	return f.capacity
}

// Size returns the number of elements currently in the FIFO.
func (f *AsyncFIFO) Size() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return len(f.elements)
}

// Full reports the writer-side status of the FIFO.
func (f *AsyncFIFO) Full() bool {
	f.lock.Lock()
	defer f.lock.Unlock()

	return len(f.elements) >= f.capacity
}

// Empty reports the reader-side status of the FIFO.
func (f *AsyncFIFO) Empty() bool {
	f.lock.Lock()
	defer f.lock.Unlock()

	return len(f.elements) == 0
}

// Push adds an element on the writer side. Pushing while full is a caller
// bug and panics; data loss, not blocking, is the hardware failure mode this
// models.
func (f *AsyncFIFO) Push(e interface{}) {
	f.lock.Lock()

	if len(f.elements) >= f.capacity {
		f.lock.Unlock()
		log.Panicf("overflow on async fifo %s", f.name)
	}

	wasEmpty := len(f.elements) == 0
	f.elements = append(f.elements, e)
	wake := f.readerWake
	f.lock.Unlock()

	if wasEmpty && wake != nil {
		wake()
	}
}

// Pop removes and returns the element at the front of the FIFO. It returns
// nil when the FIFO is empty.
func (f *AsyncFIFO) Pop() interface{} {
	f.lock.Lock()

	if len(f.elements) == 0 {
		f.lock.Unlock()
		return nil
	}

	e := f.elements[0]
	f.elements = f.elements[1:]
	wasFull := len(f.elements) == f.capacity-1
	wake := f.writerWake
	f.lock.Unlock()

	if wasFull && wake != nil {
		wake()
	}

	return e
}

// Peek returns the element at the front of the FIFO without removing it.
func (f *AsyncFIFO) Peek() interface{} {
	f.lock.Lock()
	defer f.lock.Unlock()

	if len(f.elements) == 0 {
		return nil
	}

	return f.elements[0]
}

// NotifyReader registers a callback invoked when the FIFO turns non-empty.
// The reader-domain component uses it to resume ticking.
func (f *AsyncFIFO) NotifyReader(wake func()) {
	f.lock.Lock()
	f.readerWake = wake
	f.lock.Unlock()
}

// NotifyWriter registers a callback invoked when a full FIFO drains.
func (f *AsyncFIFO) NotifyWriter(wake func()) {
	f.lock.Lock()
	f.writerWake = wake
	f.lock.Unlock()
}
