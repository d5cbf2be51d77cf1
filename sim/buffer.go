package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is a bounded fifo queue for anything.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a buffer that holds at most capacity elements. The
// backing storage is a ring so pops do not shift elements.
func NewBuffer(name string, capacity int) Buffer {
	return &bufferImpl{
		name: name,
		ring: make([]interface{}, capacity),
	}
}

type bufferImpl struct {
	HookableBase

	name  string
	ring  []interface{}
	head  int
	count int
}

func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return b.count < len(b.ring)
}

func (b *bufferImpl) Push(e interface{}) {
	if b.count == len(b.ring) {
		log.Panic("buffer overflow")
	}

	b.ring[(b.head+b.count)%len(b.ring)] = e
	b.count++

	b.hook(HookPosBufPush, e)
}

func (b *bufferImpl) Pop() interface{} {
	if b.count == 0 {
		return nil
	}

	e := b.ring[b.head]
	b.ring[b.head] = nil
	b.head = (b.head + 1) % len(b.ring)
	b.count--

	b.hook(HookPosBufPop, e)

	return e
}

func (b *bufferImpl) Peek() interface{} {
	if b.count == 0 {
		return nil
	}

	return b.ring[b.head]
}

func (b *bufferImpl) Capacity() int {
	return len(b.ring)
}

func (b *bufferImpl) Size() int {
	return b.count
}

func (b *bufferImpl) Clear() {
	for i := range b.ring {
		b.ring[i] = nil
	}
	b.head = 0
	b.count = 0
}

func (b *bufferImpl) hook(pos *HookPos, e interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{Domain: b, Pos: pos, Item: e})
}
