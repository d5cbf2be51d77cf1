package lumi

import "fmt"

// A subBuffer is the lane storage of one data channel: width parallel
// byte-wide lanes, each depth entries deep, so that the group holds depth
// whole phits. The scatter and gather mappings between phit byte positions
// and lanes are a function of the configured width only; they are computed
// once at construction and never per packet.
type subBuffer struct {
	name    string
	width   int
	depth   int
	laneMap []int
	lanes   [][]byte
}

func newSubBuffer(name string, width, depth int) *subBuffer {
	b := &subBuffer{
		name:    name,
		width:   width,
		depth:   depth,
		laneMap: make([]int, width),
		lanes:   make([][]byte, width),
	}

	for i := range b.laneMap {
		b.laneMap[i] = i
		b.lanes[i] = make([]byte, 0, depth)
	}

	return b
}

// canPush reports whether the group has room for one more phit.
func (b *subBuffer) canPush() bool {
	return len(b.lanes[0]) < b.depth
}

// empty reports whether the group holds no phits.
func (b *subBuffer) empty() bool {
	return len(b.lanes[0]) == 0
}

// phits returns the number of whole phits currently stored.
func (b *subBuffer) phits() int {
	return len(b.lanes[0])
}

// pushPhit scatters one phit across the lanes. The lanes fill in lockstep;
// pushing into a full group means the far side sent beyond its credits.
func (b *subBuffer) pushPhit(p Phit) {
	if !b.canPush() {
		panic(fmt.Sprintf("credit overrun: lane storage %s is full", b.name))
	}
	if len(p.Bytes) != b.width {
		panic(fmt.Sprintf("phit is %d bytes, lane group %s is %d wide",
			len(p.Bytes), b.name, b.width))
	}

	for i, lane := range b.laneMap {
		b.lanes[lane] = append(b.lanes[lane], p.Bytes[i])
	}
}

// popPhit gathers the oldest phit back out of the lanes.
func (b *subBuffer) popPhit() []byte {
	if b.empty() {
		panic(fmt.Sprintf("pop from empty lane storage %s", b.name))
	}

	out := make([]byte, b.width)
	for i, lane := range b.laneMap {
		out[i] = b.lanes[lane][0]
		b.lanes[lane] = b.lanes[lane][1:]
	}

	return out
}
