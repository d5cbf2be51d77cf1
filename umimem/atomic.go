package umimem

import (
	"encoding/binary"
	"fmt"

	"github.com/TomHuangsrc/umi/umi"
)

// maxAtomicSize bounds atomic operands to 64 bits.
const maxAtomicSize = 3

// applyAtomic computes the new memory value of a read-modify-write
// operation. Both operands are little-endian and exactly 1<<size bytes;
// signed comparisons sign-extend from the operand width.
func applyAtomic(op umi.AtomicOp, old, operand []byte, size uint8) []byte {
	if size > maxAtomicSize {
		panic(fmt.Sprintf("atomic operand size %d exceeds 8 bytes",
			uint64(1)<<size))
	}

	width := 1 << size
	o := leUint(old, width)
	v := leUint(operand, width)

	var result uint64
	switch op {
	case umi.AtomicAdd:
		result = o + v
	case umi.AtomicAnd:
		result = o & v
	case umi.AtomicOr:
		result = o | v
	case umi.AtomicXor:
		result = o ^ v
	case umi.AtomicMaxU:
		result = o
		if v > o {
			result = v
		}
	case umi.AtomicMinU:
		result = o
		if v < o {
			result = v
		}
	case umi.AtomicMax:
		result = o
		if signExtend(v, width) > signExtend(o, width) {
			result = v
		}
	case umi.AtomicMin:
		result = o
		if signExtend(v, width) < signExtend(o, width) {
			result = v
		}
	case umi.AtomicSwap:
		result = v
	default:
		panic(fmt.Sprintf("unknown atomic operation %d", op))
	}

	out := make([]byte, width)
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], result)
	copy(out, scratch[:width])

	return out
}

func leUint(b []byte, width int) uint64 {
	var scratch [8]byte
	copy(scratch[:], b[:width])
	return binary.LittleEndian.Uint64(scratch[:])
}

func signExtend(v uint64, width int) int64 {
	shift := 64 - 8*width
	return int64(v<<shift) >> shift
}
