package midifile

import (
	"io"

	"github.com/pkg/errors"
)

// MaxVarLen is the largest value a 4-byte variable-length quantity holds.
const MaxVarLen = 0x0fffffff

// AppendVarLen appends n as a big-endian base-128 quantity. Values above
// MaxVarLen are truncated to 28 bits.
func AppendVarLen(dst []byte, n uint32) []byte {
	n &= MaxVarLen
	var buf [4]byte
	i := len(buf) - 1
	buf[i] = byte(n & 0x7f)
	for n >>= 7; n > 0; n >>= 7 {
		i--
		buf[i] = byte(n&0x7f) | 0x80
	}
	return append(dst, buf[i:]...)
}

// VarLenSize is the encoded width of n in bytes.
func VarLenSize(n uint32) int {
	size := 1
	for n &= MaxVarLen; n > 0x7f; n >>= 7 {
		size++
	}
	return size
}

// WriteVarLen writes n as a variable-length quantity.
func WriteVarLen(w io.Writer, n uint32) (int, error) {
	var buf [4]byte
	out := AppendVarLen(buf[:0], n)
	written, err := w.Write(out)
	if err != nil {
		return written, errors.Wrap(err, "write varlen")
	}
	return written, nil
}

// DecodeVarLen reads at most 4 bytes of a variable-length quantity from b and
// returns the value and the number of bytes consumed. A quantity cut short by
// the end of b yields what was read so far.
func DecodeVarLen(b []byte) (uint32, int) {
	var n uint32
	count := len(b)
	if count > 4 {
		count = 4
	}
	for i := 0; i < count; i++ {
		c := b[i]
		n = n<<7 + uint32(c&0x7f)
		if c&0x80 == 0 {
			return n, i + 1
		}
	}
	return n, count
}
