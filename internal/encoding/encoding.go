// Package encoding builds the byte keys stored in Pebble.
package encoding

import (
	"encoding/binary"
	"math"
)

// EncodeText appends x prefixed by its length as a uvarint.
// Length prefixing keeps a key from being a prefix of another key.
func EncodeText(dst []byte, x string) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(x)))

	dst = append(dst, buf[:n]...)
	return append(dst, x...)
}

// DecodeText decodes a length prefixed string and returns the number of bytes read.
// It returns -1 if b is too short.
func DecodeText(b []byte) (string, int) {
	l, n := binary.Uvarint(b)
	if n <= 0 || len(b) < n+int(l) {
		return "", -1
	}
	return string(b[n : n+int(l)]), n + int(l)
}

// EncodeFloat64 appends an 8 byte big endian representation of x
// which sorts in the same order as the numbers themselves.
// Negative zero is encoded as zero.
func EncodeFloat64(dst []byte, x float64) []byte {
	if x == 0 {
		x = 0
	}
	fb := math.Float64bits(x)
	if x >= 0 {
		fb ^= 1 << 63
	} else {
		fb ^= 1<<64 - 1
	}
	return binary.BigEndian.AppendUint64(dst, fb)
}

// DecodeFloat64 decodes 8 bytes written by EncodeFloat64.
func DecodeFloat64(b []byte) float64 {
	x := binary.BigEndian.Uint64(b)

	if (x & (1 << 63)) != 0 {
		x ^= 1 << 63
	} else {
		x ^= 1<<64 - 1
	}
	return math.Float64frombits(x)
}

// Successor returns the smallest key greater than every key prefixed by prefix,
// or nil if no such key exists.
func Successor(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
