package encoding

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFloat64Order(t *testing.T) {
	values := []float64{math.Inf(-1), -1000.5, -46, -0.25, 0, 0.25, 40, 45.99, 46, 1e9, math.Inf(1)}

	var encoded [][]byte
	for _, v := range values {
		encoded = append(encoded, EncodeFloat64(nil, v))
	}

	require.True(t, sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}))

	for i, v := range values {
		require.Equal(t, v, DecodeFloat64(encoded[i]))
	}
}

func TestEncodeFloat64NegativeZero(t *testing.T) {
	negZero := math.Copysign(0, -1)

	require.Equal(t, EncodeFloat64(nil, 0), EncodeFloat64(nil, negZero))
	require.Negative(t, bytes.Compare(EncodeFloat64(nil, -1), EncodeFloat64(nil, negZero)))
	require.Negative(t, bytes.Compare(EncodeFloat64(nil, negZero), EncodeFloat64(nil, 1)))
	require.Equal(t, 0.0, DecodeFloat64(EncodeFloat64(nil, negZero)))
}

func TestEncodeText(t *testing.T) {
	b := EncodeText([]byte{'h'}, "user:1")
	b = append(b, "email"...)

	s, n := DecodeText(b[1:])
	require.Equal(t, "user:1", s)
	require.Equal(t, "email", string(b[1+n:]))

	_, n = DecodeText([]byte{10, 'a'})
	require.Equal(t, -1, n)

	// a key is never a prefix of a longer key once encoded
	require.False(t, bytes.HasPrefix(EncodeText(nil, "user:10"), EncodeText(nil, "user:1")))
}

func TestSuccessor(t *testing.T) {
	require.Equal(t, []byte("user;"), Successor([]byte("user:")))
	require.Equal(t, []byte{'a', 0x01}, Successor([]byte{'a', 0x00}))
	require.Equal(t, []byte{'b'}, Successor([]byte{'a', 0xff}))
	require.Nil(t, Successor([]byte{0xff, 0xff}))
}
