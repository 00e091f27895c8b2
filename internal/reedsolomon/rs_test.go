package reedsolomon

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func encodedCodeword(t *testing.T, c *Codec, data []byte) []byte {
	parity, err := c.Encode(data)
	require.NoError(t, err)
	return append(append([]byte(nil), data...), parity...)
}

// A codeword with no introduced errors decodes with zero corrections and
// is left unchanged.
func TestCodec_DecodeNoErrors(t *testing.T) {
	c := NewCodec(10)
	data := make([]byte, c.DataLen())
	for i := range data {
		data[i] = byte(i * 3)
	}
	cw := encodedCodeword(t, c, data)
	original := append([]byte(nil), cw...)

	n, err := c.Decode(cw)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, original, cw)
}

// Flipping up to nroots/2 symbols anywhere in the codeword must be fully
// corrected, restoring the exact original codeword. This is the invariant
// the DAB+ superframe reassembler depends on for its per-column RS pass.
func TestCodec_CorrectsUpToHalfParityErrors(t *testing.T) {
	c := NewCodec(10) // corrects up to 5 symbol errors
	data := make([]byte, c.DataLen())
	for i := range data {
		data[i] = byte(i*7 + 1)
	}
	cw := encodedCodeword(t, c, data)
	original := append([]byte(nil), cw...)

	corrupted := append([]byte(nil), cw...)
	errPositions := []int{0, 10, 50, 120, 200}
	for _, pos := range errPositions {
		corrupted[pos] ^= 0xFF
	}

	n, err := c.Decode(corrupted)
	require.NoError(t, err)
	require.Equal(t, len(errPositions), n)
	require.Equal(t, original, corrupted)
}

// Property: for any data payload, corrupting up to nroots/2 distinct byte
// positions with a nonzero XOR mask always restores the original codeword.
func TestCodec_CorrectsRandomErrors_Property(t *testing.T) {
	c := NewCodec(10)
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), c.DataLen(), c.DataLen()).Draw(rt, "data")
		parity, err := c.Encode(data)
		if err != nil {
			rt.Fatalf("encode failed: %v", err)
		}
		cw := append(append([]byte(nil), data...), parity...)
		original := append([]byte(nil), cw...)

		numErrors := rapid.IntRange(0, 5).Draw(rt, "numErrors")
		positions := rapid.Permutation(allPositions(len(cw))).Draw(rt, "positions")[:numErrors]
		corrupted := append([]byte(nil), cw...)
		for _, pos := range positions {
			mask := rapid.IntRange(1, 255).Draw(rt, "mask")
			corrupted[pos] ^= byte(mask)
		}

		n, err := c.Decode(corrupted)
		if err != nil {
			rt.Fatalf("decode failed with %d errors: %v", numErrors, err)
		}
		if n != numErrors {
			rt.Fatalf("expected %d corrections, got %d", numErrors, n)
		}
		for i := range original {
			if original[i] != corrupted[i] {
				rt.Fatalf("byte %d not restored", i)
			}
		}
	})
}

func allPositions(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}
