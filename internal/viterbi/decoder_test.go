package viterbi

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func bitsFromBytes(buf []byte) []byte {
	bits := make([]byte, len(buf)*8)
	for i, b := range buf {
		for bit := 0; bit < 8; bit++ {
			bits[i*8+bit] = (b >> uint(7-bit)) & 1
		}
	}
	return bits
}

// With zero noise, decoding the mother-code output recovers the exact
// input bits, satisfying the spec's Viterbi round-trip invariant.
func TestDecoder_ZeroNoiseRoundTrip(t *testing.T) {
	bits := bitsFromBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0xFF, 0x5A})
	symbols := Encode(bits)

	bt := NewBranchTable()
	d := NewDecoder(bt)
	d.Update(symbols)

	decoded := bitsFromBytes(d.Chainback(d.BestState(), len(bits)))
	for i, b := range bits {
		require.Equalf(t, b, decoded[i], "bit %d mismatch", i)
	}
}

// Property: for any byte sequence, zero-noise encode+decode round-trips
// exactly, regardless of length.
func TestDecoder_ZeroNoiseRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		buf := rapid.SliceOfN(rapid.Byte(), 1, 40).Draw(rt, "buf")
		bits := bitsFromBytes(buf)
		symbols := Encode(bits)

		d := NewDecoder(NewBranchTable())
		d.Update(symbols)
		decoded := bitsFromBytes(d.Chainback(d.BestState(), len(bits)))

		for i, b := range bits {
			if decoded[i] != b {
				rt.Fatalf("bit %d: got %d want %d", i, decoded[i], b)
			}
		}
	})
}

// Depuncture must restore the mother-code rate: the output length must be
// a multiple of Rate and equal to len(profile.Pattern) per full period
// consumed.
func TestDepuncture_RestoresRate(t *testing.T) {
	profile := UniformProfile(8, 5)
	punctured := make([]uint8, 15) // 3 periods worth of kept symbols
	out := Depuncture(punctured, profile)
	require.Equal(t, 24, len(out)) // 3 periods * 8 positions per period
}

// Punctured (dropped) positions must be filled with the neutral soft
// value, not an arbitrary leftover.
func TestDepuncture_FillsNeutralAtPuncturedPositions(t *testing.T) {
	profile := Profile{Pattern: []bool{true, false, true, false}}
	punctured := []uint8{10, 20}
	out := Depuncture(punctured, profile)
	require.Equal(t, []uint8{10, SoftNeutral, 20, SoftNeutral}, out)
}
