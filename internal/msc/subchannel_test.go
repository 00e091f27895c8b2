package msc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwsl/dabradio/internal/fig"
	"github.com/cwsl/dabradio/internal/viterbi"
)

func TestExtractCapacityUnits_RespectsAddressAndSize(t *testing.T) {
	sc := fig.SubChannel{StartAddress: 1, Size: 1} // one 64-bit CU starting at CU 1
	cif := make([]byte, 24)
	for i := range cif {
		cif[i] = byte(i)
	}
	bits := ExtractCapacityUnits(cif, sc)
	require.Len(t, bits, CapacityUnitBits)

	// CU 1 starts at byte 8 (CapacityUnitBits/8); first bit is the MSB of cif[8].
	require.Equal(t, cif[8]>>7&1, bits[0])
}

func TestDeinterleaver_WithholdsOutputDuringPriming(t *testing.T) {
	d := NewDeinterleaver()
	frame := make([]uint8, interleaveDepth*4)
	for i := range frame {
		frame[i] = uint8(i % 2)
	}
	// The deepest branch delays by 15 CIFs, so the first 15 pushes must
	// produce no output at all, not a short/ragged partial concatenation.
	for i := 0; i < maxBranchDelay; i++ {
		out := d.Push(frame)
		require.Nilf(t, out, "push %d: expected no output during priming", i)
	}
	out := d.Push(frame)
	require.NotNil(t, out)
	require.Len(t, out, len(frame))
}

func TestDeinterleaver_FillsAfterDepth(t *testing.T) {
	d := NewDeinterleaver()
	frame := make([]uint8, interleaveDepth*4)
	for i := range frame {
		frame[i] = uint8(i % 2)
	}
	var lastNonEmpty []uint8
	for i := 0; i < interleaveDepth*2; i++ {
		out := d.Push(frame)
		if len(out) > 0 {
			lastNonEmpty = out
		}
	}
	require.NotEmpty(t, lastNonEmpty)
	require.Len(t, lastNonEmpty, len(frame))
}

func TestProfileFor_UEPAndEEP(t *testing.T) {
	uep := ProfileFor(fig.SubChannel{IsUEP: true, UEPTableIndex: 5})
	require.NotEmpty(t, uep.Pattern)

	eep := ProfileFor(fig.SubChannel{IsUEP: false, EEPProfileB: true, EEPLevel: 2})
	require.NotEmpty(t, eep.Pattern)
}

func TestDecoder_DecodesThroughInterleaveAndPuncture(t *testing.T) {
	// level 1, profile A keeps 16 of every 32 mother-code symbols: both the
	// kept count (16, a multiple of the interleaver's 16 branches) and the
	// expanded pattern length (32, a multiple of viterbi.Rate) divide
	// evenly, so this profile exercises deinterleave+depuncture+decode
	// without a remainder in either stage.
	sc := fig.SubChannel{SubChannelID: 1, StartAddress: 0, Size: 1, IsUEP: false, EEPProfileB: false, EEPLevel: 1}
	profile := ProfileFor(sc)
	kept := 0
	for _, k := range profile.Pattern {
		if k {
			kept++
		}
	}

	d := NewDecoder(sc)
	for cif := 0; cif < interleaveDepth+2; cif++ {
		coded := make([]uint8, kept)
		for i := range coded {
			coded[i] = viterbi.SoftHigh
		}
		_, err := d.DecodeCIF(coded)
		require.NoError(t, err)
	}
}
