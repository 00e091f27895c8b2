package ofdm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetParams_AllModes(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		p, err := GetParams(m)
		require.NoError(t, err)
		assert.Equal(t, p.NFFT+p.GuardLen, p.SymbolLen)
		assert.Greater(t, p.NumCarriers, 0)
	}
}

func TestGetParams_UnknownMode(t *testing.T) {
	_, err := GetParams(Mode(99))
	assert.Error(t, err)
}

func TestReferenceSymbol_AllModes(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		p, err := GetParams(m)
		require.NoError(t, err)
		ref, err := ReferenceSymbol(m, p.NFFT)
		require.NoError(t, err)
		assert.Equal(t, p.NFFT, len(ref))
		// DC bin must stay zero.
		assert.Equal(t, complex(0, 0), ref[0])

		// Every active carrier must have unit magnitude (it is a pure
		// phase reference), and the number of nonzero bins must equal
		// NumCarriers.
		nonZero := 0
		for _, c := range ref {
			if c != 0 {
				nonZero++
				mag := real(c)*real(c) + imag(c)*imag(c)
				assert.InDelta(t, 1.0, mag, 1e-9)
			}
		}
		assert.Equal(t, p.NumCarriers, nonZero)
	}
}

// CarrierMap must produce NumCarriers distinct, in-range FFT bin indices
// with the DC bin excluded, for every mode.
func TestCarrierMap_AllModes(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		p, err := GetParams(m)
		require.NoError(t, err)
		bins := CarrierMap(p)
		require.Equal(t, p.NumCarriers, len(bins))

		seen := make(map[int]bool, len(bins))
		for _, b := range bins {
			assert.GreaterOrEqual(t, b, 0)
			assert.Less(t, b, p.NFFT)
			assert.NotEqual(t, 0, b, "DC bin must not be used as a data carrier")
			assert.False(t, seen[b], "duplicate bin %d", b)
			seen[b] = true
		}
	}
}

// mapPhase must assign the high soft value to a positive component and
// the low soft value to a negative one, with 128 the boundary.
func TestMapPhase_SignConvention(t *testing.T) {
	b0, b1 := mapPhase(complex(10, -10), 5)
	assert.Greater(t, b0, uint8(128))
	assert.Less(t, b1, uint8(128))
}

func TestMapPhase_ClampsToRange(t *testing.T) {
	b0, b1 := mapPhase(complex(1e9, -1e9), 5)
	assert.Equal(t, uint8(255), b0)
	assert.Equal(t, uint8(0), b1)
}
