// Package ofdm implements the DAB OFDM demodulator: null-symbol
// detection, PRS-based coarse time synchronisation, per-symbol FFT and
// differential QPSK demapping, and cyclic-prefix based fine frequency
// tracking. There is no coarse (whole-carrier) frequency correction. Grounded on ofdm_demodulator.cpp/.h,
// dab_prs_ref.cpp and dab_mapper_ref.cpp from the reference
// implementation, using gonum's FFT in place of kiss_fft.
package ofdm

import "fmt"

// Mode identifies one of the four DAB transmission modes (ETSI EN 300 401
// clause 14.1). Mode I is used for terrestrial VHF broadcasting and is by
// far the most common in the field.
type Mode int

const (
	ModeI Mode = iota + 1
	ModeII
	ModeIII
	ModeIV
)

// Params holds the fixed per-mode OFDM timing and carrier-count constants,
// all expressed in samples at the standard DAB sample rate of 2.048 MHz
// (except NumCarriers, which is a carrier count).
type Params struct {
	Mode              Mode
	NumSymbolsPerFrame int // L
	NumCarriers        int // K, active data+PRS carriers
	NFFT               int // FFT size / Tu in samples
	GuardLen           int // cyclic prefix length, Delta
	NullSymbolLen      int // Tnull
	SymbolLen          int // Ts = NFFT + GuardLen
}

// Sample rate assumed throughout: 2.048 MHz, the standard DAB rate.
const SampleRate = 2_048_000

var modeParams = map[Mode]Params{
	ModeI:   {Mode: ModeI, NumSymbolsPerFrame: 76, NumCarriers: 1536, NFFT: 2048, GuardLen: 504, NullSymbolLen: 2656},
	ModeII:  {Mode: ModeII, NumSymbolsPerFrame: 76, NumCarriers: 384, NFFT: 512, GuardLen: 126, NullSymbolLen: 664},
	ModeIII: {Mode: ModeIII, NumSymbolsPerFrame: 153, NumCarriers: 192, NFFT: 256, GuardLen: 63, NullSymbolLen: 345},
	ModeIV:  {Mode: ModeIV, NumSymbolsPerFrame: 76, NumCarriers: 768, NFFT: 1024, GuardLen: 252, NullSymbolLen: 1328},
}

// GetParams returns the fixed timing parameters for mode, or an error if
// mode is not one of the four standard modes.
func GetParams(mode Mode) (Params, error) {
	p, ok := modeParams[mode]
	if !ok {
		return Params{}, fmt.Errorf("ofdm: unknown transmission mode %d", mode)
	}
	p.SymbolLen = p.NFFT + p.GuardLen
	return p, nil
}

// CarrierSpacingHz returns the inter-carrier spacing for this mode.
func (p Params) CarrierSpacingHz() float64 {
	return SampleRate / float64(p.NFFT)
}

// FrameLenSamples returns the total length in samples of one transmission
// frame: the null symbol plus NumSymbolsPerFrame data/PRS symbols.
func (p Params) FrameLenSamples() int {
	return p.NullSymbolLen + p.NumSymbolsPerFrame*p.SymbolLen
}
