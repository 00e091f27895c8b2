package ofdm

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// State is one of the 5 synchronisation states the demodulator cycles
// through for every transmission frame.
type State int

const (
	// FindingNullPowerDip scans incoming samples for the start of the
	// null symbol's power dip, using a decaying L1-average signal level.
	FindingNullPowerDip State = iota
	// ReadingNullAndPRS has detected the dip and reads through the rest
	// of the null symbol plus one phase-reference symbol's worth of
	// samples for correlation.
	ReadingNullAndPRS
	// RunningCoarseFreqSync correlates the captured PRS against the
	// known reference in the frequency domain to resolve the symbol
	// timing offset and validate synchronisation.
	RunningCoarseFreqSync
	// RunningFineTimeSync re-reads the PRS aligned to the correlation
	// peak and establishes the differential demodulation reference.
	RunningFineTimeSync
	// ReadingSymbols demodulates the remaining data/FIC symbols of the
	// frame via differential QPSK against the previous symbol's FFT.
	ReadingSymbols
)

// Reader supplies exactly n complex baseband samples per call, blocking
// until available. It is the demodulator's only interface to the sample
// source (the SDR front-end, which this module does not implement).
type Reader interface {
	ReadSamples(n int) ([]complex128, error)
}

// Symbol is one demodulated OFDM data symbol: 2 soft bits per active
// carrier, ordered by logical carrier index (clause 14.6 frequency
// de-interleaving already applied).
type Symbol struct {
	SoftBits []uint8 // len = 2 * params.NumCarriers
}

// Frame is one fully demodulated transmission frame: every data/FIC
// symbol after the phase reference symbol.
type Frame struct {
	Symbols       []Symbol
	NullSpectrum  []float64 // dB magnitude per FFT bin of the null symbol, diagnostic only
	FreqOffsetHz  float64
}

// Demodulator runs the 5-state OFDM synchronisation and demodulation
// state machine described in ofdm_demodulator.cpp, adapted to Go
// streaming idioms and gonum's FFT in place of kiss_fft.
type Demodulator struct {
	params     Params
	cfg        Config
	fft        *fourier.CmplxFFT
	carrierMap []int
	prsRef     []complex128 // frequency-domain reference PRS (conjugated for correlation)

	osc       *Oscillator
	state     State
	signalAvg float64

	// fftStart is the resolved start of the FFT analysis window within a
	// SymbolLen-sample buffer, established once per frame by
	// RunningFineTimeSync and held fixed through ReadingSymbols. It
	// ranges over [0, GuardLen]: the cyclic prefix makes every window of
	// NFFT samples starting in that range equally valid up to a phase
	// rotation, so moving fftStart toward the correlation peak corrects
	// the residual sample-timing offset without needing samples outside
	// what was already read.
	fftStart int

	lastFFT []complex128
}

// NewDemodulator constructs a Demodulator for the given mode and
// thresholds.
func NewDemodulator(cfg Config) (*Demodulator, error) {
	params, err := GetParams(cfg.Mode)
	if err != nil {
		return nil, err
	}
	prs, err := ReferenceSymbol(cfg.Mode, params.NFFT)
	if err != nil {
		return nil, err
	}

	d := &Demodulator{
		params:     params,
		cfg:        cfg,
		fft:        fourier.NewCmplxFFT(params.NFFT),
		carrierMap: CarrierMap(params),
		osc:        NewOscillator(SampleRate),
		state:      FindingNullPowerDip,
	}

	prsFreq := d.fft.Coefficients(nil, prs)
	d.prsRef = make([]complex128, len(prsFreq))
	for i, c := range prsFreq {
		d.prsRef[i] = cmplx.Conj(c)
	}
	return d, nil
}

// Params returns the transmission-mode parameters this demodulator was
// constructed for.
func (d *Demodulator) Params() Params { return d.params }

// l1Average computes the mean of |Re|+|Im| over samples, the cheap power
// estimate used for null-symbol dip detection (grounded on
// CalculateL1Average).
func l1Average(samples []complex128) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(real(s)) + math.Abs(imag(s))
	}
	return sum / float64(len(samples))
}

// updateSignalAverage decays the running signal level estimate toward the
// latest chunk's L1 average (grounded on UpdateSignalAverage).
func (d *Demodulator) updateSignalAverage(samples []complex128) {
	cur := l1Average(samples)
	if d.signalAvg == 0 {
		d.signalAvg = cur
		return
	}
	d.signalAvg += d.cfg.SignalAverageDecay * (cur - d.signalAvg)
}

// dipScanChunk is the granularity at which FindingNullPowerDip re-checks
// the running signal level against threshold.
const dipScanChunk = 32

// findNullDip blocks until the signal level drops below
// NullStartThreshold of the running average and then recovers above
// NullEndThreshold, marking the end of the null symbol's power dip.
func (d *Demodulator) findNullDip(r Reader) error {
	inDip := false
	for {
		samples, err := r.ReadSamples(dipScanChunk)
		if err != nil {
			return err
		}
		level := l1Average(samples)
		if !inDip {
			d.updateSignalAverage(samples)
			if d.signalAvg > 0 && level < d.signalAvg*d.cfg.NullStartThreshold {
				inDip = true
			}
			continue
		}
		if d.signalAvg > 0 && level > d.signalAvg*d.cfg.NullEndThreshold {
			return nil
		}
	}
}

// readPRSCandidate reads one symbol period's worth of samples immediately
// following the detected null-dip end, which should contain the phase
// reference symbol (possibly with a residual timing offset of a few
// samples, resolved by the correlation step).
func (d *Demodulator) readPRSCandidate(r Reader) ([]complex128, error) {
	return r.ReadSamples(d.params.SymbolLen)
}

// correlatePRS cross-correlates candidate (cyclic-prefixed PRS samples,
// length SymbolLen) against the known reference in the frequency domain
// and returns the sample offset of the correlation peak within candidate
// along with the peak-to-mean ratio in dB, grounded on
// FindNullSync_Correlation.
func (d *Demodulator) correlatePRS(candidate []complex128) (offset int, peakDB float64) {
	window := candidate[:d.params.NFFT]
	spectrum := d.fft.Coefficients(nil, window)
	product := make([]complex128, len(spectrum))
	for i, c := range spectrum {
		product[i] = c * d.prsRef[i]
	}
	impulse := d.fft.Sequence(nil, product)

	var sum, peak float64
	peakIdx := 0
	mags := make([]float64, len(impulse))
	for i, c := range impulse {
		m := cmplx.Abs(c)
		mags[i] = m
		sum += m
		if m > peak {
			peak = m
			peakIdx = i
		}
	}
	mean := sum / float64(len(impulse))
	if mean <= 0 {
		return peakIdx, 0
	}
	peakDB = 20 * math.Log10(peak/mean)
	return peakIdx, peakDB
}

// mapPhase converts a differential product's real/imag components into
// two soft decision bits. A positive component indicates a transmitted
// '1' on that bit, matching the spec's sign-of-real-part /
// sign-of-imag-part DQPSK demapping convention.
func mapPhase(diff complex128, scale float64) (bit0, bit1 uint8) {
	return softFromComponent(real(diff), scale), softFromComponent(imag(diff), scale)
}

func softFromComponent(v, scale float64) uint8 {
	x := 128 + v*scale
	if x < 0 {
		x = 0
	}
	if x > 255 {
		x = 255
	}
	return uint8(x)
}

// demapSymbol computes soft bits for one data symbol's FFT against the
// previous symbol's FFT (differential demodulation), in logical carrier
// order, and updates the cyclic-prefix-based fine frequency tracking
// estimate (grounded on ProcessOFDMSymbol).
func (d *Demodulator) demapSymbol(raw []complex128) Symbol {
	fftOut := d.fft.Coefficients(nil, raw[d.fftStart:d.fftStart+d.params.NFFT])

	bits := make([]uint8, 2*len(d.carrierMap))
	avgMag := 0.0
	for _, bin := range d.carrierMap {
		avgMag += cmplx.Abs(fftOut[bin])
	}
	if len(d.carrierMap) > 0 {
		avgMag /= float64(len(d.carrierMap))
	}
	scale := 0.0
	if avgMag > 0 {
		scale = 120 / (avgMag * avgMag)
	}

	for i, bin := range d.carrierMap {
		diff := fftOut[bin] * cmplx.Conj(d.lastFFT[bin])
		b0, b1 := mapPhase(diff, scale)
		bits[2*i] = b0
		bits[2*i+1] = b1
	}

	// Fine frequency tracking: the cyclic prefix is a copy of the last
	// GuardLen samples of the FFT window, so its self-correlation phase
	// error is proportional to the residual frequency offset.
	var corr complex128
	for i := 0; i < d.params.GuardLen; i++ {
		corr += raw[i] * cmplx.Conj(raw[d.params.NFFT+i])
	}
	cyclicError := cmplx.Phase(corr)
	carrierSpacing := d.params.CarrierSpacingHz()
	d.osc.AdjustFrequency(-d.cfg.FineTrackingBeta * (cyclicError / math.Pi) * (carrierSpacing / 2))

	d.lastFFT = fftOut
	return Symbol{SoftBits: bits}
}

// nullSpectrumDB computes the magnitude spectrum (dB) of a null-symbol
// sample window, a read-only diagnostic snapshot (spec.md's retained
// "optional spectrum extraction" allowance; no TII decoding is performed).
func (d *Demodulator) nullSpectrumDB(samples []complex128) []float64 {
	n := d.params.NFFT
	if len(samples) < n {
		return nil
	}
	spectrum := d.fft.Coefficients(nil, samples[:n])
	out := make([]float64, len(spectrum))
	for i, c := range spectrum {
		m := cmplx.Abs(c)
		if m <= 0 {
			out[i] = -200
			continue
		}
		out[i] = 20 * math.Log10(m)
	}
	return out
}

// ReadFrame runs the full 5-state cycle once, blocking on r for samples,
// and returns one demodulated frame (the phase reference symbol is
// consumed internally and not returned; Frame.Symbols holds the
// remaining NumSymbolsPerFrame-1 FIC/MSC symbols).
func (d *Demodulator) ReadFrame(r Reader) (*Frame, error) {
	d.state = FindingNullPowerDip
	if err := d.findNullDip(r); err != nil {
		return nil, fmt.Errorf("ofdm: finding null dip: %w", err)
	}

	d.state = ReadingNullAndPRS
	nullTail, err := r.ReadSamples(d.params.NullSymbolLen - dipScanChunk)
	if err != nil {
		return nil, fmt.Errorf("ofdm: reading null symbol tail: %w", err)
	}
	nullSpectrum := d.nullSpectrumDB(nullTail)

	candidate, err := d.readPRSCandidate(r)
	if err != nil {
		return nil, fmt.Errorf("ofdm: reading PRS candidate: %w", err)
	}

	d.state = RunningCoarseFreqSync
	offset, peakDB := d.correlatePRS(candidate)
	if peakDB < d.cfg.ImpulsePeakThresholdDB {
		return nil, fmt.Errorf("ofdm: lost synchronisation (PRS correlation peak %.1fdB below threshold)", d.cfg.ImpulsePeakThresholdDB)
	}

	d.state = RunningFineTimeSync
	// correlatePRS reports the circular correlation peak within the
	// NFFT-point window as an unsigned lag in [0, NFFT); fold it to a
	// signed offset relative to the nominal window boundary, then clamp
	// into the guard interval, the only range a window starting within
	// this SymbolLen-sample read can actually shift into.
	signedOffset := offset
	if signedOffset > d.params.NFFT/2 {
		signedOffset -= d.params.NFFT
	}
	fftStart := d.params.GuardLen - signedOffset
	if fftStart < 0 {
		fftStart = 0
	}
	if fftStart > d.params.GuardLen {
		fftStart = d.params.GuardLen
	}
	d.fftStart = fftStart
	d.lastFFT = d.fft.Coefficients(nil, candidate[d.fftStart:d.fftStart+d.params.NFFT])

	d.state = ReadingSymbols
	symbols := make([]Symbol, 0, d.params.NumSymbolsPerFrame-1)
	for i := 0; i < d.params.NumSymbolsPerFrame-1; i++ {
		raw, err := r.ReadSamples(d.params.SymbolLen)
		if err != nil {
			return nil, fmt.Errorf("ofdm: reading symbol %d: %w", i, err)
		}
		d.osc.Mix(raw)
		symbols = append(symbols, d.demapSymbol(raw))
	}

	return &Frame{
		Symbols:      symbols,
		NullSpectrum: nullSpectrum,
		FreqOffsetHz: d.osc.Frequency(),
	}, nil
}
