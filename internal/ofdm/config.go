package ofdm

// Config holds the tunable thresholds for null-symbol detection and
// synchronisation, grounded on the reference demodulator's
// FindNullSync_Power / FindNullSync_Correlation thresholds. Defaults are
// the reference's documented starting points; real deployments tune these
// against their own front-end's noise floor.
type Config struct {
	Mode Mode

	// NullStartThreshold / NullEndThreshold are fractions of the running
	// L1-average signal level that mark the power dip's start and end
	// during FINDING_NULL_POWER_DIP.
	NullStartThreshold float64
	NullEndThreshold   float64

	// ImpulsePeakThresholdDB is the minimum peak-to-mean ratio (in dB) of
	// the PRS correlation impulse response required to accept the PRS
	// timing during RUNNING_COARSE_FREQ_SYNC (no frequency correction is
	// made in that state).
	ImpulsePeakThresholdDB float64

	// FineTrackingBeta is the loop gain applied to the cyclic-prefix
	// self-correlation phase error when updating the fine frequency
	// offset estimate in READING_SYMBOLS.
	FineTrackingBeta float64

	// SignalAverageDecay is the exponential decay factor (0,1) applied to
	// the running L1 signal-level average.
	SignalAverageDecay float64
}

// DefaultConfig returns reasonable starting thresholds for mode.
func DefaultConfig(mode Mode) Config {
	return Config{
		Mode:                   mode,
		NullStartThreshold:     0.35,
		NullEndThreshold:       0.75,
		ImpulsePeakThresholdDB: 7.0,
		FineTrackingBeta:       0.5,
		SignalAverageDecay:     0.1,
	}
}
