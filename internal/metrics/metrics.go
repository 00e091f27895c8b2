// Package metrics defines the receiver's Prometheus collectors, built
// with promauto the same way the teacher's prometheus.go registers its
// noise-floor and digital-decode gauges: one promauto constructor call
// per metric at construction time, against the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the receiver exposes, spanning
// the OFDM synchronisation state, FIC/FIG decode outcomes, and per-
// subchannel MSC/superframe health.
type Metrics struct {
	SyncLossTotal      prometheus.Counter
	FreqOffsetHz       prometheus.Gauge
	SignalAverageDB    prometheus.Gauge

	FICFramesTotal     prometheus.Counter
	FIBCRCFailTotal    prometheus.Counter

	SubChannelBitErrors   *prometheus.CounterVec // label: subchannel
	SuperframeFirecodeBad *prometheus.CounterVec // label: subchannel
	SuperframeRSCorrected *prometheus.CounterVec // label: subchannel
	SuperframeRSFailed    *prometheus.CounterVec // label: subchannel
	AUCRCFailTotal        *prometheus.CounterVec // label: subchannel

	MOTObjectsAssembled *prometheus.CounterVec // label: subchannel
}

// New registers and returns the receiver's metric collectors against the
// default Prometheus registry.
func New() *Metrics {
	return &Metrics{
		SyncLossTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dabradio_ofdm_sync_loss_total",
			Help: "Number of times the OFDM demodulator lost null-symbol synchronisation.",
		}),
		FreqOffsetHz: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dabradio_ofdm_freq_offset_hz",
			Help: "Current estimated carrier frequency offset in Hz.",
		}),
		SignalAverageDB: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dabradio_ofdm_signal_average_db",
			Help: "Smoothed null-symbol spectrum power average in dB.",
		}),
		FICFramesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dabradio_fic_frames_total",
			Help: "Number of FIC CIFs decoded.",
		}),
		FIBCRCFailTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dabradio_fic_fib_crc_fail_total",
			Help: "Number of FIBs dropped for failing their CRC-16 check.",
		}),
		SubChannelBitErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_msc_viterbi_corrections_total",
			Help: "Approximate Viterbi path-metric corrections per subchannel.",
		}, []string{"subchannel"}),
		SuperframeFirecodeBad: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_superframe_firecode_fail_total",
			Help: "Number of DAB+ superframes dropped for failing their firecode check.",
		}, []string{"subchannel"}),
		SuperframeRSCorrected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_superframe_rs_corrected_total",
			Help: "Number of Reed-Solomon-corrected byte errors across superframe RS blocks.",
		}, []string{"subchannel"}),
		SuperframeRSFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_superframe_rs_failed_total",
			Help: "Number of RS blocks that could not be corrected.",
		}, []string{"subchannel"}),
		AUCRCFailTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_superframe_au_crc_fail_total",
			Help: "Number of access units dropped for failing their CRC-16 check.",
		}, []string{"subchannel"}),
		MOTObjectsAssembled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dabradio_pad_mot_objects_total",
			Help: "Number of MOT objects (slideshow images, etc.) fully reassembled.",
		}, []string{"subchannel"}),
	}
}

// Handler returns the HTTP handler to mount at the configured metrics
// endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
