// Package metrics defines the Prometheus collectors of the coordinator and its signers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all FROST metrics.
	Namespace = "frost"

	LabelStatus      = "status"
	LabelOperation   = "operation"
	LabelParticipant = "participant"
	LabelMethod      = "method"

	StatusSuccess = "success"
	StatusError   = "error"

	OpDkg  = "dkg"
	OpSign = "sign"
)

var (
	// DkgCeremoniesTotal counts DKG flows run by the aggregator, by outcome.
	DkgCeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dkg_ceremonies_total",
			Help:      "Total number of DKG ceremonies by status",
		},
		[]string{LabelStatus},
	)

	// SigningCeremoniesTotal counts signing flows run by the aggregator, by outcome.
	SigningCeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signing_ceremonies_total",
			Help:      "Total number of signing ceremonies by status",
		},
		[]string{LabelStatus},
	)

	// CeremonyDuration tracks how long flows take, in seconds.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremonies in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{LabelOperation},
	)

	// SignerRequestsTotal counts calls from the aggregator to each signer.
	SignerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signer_requests_total",
			Help:      "Total number of requests sent to signers by participant, method and status",
		},
		[]string{LabelParticipant, LabelMethod, LabelStatus},
	)

	// PregenUnusedEntities is the number of unclaimed entities seen by the last pregen epoch.
	PregenUnusedEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pregen_unused_entities",
			Help:      "Number of pre-generated entities not claimed yet",
		},
	)

	// PregenLaunchedTotal counts ceremonies launched by pregen.
	PregenLaunchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pregen_launched_total",
			Help:      "Total number of DKG ceremonies launched by pregen",
		},
	)

	// SignerSessionsSweptTotal counts expired signing sessions deleted by signers.
	SignerSessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signer_sessions_swept_total",
			Help:      "Total number of expired signing sessions deleted",
		},
	)
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordDkg records the outcome of a DKG flow started at start.
func RecordDkg(start time.Time, err error) {
	DkgCeremoniesTotal.WithLabelValues(status(err)).Inc()
	CeremonyDuration.WithLabelValues(OpDkg).Observe(time.Since(start).Seconds())
}

// RecordSigning records the outcome of a signing flow started at start.
func RecordSigning(start time.Time, err error) {
	SigningCeremoniesTotal.WithLabelValues(status(err)).Inc()
	CeremonyDuration.WithLabelValues(OpSign).Observe(time.Since(start).Seconds())
}

// RecordSignerRequest records the outcome of one call to a signer.
func RecordSignerRequest(participant, method string, err error) {
	SignerRequestsTotal.WithLabelValues(participant, method, status(err)).Inc()
}
