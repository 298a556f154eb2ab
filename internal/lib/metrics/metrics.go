package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Callback outcome labels.
const (
	OutcomeGranted        = "granted"
	OutcomeDenied         = "denied"
	OutcomeMalformed      = "malformed"
	OutcomeInvalidState   = "invalid_state"
	OutcomeExchangeFailed = "exchange_failed"
	OutcomeIdentityFailed = "identity_failed"
	OutcomeInternalError  = "internal_error"
)

// Metrics holds the relay collectors. They are registered on the registerer
// passed to New, never on the global default registry.
type Metrics struct {
	ChallengesIssued     prometheus.Counter
	ChallengesPurged     prometheus.Counter
	CallbackOutcomes     *prometheus.CounterVec
	RedeemDuration       prometheus.Histogram
	NotificationFailures prometheus.Counter
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New registers every relay collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "ghbridge_challenges_issued_total",
			Help: "Total number of authorization challenges issued",
		}),
		ChallengesPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "ghbridge_challenges_purged_total",
			Help: "Total number of expired challenges removed by the janitor",
		}),
		CallbackOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghbridge_callback_outcomes_total",
			Help: "OAuth callbacks by outcome",
		}, []string{"outcome"}),
		RedeemDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghbridge_redeem_duration_seconds",
			Help:    "Duration of a callback redemption including provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		NotificationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ghbridge_notification_failures_total",
			Help: "Chat notifications that could not be delivered",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ghbridge_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ghbridge_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) IncrementChallengesIssued() {
	m.ChallengesIssued.Inc()
}

func (m *Metrics) AddChallengesPurged(n int64) {
	m.ChallengesPurged.Add(float64(n))
}

// IncrementOutcome records one callback result; outcome is one of the
// Outcome* labels.
func (m *Metrics) IncrementOutcome(outcome string) {
	m.CallbackOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRedeem records the duration of a redemption started at start.
func (m *Metrics) ObserveRedeem(start time.Time) {
	m.RedeemDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementNotificationFailures() {
	m.NotificationFailures.Inc()
}
