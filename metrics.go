package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector records auth outcomes. Reasons are error text codes,
// never user supplied values.
type MetricsCollector interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordTokenValidation(outcome string)
	RecordHashDuration(d time.Duration)
}

// Metric outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector is the Prometheus MetricsCollector
type Collector struct {
	registrations    *prometheus.CounterVec
	logins           *prometheus.CounterVec
	tokenValidations *prometheus.CounterVec
	hashDuration     prometheus.Histogram
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector registers the auth metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmacy_auth_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmacy_auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		tokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmacy_auth_token_validations_total",
			Help: "Bearer token validations by outcome",
		}, []string{"outcome"}),
		hashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pharmacy_auth_password_hash_seconds",
			Help:    "Time spent hashing passwords",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2},
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.tokenValidations,
		c.hashDuration,
	)

	return c
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTokenValidation(outcome string) {
	c.tokenValidations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHashDuration(d time.Duration) {
	c.hashDuration.Observe(d.Seconds())
}

type nopMetrics struct{}

func (nopMetrics) RecordRegistration(string) {}
func (nopMetrics) RecordLogin(string) {}
func (nopMetrics) RecordTokenValidation(string) {}
func (nopMetrics) RecordHashDuration(time.Duration) {}

func ensureMetrics(m MetricsCollector) MetricsCollector {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// outcomeFor turns an error into a low cardinality metric label
func outcomeFor(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if code := textCode(err); code != "" {
		return code
	}
	return OutcomeFailure
}
