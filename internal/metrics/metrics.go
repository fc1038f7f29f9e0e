package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics
// records nothing.
type Metrics struct {
	AuthOperations    *prometheus.CounterVec
	ActionLinks       *prometheus.CounterVec
	VerificationPolls prometheus.Counter
	ActiveVisitors    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easemyday_auth_operations_total",
			Help: "Session operations by outcome",
		}, []string{"operation", "result"}),
		ActionLinks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easemyday_action_links_total",
			Help: "Inbound action links by mode",
		}, []string{"mode"}),
		VerificationPolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "easemyday_verification_polls_total",
			Help: "Principal reloads issued by the email verification poller",
		}),
		ActiveVisitors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "easemyday_active_visitors",
			Help: "Visitors with a live session controller",
		}),
	}
}

func (m *Metrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.AuthOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordActionLink(mode string) {
	if m == nil {
		return
	}
	m.ActionLinks.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementVerificationPolls() {
	if m == nil {
		return
	}
	m.VerificationPolls.Inc()
}

func (m *Metrics) SetActiveVisitors(count int) {
	if m == nil {
		return
	}
	m.ActiveVisitors.Set(float64(count))
}
