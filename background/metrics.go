package background

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/popup"
)

// Metrics holds the coordinator Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Results       *prometheus.CounterVec
	PopupsCreated prometheus.Counter
	Pending       prometheus.Gauge
}

// NewMetrics creates and registers the metrics with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authbridge_requests_total",
			Help: "Total number of authorization requests issued",
		}, []string{"type"}),
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authbridge_results_total",
			Help: "Total number of authorization requests completed by outcome",
		}, []string{"type", "outcome"}),
		PopupsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "authbridge_popups_created_total",
			Help: "Total number of authorization popup windows created",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "authbridge_pending_requests",
			Help: "Number of authorization requests waiting for the user",
		}),
	}
}

func (m *Metrics) requested(authType authbridge.AuthType) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(string(authType)).Inc()
}

func (m *Metrics) completed(authType authbridge.AuthType, err error) {
	if m == nil {
		return
	}
	m.Results.WithLabelValues(string(authType), Outcome(err)).Inc()
}

func (m *Metrics) pending(count int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(count))
}

// PopupCreated counts a created popup; it matches popup.WithCreatedListener.
func (m *Metrics) PopupCreated(_ *popup.Tab) {
	if m == nil {
		return
	}
	m.PopupsCreated.Inc()
}

// Outcome classifies a Request error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return string(authbridge.StatusAccepted)
	case errors.Is(err, authbridge.ErrAborted):
		return string(authbridge.StatusAborted)
	case errors.Is(err, authbridge.ErrRejected):
		return string(authbridge.StatusRejected)
	case errors.Is(err, authbridge.ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return string(authbridge.StatusError)
}
