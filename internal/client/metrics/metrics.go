// Package metrics holds the Prometheus collectors of the account client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshNoToken = "no_token"
)

type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	Refreshes        *prometheus.CounterVec
	Retries          prometheus.Counter
	OTPVerifications *prometheus.CounterVec
	SessionTeardowns *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_http_requests_total",
			Help: "Outbound API requests by method and status class",
		}, []string{"method", "class"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gophauth_http_request_duration_seconds",
			Help:    "Duration of outbound API requests including a refresh-and-retry",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_token_refreshes_total",
			Help: "Access-token refresh round-trips by outcome",
		}, []string{"outcome"}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_request_retries_total",
			Help: "Requests re-issued after a successful refresh",
		}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_otp_verifications_total",
			Help: "OTP verify calls by context and outcome",
		}, []string{"context", "outcome"}),
		SessionTeardowns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_session_teardowns_total",
			Help: "Local session teardowns by reason",
		}, []string{"reason"}),
	}
}

// StatusClass maps a status code to "2xx".."5xx", or "error" for no response.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func (m *Metrics) ObserveRequest(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, StatusClass(status)).Inc()
	m.RequestDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) IncOTPVerification(context string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.OTPVerifications.WithLabelValues(context, outcome).Inc()
}

func (m *Metrics) IncTeardown(reason string) {
	if m == nil {
		return
	}
	m.SessionTeardowns.WithLabelValues(reason).Inc()
}

// Summary renders the counters gathered from g as sorted
// "name{labels} value" lines. Histograms are reported by sample count.
func Summary(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "gophauth_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s count=%d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}
