package server

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"session-gate/auth"
)

// Metrics 会话相关的 Prometheus 指标
type Metrics struct {
	Logins      *prometheus.CounterVec
	Logouts     *prometheus.CounterVec
	Resolutions *prometheus.CounterVec
	Resets      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_gate_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Logouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_gate_logouts_total",
				Help: "Logout calls by whether a session was destroyed",
			},
			[]string{"result"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_gate_session_resolutions_total",
				Help: "Session token resolutions by result",
			},
			[]string{"result"},
		),
		Resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_gate_password_resets_total",
				Help: "Password reset steps by stage and result",
			},
			[]string{"stage", "result"},
		),
	}

	reg.MustRegister(m.Logins, m.Logouts, m.Resolutions, m.Resets)
	return m
}

func (m *Metrics) observeResolve(err error) {
	m.Resolutions.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
