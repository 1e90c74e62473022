package mockserver

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	queriesTotal    prometheus.Counter
	queriesFinished *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asearcher_mock_requests_total",
				Help: "Requests served by the mock service, labeled by route and status code.",
			},
			[]string{"route", "code"},
		),
		queriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asearcher_mock_queries_submitted_total",
			Help: "Queries accepted by POST /query.",
		}),
		queriesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asearcher_mock_queries_finished_total",
				Help: "Queries that reached a terminal status, labeled by status.",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.requestsTotal, m.queriesTotal, m.queriesFinished)
	return m
}
