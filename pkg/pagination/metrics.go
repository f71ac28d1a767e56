package pagination

import (
	"github.com/Sternrassler/redmine-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	strategySequential = "sequential"
	strategyConcurrent = "concurrent"
)

var (
	factory = promauto.With(metrics.Registry)

	pagesFetched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "pages_fetched_total",
		Help:      "Total collection pages fetched by strategy",
	}, []string{"strategy"})

	pagesInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Name:      "pages_in_flight",
		Help:      "Concurrent page fetches currently running",
	})

	fetchAllDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "fetch_all_duration_seconds",
		Help:      "Duration of complete collection fetches by strategy",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"strategy"})
)
