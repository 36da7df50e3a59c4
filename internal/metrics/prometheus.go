package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Import metrics
	ArticlesImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_imported_total",
			Help: "Total number of articles imported, by code or law",
		},
		[]string{"text"},
	)

	DecisionsImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_imported_total",
			Help: "Total number of decisions imported, by jurisdiction",
		},
		[]string{"jurisdiction"},
	)

	ChunksEmbedded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunks_embedded_total",
			Help: "Total number of text chunks embedded",
		},
		[]string{"source"},
	)

	ChunksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunks_skipped_total",
			Help: "Total number of chunks skipped after retries were exhausted",
		},
		[]string{"source"},
	)

	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedding_duration_seconds",
			Help:    "Embedding request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ImportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_errors_total",
			Help: "Total number of errors encountered during imports",
		},
		[]string{"source", "stage"},
	)

	ImportRuns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "import_runs_active",
			Help: "Number of currently running import pipelines",
		},
		[]string{"source"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ArticlesImported,
		DecisionsImported,
		ChunksEmbedded,
		ChunksSkipped,
		EmbeddingDuration,
		ImportErrors,
		ImportRuns,
	)
}

// Handler exposes the Prometheus scrape endpoint as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
