// Package metrics exposes Prometheus collectors for the RFQ pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors on a private registry. It satisfies
// rfq.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	chunks        *prometheus.CounterVec
	chunkDuration prometheus.Histogram
	generations   *prometheus.CounterVec
	genDuration   prometheus.Histogram
	chunksPerRun  prometheus.Histogram
	uploads       *prometheus.CounterVec
	emails        *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfq_chunk_extractions_total",
			Help: "Chunk extractions by result (ok, failed).",
		}, []string{"result"}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rfq_chunk_extraction_duration_seconds",
			Help:    "Time spent extracting one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfq_generations_total",
			Help: "Generations by outcome (complete, partial, empty).",
		}, []string{"outcome"}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rfq_generation_duration_seconds",
			Help:    "Wall time of a whole generation.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		chunksPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rfq_generation_chunks",
			Help:    "Number of chunks per generation.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfq_uploads_total",
			Help: "Uploaded documents by HTTP status.",
		}, []string{"status"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfq_emails_total",
			Help: "Email deliveries by result (ok, failed).",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chunks, m.chunkDuration, m.generations, m.genDuration, m.chunksPerRun,
		m.uploads, m.emails,
	)
	return m
}

// ObserveChunk records one chunk extraction.
func (m *Metrics) ObserveChunk(ok bool, elapsed time.Duration) {
	m.chunks.WithLabelValues(result(ok)).Inc()
	m.chunkDuration.Observe(elapsed.Seconds())
}

// ObserveGeneration records one finished generation. A run where every chunk
// failed is "empty"; one with some failures is "partial".
func (m *Metrics) ObserveGeneration(chunks, failed int, elapsed time.Duration) {
	outcome := "complete"
	switch {
	case chunks > 0 && failed == chunks:
		outcome = "empty"
	case failed > 0:
		outcome = "partial"
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.genDuration.Observe(elapsed.Seconds())
	m.chunksPerRun.Observe(float64(chunks))
}

// ObserveUpload records the HTTP status returned for an upload.
func (m *Metrics) ObserveUpload(status int) {
	m.uploads.WithLabelValues(http.StatusText(status)).Inc()
}

// ObserveEmail records one delivery attempt.
func (m *Metrics) ObserveEmail(ok bool) {
	m.emails.WithLabelValues(result(ok)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
