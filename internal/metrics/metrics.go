package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector counts scraper activity. A nil *Collector is valid and records
// nothing, so callers that do not care about metrics can pass nil.
type Collector struct {
	pages       *prometheus.CounterVec
	reviews     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	failures    *prometheus.CounterVec
	rows        *prometheus.CounterVec
}

// New builds a Collector and registers its series with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appreviews_pages_total",
				Help: "Review pages requested, by final outcome",
			},
			[]string{"app", "outcome"},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appreviews_reviews_total",
				Help: "Reviews received from the API",
			},
			[]string{"app"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appreviews_rate_limited_total",
				Help: "HTTP 429 responses received",
			},
			[]string{"app"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appreviews_failures_total",
				Help: "Failures by kind (transient, token, pagination, sink)",
			},
			[]string{"app", "kind"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appreviews_rows_written_total",
				Help: "Rows written to output files",
			},
			[]string{"file_kind"},
		),
	}
	reg.MustRegister(c.pages, c.reviews, c.rateLimited, c.failures, c.rows)
	return c
}

func (c *Collector) PageFetched(app, outcome string, reviews int) {
	if c == nil {
		return
	}
	c.pages.WithLabelValues(app, outcome).Inc()
	c.reviews.WithLabelValues(app).Add(float64(reviews))
}

func (c *Collector) RateLimited(app string) {
	if c == nil {
		return
	}
	c.rateLimited.WithLabelValues(app).Inc()
}

func (c *Collector) Failure(app, kind string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(app, kind).Inc()
}

// RowsWritten records rows persisted to a per-app ("app") or combined
// ("all") file.
func (c *Collector) RowsWritten(fileKind string, rows int) {
	if c == nil {
		return
	}
	c.rows.WithLabelValues(fileKind).Add(float64(rows))
}
