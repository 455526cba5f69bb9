package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	oracles "pythgo/oracles/types"
)

const namespace = "pythgo"

const (
	ResultOk    = "ok"
	ResultStale = "stale"
	ResultError = "error"
)

// Collector holds the watcher's series in a registry of its own so several
// watchers, or tests, never collide.
type Collector struct {
	Registry    *prometheus.Registry
	reads       *prometheus.CounterVec
	price       *prometheus.GaugeVec
	confidence  *prometheus.GaugeVec
	publishTime *prometheus.GaugeVec
	age         *prometheus.GaugeVec
}

func CreateCollector() *Collector {
	p := &Collector{
		Registry: prometheus.NewRegistry(),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reads_total",
				Help:      "Freshness checks by feed and outcome.",
			},
			[]string{"feed", "result"},
		),
		price: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "price",
				Help:      "Last fresh price, scaled by its exponent.",
			},
			[]string{"feed"},
		),
		confidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "confidence",
				Help:      "Last fresh confidence interval, scaled by its exponent.",
			},
			[]string{"feed"},
		),
		publishTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "publish_time_seconds",
				Help:      "Publish time of the last fresh price.",
			},
			[]string{"feed"},
		),
		age: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "age_seconds",
				Help:      "Age of the last fresh price when it was read.",
			},
			[]string{"feed"},
		),
	}
	p.Registry.MustRegister(p.reads, p.price, p.confidence, p.publishTime, p.age)
	return p
}

func (p *Collector) RecordPrice(feed string, point *oracles.PricePoint, now int64) {
	p.reads.WithLabelValues(feed, ResultOk).Inc()
	price, _ := point.Value().Float64()
	confidence, _ := point.Confidence().Float64()
	p.price.WithLabelValues(feed).Set(price)
	p.confidence.WithLabelValues(feed).Set(confidence)
	p.publishTime.WithLabelValues(feed).Set(float64(point.PublishTime))
	p.age.WithLabelValues(feed).Set(float64(now - point.PublishTime))
}

func (p *Collector) RecordStale(feed string) {
	p.reads.WithLabelValues(feed, ResultStale).Inc()
}

func (p *Collector) RecordError(feed string) {
	p.reads.WithLabelValues(feed, ResultError).Inc()
}

// Handler exposes the collector's registry.
func (p *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}
