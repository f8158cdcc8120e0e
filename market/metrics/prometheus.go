package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streambazaar"

// PrometheusRecorder exports round outcomes as Prometheus collectors.
type PrometheusRecorder struct {
	bidsSubmitted   prometheus.Counter
	bidsGranted     prometheus.Counter
	welfare         prometheus.Counter
	bidValuation    prometheus.Histogram
	utilization     *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	throughput      prometheus.Gauge
	migrationImpact prometheus.Histogram
}

// NewPrometheusRecorder registers the market collectors with reg.
// Panics if they are already registered there.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		bidsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_submitted_total",
			Help:      "Number of bids submitted to auction rounds",
		}),
		bidsGranted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_granted_total",
			Help:      "Number of bids that won an allocation",
		}),
		welfare: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granted_valuation_total",
			Help:      "Sum of valuations of granted bids",
		}),
		bidValuation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bid_valuation",
			Help:      "Valuation of submitted bids",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		utilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_utilization",
			Help:      "Most recently reported utilization fraction per resource kind",
		}, []string{"resource"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tenant_latency_milliseconds",
			Help:      "Reported tenant latency",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"priority"}),
		throughput: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput",
			Help:      "Most recently reported normalized throughput",
		}),
		migrationImpact: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_impact",
			Help:      "Performance degradation observed during operator migrations",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (p *PrometheusRecorder) RecordAuctionResults(valuations []float64, allocated []bool) {
	p.bidsSubmitted.Add(float64(len(valuations)))
	for i, v := range valuations {
		p.bidValuation.Observe(v)
		if i < len(allocated) && allocated[i] {
			p.bidsGranted.Inc()
			if v > 0 {
				p.welfare.Add(v)
			}
		}
	}
}

func (p *PrometheusRecorder) RecordResourceUtilization(utilizations map[string]float64) {
	for kind, u := range utilizations {
		p.utilization.WithLabelValues(kind).Set(u)
	}
}

func (p *PrometheusRecorder) RecordLatency(_ string, latencyMs float64, priority string) {
	// tenant IDs are unbounded; only the tier is a label
	p.latency.WithLabelValues(priority).Observe(latencyMs)
}

func (p *PrometheusRecorder) RecordThroughput(value float64) {
	p.throughput.Set(value)
}

func (p *PrometheusRecorder) RecordMigrationImpact(value float64) {
	p.migrationImpact.Observe(value)
}
