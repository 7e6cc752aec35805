package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 预测服务指标
type Metrics struct {
	registry      *prometheus.Registry
	predictions   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	streamClients prometheus.Gauge
}

// NewMetrics 创建指标并注册到独立的registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cyberml_predictions_total",
			Help: "Predictions served, by pipeline and predicted label.",
		}, []string{"pipeline", "label"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cyberml_prediction_errors_total",
			Help: "Rejected or failed prediction requests, by pipeline and error kind.",
		}, []string{"pipeline", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cyberml_prediction_duration_seconds",
			Help:    "Time spent in feature construction and inference.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"pipeline"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cyberml_spam_cache_hits_total",
			Help: "Spam predictions answered from the result cache.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cyberml_stream_clients",
			Help: "Connected prediction stream clients.",
		}),
	}
	m.registry.MustRegister(
		m.predictions, m.errors, m.duration, m.cacheHits, m.streamClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction 记录一次成功预测
func (m *Metrics) ObservePrediction(pipeline, label string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(pipeline, label).Inc()
	m.duration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

// ObserveError 记录一次失败请求
func (m *Metrics) ObserveError(pipeline, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(pipeline, kind).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.streamClients.Set(float64(n))
}

// Handler 返回/metrics处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
