package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики генерации чанков
type Metrics struct {
	generated       *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	wfcUnconverged  prometheus.Counter
	wfcContradicted prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// nil означает глобальный регистр Prometheus.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "chunks_generated_total",
			Help:      "Количество сгенерированных чанков по методу.",
		}, []string{"method"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "chunk_fallbacks_total",
			Help:      "Чанки, для которых метод не справился и использован случайный генератор.",
		}, []string{"method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tileworld",
			Name:      "chunk_generation_seconds",
			Help:      "Время генерации одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"method"}),
		wfcUnconverged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "wfc_unconverged_total",
			Help:      "Запуски WFC, исчерпавшие бюджет итераций.",
		}),
		wfcContradicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "wfc_contradictions_total",
			Help:      "Соседи, для которых таблица правил не оставила вариантов.",
		}),
	}

	reg.MustRegister(m.generated, m.fallbacks, m.duration, m.wfcUnconverged, m.wfcContradicted)
	return m
}

// ObserveChunk учитывает сгенерированный чанк
func (m *Metrics) ObserveChunk(method Method, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(method.String()).Inc()
	m.duration.WithLabelValues(method.String()).Observe(elapsed.Seconds())
}

// ObserveFallback учитывает переход на случайный генератор
func (m *Metrics) ObserveFallback(method Method) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(method.String()).Inc()
}

// ObserveWFC учитывает итог запуска WFC
func (m *Metrics) ObserveWFC(converged bool, contradictions int) {
	if m == nil {
		return
	}
	if !converged {
		m.wfcUnconverged.Inc()
	}
	m.wfcContradicted.Add(float64(contradictions))
}
