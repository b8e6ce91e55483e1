// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "letscook"

// Collector владеет всеми метриками клиента. Nil-коллектор допустим:
// все методы в этом случае ничего не делают.
type Collector struct {
	submissions    *prometheus.CounterVec
	confirmLatency *prometheus.HistogramVec
	subscriptions  *prometheus.GaugeVec
	rpcLatency     *prometheus.HistogramVec
	decodeFailures *prometheus.CounterVec
	candleFetches  *prometheus.CounterVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// Тесты передают собственный prometheus.NewRegistry(), чтобы не
// конфликтовать с глобальным реестром.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Transactions submitted by action and final status",
			},
			[]string{"action", "status"},
		),
		confirmLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "confirmation_seconds",
				Help:      "Time from submit to confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"action"},
		),
		subscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_subscriptions",
				Help:      "Open account and signature subscriptions",
			},
			[]string{"kind"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "result"},
		),
		decodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_failures_total",
				Help:      "Account payloads that failed to decode",
			},
			[]string{"kind"},
		),
		candleFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candle_fetches_total",
				Help:      "Candle loads by source and result",
			},
			[]string{"source", "result"},
		),
	}
	reg.MustRegister(
		c.submissions,
		c.confirmLatency,
		c.subscriptions,
		c.rpcLatency,
		c.decodeFailures,
		c.candleFetches,
	)
	return c
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.submissions.Reset()
	c.confirmLatency.Reset()
	c.subscriptions.Reset()
	c.rpcLatency.Reset()
	c.decodeFailures.Reset()
	c.candleFetches.Reset()
}

// RecordSubmission записывает финальный статус транзакции.
func (c *Collector) RecordSubmission(action, status string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(action, status).Inc()
}

// ObserveConfirmation записывает время ожидания подтверждения.
func (c *Collector) ObserveConfirmation(action string, d time.Duration) {
	if c == nil {
		return
	}
	c.confirmLatency.WithLabelValues(action).Observe(d.Seconds())
}

// SubscriptionOpened увеличивает счетчик открытых подписок.
func (c *Collector) SubscriptionOpened(kind string) {
	if c == nil {
		return
	}
	c.subscriptions.WithLabelValues(kind).Inc()
}

// SubscriptionClosed уменьшает счетчик открытых подписок.
func (c *Collector) SubscriptionClosed(kind string) {
	if c == nil {
		return
	}
	c.subscriptions.WithLabelValues(kind).Dec()
}

// ObserveRPC записывает метрики RPC-запроса
func (c *Collector) ObserveRPC(method string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.rpcLatency.WithLabelValues(method, result).Observe(d.Seconds())
}

// DecodeFailure считает payload, который не удалось декодировать.
func (c *Collector) DecodeFailure(kind string) {
	if c == nil {
		return
	}
	c.decodeFailures.WithLabelValues(kind).Inc()
}

// CandleFetch считает загрузку свечей.
func (c *Collector) CandleFetch(source string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.candleFetches.WithLabelValues(source, result).Inc()
}
