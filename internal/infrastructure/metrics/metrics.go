package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var _ services.HedgeMetrics = (*Metrics)(nil)

// Metrics метрики цикла хеджирования
type Metrics struct {
	registry *prometheus.Registry

	Decisions      *prometheus.CounterVec
	TradeValue     *prometheus.HistogramVec
	TargetDelta    *prometheus.GaugeVec
	CurrentHedge   *prometheus.GaugeVec
	TradeStatuses  *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	CycleTokens    prometheus.Gauge
	FailedTokens   prometheus.Gauge
	LastCycleEnded prometheus.Gauge
}

// NewMetrics создает и регистрирует метрики в собственном реестре
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hedger_decisions_total",
			Help: "Hedge decisions by token, outcome and error kind",
		}, []string{"token", "outcome", "error_kind"}),

		TradeValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hedger_trade_value",
			Help:    "Absolute trade value in funding currency for decisions above threshold",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{"token", "direction"}),

		TargetDelta: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hedger_target_delta",
			Help: "Target aggregate delta per pool in underlying units",
		}, []string{"token", "pool"}),

		CurrentHedge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hedger_current_hedge",
			Help: "Underlying balance held by the pool market maker",
		}, []string{"token", "pool"}),

		TradeStatuses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hedger_trade_receipts_total",
			Help: "Final receipt statuses of submitted hedge trades",
		}, []string{"status"}),

		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hedger_cycle_duration_seconds",
			Help:    "Wall time of one hedge cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),

		CycleTokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hedger_cycle_tokens",
			Help: "Tokens processed in the last cycle",
		}),

		FailedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hedger_cycle_failed_tokens",
			Help: "Tokens with at least one failed pool in the last cycle",
		}),

		LastCycleEnded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hedger_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
	}
}

// RecordDecision учитывает одно решение по пулу
func (m *Metrics) RecordDecision(record *entities.HedgeRecord) {
	m.Decisions.WithLabelValues(record.Token, string(record.Outcome), record.ErrorKind).Inc()

	if record.Pool == "" || record.Outcome == entities.HedgeOutcomeFailed {
		return
	}
	m.TargetDelta.WithLabelValues(record.Token, record.Pool).Set(record.TargetDelta.InexactFloat64())
	m.CurrentHedge.WithLabelValues(record.Token, record.Pool).Set(record.CurrentHedge.InexactFloat64())

	if record.Direction != entities.TradeDirectionNone {
		m.TradeValue.WithLabelValues(record.Token, string(record.Direction)).Observe(record.TradeValue.Abs().InexactFloat64())
	}
}

// RecordCycle учитывает завершенный цикл
func (m *Metrics) RecordCycle(duration time.Duration, tokens, failedTokens int) {
	m.CycleDuration.Observe(duration.Seconds())
	m.CycleTokens.Set(float64(tokens))
	m.FailedTokens.Set(float64(failedTokens))
	m.LastCycleEnded.SetToCurrentTime()
}

// RecordTradeStatus учитывает подтвержденный статус отправленной сделки
func (m *Metrics) RecordTradeStatus(status entities.TradeStatus) {
	m.TradeStatuses.WithLabelValues(status.String()).Inc()
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push отправляет метрики в Pushgateway (режим одного цикла)
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("ошибка отправки метрик в Pushgateway: %w", err)
	}
	return nil
}
