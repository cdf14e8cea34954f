// Package metrics 提供 Prometheus 指标采集与上报的统一封装。
// 该包集中定义查看器的关键指标（接收、存储、流式订阅、事件转发），
// 便于在各模块复用并保持标签一致。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 封装查看器的运行时指标集合。
// 所有字段均为 Prometheus 指标类型，通过辅助方法更新指标值。
type Metrics struct {
	// RecordsIngested 接收的调用记录总数计数器
	// 标签: status（success/error/unknown）
	RecordsIngested *prometheus.CounterVec

	// IngestBatches 接收的 OTLP 批次总数计数器
	IngestBatches prometheus.Counter

	// IngestDuration 单个批次的处理耗时直方图（单位：毫秒）
	// 桶边界: 1, 5, 10, 25, 50, 100, 250, 500, 1000 ms
	IngestDuration prometheus.Histogram

	// StoreRecords 存储中当前保留的记录数
	StoreRecords prometheus.Gauge

	// StreamSubscribers 当前活跃的 WebSocket 订阅者数量
	StreamSubscribers prometheus.Gauge

	// EventsPublished 转发到事件总线的失败事件计数器
	// 标签: result（ok/error）
	EventsPublished *prometheus.CounterVec
}

// NewMetrics 创建并注册查看器指标集合。
//
// 参数：
//   - namespace: 指标命名空间前缀（如 "cirrus"）
//
// 返回值：
//   - *Metrics: 已注册到默认 Registry 的指标集合
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RecordsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_ingested_total",
				Help:      "Total number of invocation records ingested",
			},
			[]string{"status"},
		),
		IngestBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_batches_total",
				Help:      "Total number of OTLP log batches received",
			},
		),
		IngestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_milliseconds",
				Help:      "Time spent processing a single OTLP batch",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		StoreRecords: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_records",
				Help:      "Number of records currently retained in the store",
			},
		),
		StreamSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_subscribers",
				Help:      "Number of active WebSocket stream subscribers",
			},
		),
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of error events forwarded to the event bus",
			},
			[]string{"result"},
		),
	}
}

// RecordIngested 记录一条接收的调用记录。
func (m *Metrics) RecordIngested(status string) {
	if m == nil {
		return
	}
	m.RecordsIngested.WithLabelValues(status).Inc()
}

// RecordBatch 记录一个批次的接收与处理耗时。
func (m *Metrics) RecordBatch(durationMS float64) {
	if m == nil {
		return
	}
	m.IngestBatches.Inc()
	m.IngestDuration.Observe(durationMS)
}

// SetStoreRecords 更新存储记录数。
func (m *Metrics) SetStoreRecords(n int) {
	if m == nil {
		return
	}
	m.StoreRecords.Set(float64(n))
}

// SubscriberConnected 增加活跃订阅者计数。
func (m *Metrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.StreamSubscribers.Inc()
}

// SubscriberDisconnected 减少活跃订阅者计数。
func (m *Metrics) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.StreamSubscribers.Dec()
}

// EventPublished 记录一次事件转发结果。
func (m *Metrics) EventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}
