// Package api 提供日志查看器的HTTP API处理程序。
// 该包实现查看器的全部接口：OTLP/JSON 日志接收、记录列表查询、
// 记录详情查询、按函数聚合统计、实时日志流以及健康检查。
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oriys/cirrus/internal/events"
	"github.com/oriys/cirrus/internal/metrics"
	"github.com/oriys/cirrus/internal/storage"
	"github.com/sirupsen/logrus"
)

// Handler 是查看器 API 请求处理器的核心结构体。
// 它封装了记录存储、事件转发器和指标收集器的依赖。
//
// 字段说明：
//   - store: 日志记录存储接口
//   - forwarder: 失败事件转发器（可选，nil 时不转发）
//   - metrics: Prometheus 指标收集器（可选，nil 时不采集）
//   - broadcaster: 实时日志流广播器
//   - logger: 日志记录器
type Handler struct {
	store       storage.Store
	forwarder   *events.Forwarder
	metrics     *metrics.Metrics
	broadcaster *Broadcaster
	logger      *logrus.Logger
	startedAt   time.Time
}

// NewHandler 创建并返回一个新的 Handler 实例。
//
// 参数：
//   - store: 记录存储实例
//   - forwarder: 失败事件转发器，可为 nil
//   - m: 指标收集器，可为 nil
//   - logger: 日志记录器实例
//
// 返回值：
//   - *Handler: 初始化完成的处理器实例
func NewHandler(store storage.Store, forwarder *events.Forwarder, m *metrics.Metrics, logger *logrus.Logger) *Handler {
	return &Handler{
		store:       store,
		forwarder:   forwarder,
		metrics:     m,
		broadcaster: NewBroadcaster(),
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// ListLogs 处理 GET /api/logs 请求，按时间倒序返回日志记录列表。
//
// Query 参数：
//   - limit: 返回数量（默认 100）
//   - function_name: 按函数名过滤（可选）
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := storage.Query{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			q.Limit = limit
		}
	}
	q.FunctionName = r.URL.Query().Get("function_name")

	records, err := h.store.List(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list log records")
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	if records == nil {
		records = []*storage.LogRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetLog 处理 GET /api/logs/{id} 请求，返回单条记录的完整原始载荷。
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.Get(id)
	if errors.Is(err, storage.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "log not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to load log record")
		writeError(w, http.StatusInternalServerError, "failed to load log")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// FunctionStats 表示单个函数的聚合统计。
type FunctionStats struct {
	// FunctionName 函数名
	FunctionName string `json:"function_name"`
	// Count 调用记录总数
	Count int `json:"count"`
	// ErrorCount 失败记录数
	ErrorCount int `json:"error_count"`
	// AvgDurationMS 平均耗时（毫秒）
	AvgDurationMS float64 `json:"avg_duration_ms"`
	// LastSeen 最近一条记录的时间戳
	LastSeen string `json:"last_seen"`
}

// Stats 处理 GET /api/stats 请求，返回按函数聚合的统计信息。
// 聚合基于存储中当前保留的记录计算。
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(storage.Query{Limit: storage.DefaultCapacity})
	if err != nil {
		h.logger.WithError(err).Error("Failed to load records for stats")
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	byFunction := make(map[string]*FunctionStats)
	totals := make(map[string]float64)
	for _, rec := range records {
		st, ok := byFunction[rec.FunctionName]
		if !ok {
			st = &FunctionStats{FunctionName: rec.FunctionName, LastSeen: rec.Timestamp}
			byFunction[rec.FunctionName] = st
		}
		st.Count++
		if rec.Status == "error" {
			st.ErrorCount++
		}
		if rec.Timestamp > st.LastSeen {
			st.LastSeen = rec.Timestamp
		}
		totals[rec.FunctionName] += rec.DurationMS
	}

	result := make([]*FunctionStats, 0, len(byFunction))
	for name, st := range byFunction {
		if st.Count > 0 {
			st.AvgDurationMS = totals[name] / float64(st.Count)
		}
		result = append(result, st)
	}
	writeJSON(w, http.StatusOK, result)
}

// Health 处理 GET /health 请求，返回基本健康状态。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Ready 处理 GET /health/ready 请求（就绪探针）。
// 存储不可用时返回 503。
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Count(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live 处理 GET /health/live 请求（存活探针）。
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "alive",
		"goroutines": runtime.NumGoroutine(),
	})
}

// writeJSON 将数据以 JSON 格式写入响应。
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 将错误消息以统一的 JSON 结构写入响应。
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
