// Package storage 提供日志查看器的调用记录存储功能。
// 该包定义统一的 Store 接口，并提供三种实现：
//   - MemoryStore: 内存环形存储（默认），容量有限，进程重启后丢失
//   - RedisStore: 基于 Redis 的存储，支持跨重启保留
//   - PostgresStore: 基于 PostgreSQL 的存储，支持长期保留与复杂查询
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound 表示请求的日志记录不存在。
var ErrRecordNotFound = errors.New("log record not found")

// DefaultCapacity 是存储的默认容量上限（条数），超出时淘汰最旧记录。
const DefaultCapacity = 1000

// LogRecord 是查看器侧的日志记录模型。
// 在调用记录（funclog.Record）的字段之上增加了存储标识与原始载荷，
// 用于列表展示与详情查询。
type LogRecord struct {
	// ID 存储分配的唯一标识符
	ID string `json:"id"`
	// Timestamp 调用开始时间（RFC3339 格式字符串）
	Timestamp string `json:"timestamp"`
	// Level 日志级别
	Level string `json:"level"`
	// FunctionName 函数标识名
	FunctionName string `json:"function_name"`
	// Module 函数所属分组
	Module string `json:"module"`
	// DurationMS 执行耗时（毫秒）
	DurationMS float64 `json:"duration_ms"`
	// Status 执行状态
	Status string `json:"status"`
	// Message 摘要消息
	Message string `json:"message"`
	// Args 参数字符串表示（可选）
	Args string `json:"args,omitempty"`
	// Result 返回值字符串表示（可选）
	Result string `json:"result,omitempty"`
	// Error 错误文本（可选）
	Error string `json:"error,omitempty"`
	// ErrorType 错误类型名（可选）
	ErrorType string `json:"error_type,omitempty"`
	// TraceID 关联的追踪 ID（可选）
	TraceID string `json:"trace_id,omitempty"`
	// SpanID 关联的 Span ID（可选）
	SpanID string `json:"span_id,omitempty"`
	// SeverityText OTLP 日志记录的严重级别文本（可选）
	SeverityText string `json:"severity_text,omitempty"`
	// RawData 完整的原始结构化载荷，详情接口原样返回
	RawData map[string]interface{} `json:"raw_data"`
}

// FromPayload 从扁平化的结构化载荷构建日志记录。
// 缺失字段回填默认值（行为与拒收相比更宽松，残缺记录也可展示），
// 原始载荷完整保留在 RawData 中。
func FromPayload(data map[string]interface{}) *LogRecord {
	rec := &LogRecord{
		ID:           uuid.New().String(),
		Timestamp:    stringField(data, "timestamp"),
		Level:        stringField(data, "level"),
		FunctionName: stringField(data, "function_name"),
		Module:       stringField(data, "module"),
		DurationMS:   floatField(data, "duration_ms"),
		Status:       stringField(data, "status"),
		Message:      stringField(data, "message"),
		Args:         stringField(data, "args"),
		Result:       stringField(data, "result"),
		Error:        stringField(data, "error"),
		ErrorType:    stringField(data, "error_type"),
		TraceID:      stringField(data, "trace_id"),
		SpanID:       stringField(data, "span_id"),
		SeverityText: stringField(data, "severity_text"),
		RawData:      data,
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if rec.Level == "" {
		rec.Level = "INFO"
	}
	if rec.FunctionName == "" {
		rec.FunctionName = "unknown"
	}
	if rec.Module == "" {
		rec.Module = "unknown"
	}
	if rec.Status == "" {
		rec.Status = "unknown"
	}
	return rec
}

// Query 定义记录列表查询的过滤条件。
type Query struct {
	// Limit 返回的最大记录数，0 或负数时使用默认值 100
	Limit int
	// FunctionName 按函数名过滤，为空时不过滤
	FunctionName string
}

// normalize 规范化查询参数。
func (q *Query) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > DefaultCapacity {
		q.Limit = DefaultCapacity
	}
}

// Store 定义日志记录存储的统一接口。
// 所有实现必须支持多协程并发访问。
type Store interface {
	// Add 存入一条记录并返回其 ID
	Add(rec *LogRecord) (string, error)
	// List 按时间倒序返回匹配查询条件的记录
	List(q Query) ([]*LogRecord, error)
	// Get 按 ID 返回单条记录，不存在时返回 ErrRecordNotFound
	Get(id string) (*LogRecord, error)
	// Count 返回当前存储的记录总数
	Count() (int, error)
	// Purge 删除时间戳早于给定时刻的记录，返回删除数量
	Purge(olderThan time.Time) (int, error)
	// Close 释放底层资源
	Close() error
}

// stringField 从载荷中读取字符串字段，类型不符时返回空字符串。
func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		case fmt.Stringer:
			return s.String()
		}
	}
	return ""
}

// floatField 从载荷中读取数值字段，兼容 JSON 反序列化产生的多种类型。
func floatField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// recordTime 解析记录的时间戳用于排序与淘汰，解析失败时返回零值。
func recordTime(rec *LogRecord) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, rec.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}
