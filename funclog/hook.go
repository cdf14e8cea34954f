// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 本文件实现日志与追踪的关联：通过 Logrus Hook 自动将追踪上下文
// （Trace ID、Span ID）注入日志条目，使查看器能把日志记录和对应的
// 调用 Span 关联起来。
package funclog

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// TraceContextHook 是一个 Logrus 钩子，自动向日志条目注入追踪上下文。
// 当日志条目的上下文中包含有效的 Span 时，添加 trace_id、span_id
// 和 trace_sampled 字段。
type TraceContextHook struct{}

// NewTraceContextHook 创建一个新的 TraceContextHook 实例。
//
// 使用示例：
//
//	logger := logrus.New()
//	logger.AddHook(funclog.NewTraceContextHook())
func NewTraceContextHook() *TraceContextHook {
	return &TraceContextHook{}
}

// Levels 返回钩子触发的日志级别列表，所有级别均触发。
func (h *TraceContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 在日志条目生成时被调用，向条目注入追踪上下文字段。
func (h *TraceContextHook) Fire(entry *logrus.Entry) error {
	ctx := entry.Context
	if ctx == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}

	spanCtx := span.SpanContext()
	entry.Data["trace_id"] = spanCtx.TraceID().String()
	entry.Data["span_id"] = spanCtx.SpanID().String()
	if spanCtx.IsSampled() {
		entry.Data["trace_sampled"] = true
	}
	return nil
}

// EntryWithTraceContext 向现有日志条目添加追踪上下文字段。
// 上下文中没有有效 Span 时原样返回条目。
func EntryWithTraceContext(ctx context.Context, entry *logrus.Entry) *logrus.Entry {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return entry
	}

	spanCtx := span.SpanContext()
	return entry.WithFields(logrus.Fields{
		"trace_id":      spanCtx.TraceID().String(),
		"span_id":       spanCtx.SpanID().String(),
		"trace_sampled": spanCtx.IsSampled(),
	})
}

// TraceIDFromContext 从上下文中提取 Trace ID。
// 上下文无效时返回空字符串。
func TraceIDFromContext(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// SpanIDFromContext 从上下文中提取 Span ID。
// 上下文无效时返回空字符串。
func SpanIDFromContext(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}
