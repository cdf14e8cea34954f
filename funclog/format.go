// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 本文件实现日志消息模板的格式化，支持固定的占位符集合。
package funclog

import (
	"strconv"
	"strings"
)

// DefaultFormat 是默认的日志消息模板。
// 识别的占位符：{timestamp}、{level}、{function_name}、{duration_ms}、{message}。
const DefaultFormat = "{timestamp} | {level} | {function_name} | {duration_ms}ms | {message}"

// Formatter 根据模板将调用记录渲染为单行日志消息。
type Formatter struct {
	template string
}

// NewFormatter 创建一个消息格式化器。
// template 为空时使用 DefaultFormat。未识别的占位符原样保留。
func NewFormatter(template string) *Formatter {
	if template == "" {
		template = DefaultFormat
	}
	return &Formatter{template: template}
}

// Render 将调用记录渲染为格式化消息。
// duration_ms 按实际精度输出（最多两位小数）。
func (f *Formatter) Render(rec *Record) string {
	replacer := strings.NewReplacer(
		"{timestamp}", rec.Timestamp,
		"{level}", string(rec.Level),
		"{function_name}", rec.FunctionName,
		"{duration_ms}", strconv.FormatFloat(rec.DurationMS, 'f', -1, 64),
		"{message}", rec.Message,
	)
	return replacer.Replace(f.template)
}
