// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 该包实现了对任意函数的透明插桩：包装后的函数保持原有的调用契约
// （返回值与错误传播完全不变），同时在每次调用时自动记录追踪 Span
// 与结构化日志记录，并通过 OTLP 协议导出到遥测后端。
// 主要功能包括：
//   - 函数包装器（Wrap0/Wrap1/Wrap2/Do），记录函数身份、参数、耗时与成败
//   - 每次调用生成且仅生成一条调用记录（Record）
//   - 进程级遥测管道的初始化、重配置与关闭
//   - 日志消息模板格式化
package funclog

import (
	"fmt"
	"strings"
	"time"
)

// Level 表示调用记录的日志级别。
type Level string

// 日志级别常量。
// 成功调用默认使用 LevelInfo，失败调用固定使用 LevelError。
const (
	// LevelInfo 信息级别，成功调用的默认级别
	LevelInfo Level = "INFO"
	// LevelWarning 警告级别，可通过 WithLevel 为成功调用指定
	LevelWarning Level = "WARNING"
	// LevelError 错误级别，失败调用固定使用该级别
	LevelError Level = "ERROR"
)

// Status 表示调用的执行结果状态。
type Status string

// 调用状态常量。
const (
	// StatusSuccess 表示函数正常返回
	StatusSuccess Status = "success"
	// StatusError 表示函数返回错误或发生 panic
	StatusError Status = "error"
)

// 固定的成功消息文本。
const successMessage = "function executed successfully"

// Record 是单次函数调用的结构化调用记录。
// 记录在调用开始时创建，调用结束（正常或异常）时最终化，
// 随后交给遥测管道导出；导出后包装器不再持有该记录。
//
// 不变量：
//   - 每次调用恰好产生一条记录，无论成功或失败
//   - DurationMS 始终存在且非负
//   - Status 与 Level 保持一致（success 对应非 ERROR 级别，error 对应 ERROR）
//   - Result 仅在成功时存在；Error/ErrorType 仅在失败时存在
type Record struct {
	// FunctionName 被包装函数的标识名
	FunctionName string `json:"function_name"`
	// Module 函数所属的逻辑分组（默认取调用方的包路径）
	Module string `json:"module"`
	// Timestamp 调用开始时间，RFC3339Nano 格式（带时区）
	Timestamp string `json:"timestamp"`
	// Level 日志级别，成功为配置级别（默认 INFO），失败为 ERROR
	Level Level `json:"level"`
	// Args 参数的字符串表示（仅在启用 WithArgs 时存在）
	Args string `json:"args,omitempty"`
	// Result 返回值的字符串表示（仅在成功且启用 WithResult 时存在）
	Result string `json:"result,omitempty"`
	// DurationMS 执行耗时（毫秒），保留两位小数
	DurationMS float64 `json:"duration_ms"`
	// Status 执行状态：success 或 error
	Status Status `json:"status"`
	// Error 失败原因的字符串表示（仅在失败时存在）
	Error string `json:"error,omitempty"`
	// ErrorType 错误的类型名（仅在失败时存在）
	ErrorType string `json:"error_type,omitempty"`
	// Message 人类可读的摘要信息
	Message string `json:"message"`
}

// newSuccessRecord 创建一条成功调用记录。
// level 为空时使用 LevelInfo；result 为空字符串时不附加返回值字段。
func newSuccessRecord(name, module, timestamp string, durationMS float64, level Level, args, result string) *Record {
	if level == "" || level == LevelError {
		level = LevelInfo
	}
	return &Record{
		FunctionName: name,
		Module:       module,
		Timestamp:    timestamp,
		Level:        level,
		Args:         args,
		Result:       result,
		DurationMS:   durationMS,
		Status:       StatusSuccess,
		Message:      successMessage,
	}
}

// newErrorRecord 创建一条失败调用记录。
// 记录级别固定为 ERROR，消息中嵌入错误文本。
func newErrorRecord(name, module, timestamp string, durationMS float64, args string, err error) *Record {
	errText := safeString(err)
	return &Record{
		FunctionName: name,
		Module:       module,
		Timestamp:    timestamp,
		Level:        LevelError,
		Args:         args,
		DurationMS:   durationMS,
		Status:       StatusError,
		Error:        errText,
		ErrorType:    errorType(err),
		Message:      fmt.Sprintf("function failed: %s", errText),
	}
}

// Fields 返回记录的结构化字段映射。
// 该映射以 log_data 属性附加到导出的日志条目上，
// 供查看器无需解析自由文本即可重建完整记录。
// 可选字段为空时不包含在映射中。
func (r *Record) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"function_name": r.FunctionName,
		"module":        r.Module,
		"timestamp":     r.Timestamp,
		"level":         string(r.Level),
		"duration_ms":   r.DurationMS,
		"status":        string(r.Status),
		"message":       r.Message,
	}
	if r.Args != "" {
		fields["args"] = r.Args
	}
	if r.Result != "" {
		fields["result"] = r.Result
	}
	if r.Error != "" {
		fields["error"] = r.Error
	}
	if r.ErrorType != "" {
		fields["error_type"] = r.ErrorType
	}
	return fields
}

// errorType 返回错误的类型名（不含指针符号）。
// 对于 panic 恢复出的非 error 值，使用其动态类型名。
func errorType(err error) string {
	if err == nil {
		return ""
	}
	if pe, ok := err.(*panicError); ok {
		return strings.TrimPrefix(fmt.Sprintf("%T", pe.value), "*")
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// roundDuration 将耗时转换为保留两位小数的毫秒数。
func roundDuration(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	ms := float64(d.Nanoseconds()) / 1e6
	return float64(int64(ms*100+0.5)) / 100
}
