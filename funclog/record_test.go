// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 该文件包含调用记录构建与字段映射的单元测试。
package funclog

import (
	"errors"
	"testing"
	"time"
)

// TestNewSuccessRecord 测试成功记录的构建。
// 验证状态、级别、消息的固定取值与可选字段的传递。
func TestNewSuccessRecord(t *testing.T) {
	rec := newSuccessRecord("fetch", "api", "2026-08-30T10:00:00Z", 4.2, LevelInfo, "(1)", "ok")

	if rec.Status != StatusSuccess {
		t.Errorf("Status = %v, want success", rec.Status)
	}
	if rec.Level != LevelInfo {
		t.Errorf("Level = %v, want INFO", rec.Level)
	}
	if rec.Message != "function executed successfully" {
		t.Errorf("Message = %q", rec.Message)
	}
	if rec.Error != "" || rec.ErrorType != "" {
		t.Error("success record carries error fields")
	}
	if rec.Args != "(1)" || rec.Result != "ok" {
		t.Errorf("Args/Result not carried: %q / %q", rec.Args, rec.Result)
	}
}

// TestNewSuccessRecord_LevelFallback 测试成功记录的级别回退。
// 空级别和 ERROR 级别都应回退为 INFO，保证状态与级别一致。
func TestNewSuccessRecord_LevelFallback(t *testing.T) {
	tests := []struct {
		name  string // 测试用例名称
		level Level  // 传入的级别
		want  Level  // 期望的记录级别
	}{
		{name: "empty level", level: "", want: LevelInfo},
		{name: "error level rejected", level: LevelError, want: LevelInfo},
		{name: "warning kept", level: LevelWarning, want: LevelWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newSuccessRecord("f", "m", "ts", 1, tt.level, "", "")
			if rec.Level != tt.want {
				t.Errorf("Level = %v, want %v", rec.Level, tt.want)
			}
		})
	}
}

// TestNewErrorRecord 测试失败记录的构建。
// 失败记录固定为 ERROR 级别，消息嵌入错误文本，并携带错误类型名。
func TestNewErrorRecord(t *testing.T) {
	rec := newErrorRecord("fetch", "api", "2026-08-30T10:00:00Z", 4.2, "", errors.New("timeout"))

	if rec.Status != StatusError {
		t.Errorf("Status = %v, want error", rec.Status)
	}
	if rec.Level != LevelError {
		t.Errorf("Level = %v, want ERROR", rec.Level)
	}
	if rec.Error != "timeout" {
		t.Errorf("Error = %q", rec.Error)
	}
	if rec.ErrorType != "errors.errorString" {
		t.Errorf("ErrorType = %q", rec.ErrorType)
	}
	if rec.Message != "function failed: timeout" {
		t.Errorf("Message = %q", rec.Message)
	}
	if rec.Result != "" {
		t.Error("error record carries a result")
	}
}

// TestRecord_Fields 测试结构化字段映射。
// 必选字段始终存在，可选字段为空时不出现在映射中。
func TestRecord_Fields(t *testing.T) {
	rec := newSuccessRecord("f", "m", "ts", 1.5, LevelInfo, "", "")
	fields := rec.Fields()

	for _, key := range []string{"function_name", "module", "timestamp", "level", "duration_ms", "status", "message"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("required field %q missing", key)
		}
	}
	for _, key := range []string{"args", "result", "error", "error_type"} {
		if _, ok := fields[key]; ok {
			t.Errorf("empty optional field %q present", key)
		}
	}

	errRec := newErrorRecord("f", "m", "ts", 1.5, "(1, 2)", errors.New("boom"))
	errFields := errRec.Fields()
	if errFields["args"] != "(1, 2)" {
		t.Errorf("args = %v", errFields["args"])
	}
	if errFields["error"] != "boom" {
		t.Errorf("error = %v", errFields["error"])
	}
	if errFields["error_type"] != "errors.errorString" {
		t.Errorf("error_type = %v", errFields["error_type"])
	}
}

// TestErrorType 测试错误类型名的解析。
// panic 恢复出的值使用其原始动态类型，指针符号被剥除。
func TestErrorType(t *testing.T) {
	tests := []struct {
		name string // 测试用例名称
		err  error  // 输入错误
		want string // 期望的类型名
	}{
		{name: "nil error", err: nil, want: ""},
		{name: "stdlib error", err: errors.New("x"), want: "errors.errorString"},
		{name: "panic with string", err: &panicError{value: "oops"}, want: "string"},
		{name: "panic with error", err: &panicError{value: errors.New("x")}, want: "errors.errorString"},
		{name: "panic with int", err: &panicError{value: 42}, want: "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorType(tt.err); got != tt.want {
				t.Errorf("errorType() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRoundDuration 测试耗时的两位小数舍入。
func TestRoundDuration(t *testing.T) {
	tests := []struct {
		name string        // 测试用例名称
		d    time.Duration // 输入耗时
		want float64       // 期望的毫秒数
	}{
		{name: "exact milliseconds", d: 3 * time.Millisecond, want: 3},
		{name: "sub-millisecond", d: 1234567 * time.Nanosecond, want: 1.23},
		{name: "rounds up", d: 1235500 * time.Nanosecond, want: 1.24},
		{name: "negative clamped", d: -time.Second, want: 0},
		{name: "zero", d: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundDuration(tt.d); got != tt.want {
				t.Errorf("roundDuration(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}
