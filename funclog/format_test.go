// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 该文件包含日志消息模板格式化的单元测试。
package funclog

import (
	"testing"
)

// TestFormatter_Render 测试消息模板的渲染。
// 该测试覆盖了默认模板、自定义模板、未识别占位符和耗时格式化等场景。
func TestFormatter_Render(t *testing.T) {
	rec := &Record{
		FunctionName: "calculate_sum",
		Module:       "example",
		Timestamp:    "2026-08-30T10:00:00Z",
		Level:        LevelInfo,
		DurationMS:   12.5,
		Status:       StatusSuccess,
		Message:      "function executed successfully",
	}

	tests := []struct {
		name     string // 测试用例名称
		template string // 消息模板
		want     string // 期望的渲染结果
	}{
		{
			// 测试用例：默认模板
			name:     "default template",
			template: "",
			want:     "2026-08-30T10:00:00Z | INFO | calculate_sum | 12.5ms | function executed successfully",
		},
		{
			// 测试用例：自定义模板，只使用部分占位符
			name:     "custom template",
			template: "[{level}] {function_name}: {message}",
			want:     "[INFO] calculate_sum: function executed successfully",
		},
		{
			// 测试用例：未识别的占位符原样保留
			name:     "unknown placeholder preserved",
			template: "{function_name} {unknown}",
			want:     "calculate_sum {unknown}",
		},
		{
			// 测试用例：无占位符的静态模板
			name:     "static template",
			template: "got a call",
			want:     "got a call",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFormatter(tt.template).Render(rec)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatter_DurationPrecision 测试耗时占位符的数值格式化。
// 整数耗时不应出现多余的小数位，小数耗时保持实际精度。
func TestFormatter_DurationPrecision(t *testing.T) {
	tests := []struct {
		name     string  // 测试用例名称
		duration float64 // 耗时（毫秒）
		want     string  // 期望的渲染结果
	}{
		{name: "integer duration", duration: 3, want: "3ms"},
		{name: "one decimal", duration: 12.5, want: "12.5ms"},
		{name: "two decimals", duration: 0.25, want: "0.25ms"},
		{name: "zero duration", duration: 0, want: "0ms"},
	}

	f := NewFormatter("{duration_ms}ms")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Render(&Record{DurationMS: tt.duration})
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
