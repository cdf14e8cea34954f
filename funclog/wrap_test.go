// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 该文件包含函数包装器的单元测试，使用内存 Span 导出器和
// logrus 测试钩子来隔离测试环境，无需真实的 OTLP 接收器。
package funclog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestPipeline 构建一个测试专用管道并注册为当前活跃管道。
// Span 导出到内存导出器，日志写入测试钩子，测试结束后恢复原状态。
//
// 返回值：
//   - *tracetest.InMemoryExporter: 捕获导出 Span 的内存导出器
//   - *test.Hook: 捕获日志条目的测试钩子
func newTestPipeline(t *testing.T) (*tracetest.InMemoryExporter, *test.Hook) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	logger, hook := test.NewNullLogger()

	p := &Pipeline{
		config:         Config{ServiceName: "test"},
		tracerProvider: tp,
		tracer:         tp.Tracer(instrumentationScope),
		logger:         logger,
		formatter:      NewFormatter(""),
	}

	old := activePipeline.Swap(p)
	t.Cleanup(func() {
		activePipeline.Store(old)
		tp.Shutdown(context.Background())
	})

	return exporter, hook
}

// logData 从日志条目中提取 log_data 结构化字段。
func logData(t *testing.T, entry *logrus.Entry) map[string]interface{} {
	t.Helper()

	raw, ok := entry.Data[LogDataKey]
	if !ok {
		t.Fatalf("log entry missing %s field", LogDataKey)
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected %s type: %T", LogDataKey, raw)
	}
	return fields
}

// TestWrap1_Success 测试成功调用的完整记录链路。
// 验证返回值透明传播、恰好产生一条记录、记录字段与 Span 属性正确。
func TestWrap1_Success(t *testing.T) {
	exporter, hook := newTestPipeline(t)

	double := Wrap1("double", func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})

	got, err := double(context.Background(), 21)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("double(21) = %d, want 42", got)
	}

	// 恰好一条日志记录
	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Level != logrus.InfoLevel {
		t.Errorf("entry level = %v, want info", entry.Level)
	}

	fields := logData(t, entry)
	if fields["function_name"] != "double" {
		t.Errorf("function_name = %v, want double", fields["function_name"])
	}
	if fields["status"] != "success" {
		t.Errorf("status = %v, want success", fields["status"])
	}
	if fields["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", fields["level"])
	}
	if fields["message"] != "function executed successfully" {
		t.Errorf("message = %v", fields["message"])
	}
	if d, ok := fields["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want non-negative float", fields["duration_ms"])
	}
	// 默认不捕获参数与返回值
	if _, ok := fields["args"]; ok {
		t.Error("args captured without WithArgs")
	}
	if _, ok := fields["result"]; ok {
		t.Error("result captured without WithResult")
	}

	// 恰好一个 Span，名称为 <name>_execution
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "double_execution" {
		t.Errorf("span name = %s, want double_execution", spans[0].Name)
	}
}

// TestWrap1_Error 测试失败调用的记录行为。
// 验证错误原样返回、记录为 ERROR 级别且携带错误详情。
func TestWrap1_Error(t *testing.T) {
	_, hook := newTestPipeline(t)

	wantErr := errors.New("connection refused")
	fetch := Wrap1("fetch_data", func(ctx context.Context, id string) (string, error) {
		return "", wantErr
	})

	_, err := fetch(context.Background(), "abc")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0].Level != logrus.ErrorLevel {
		t.Errorf("entry level = %v, want error", entries[0].Level)
	}

	fields := logData(t, entries[0])
	if fields["status"] != "error" {
		t.Errorf("status = %v, want error", fields["status"])
	}
	if fields["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", fields["level"])
	}
	if fields["error"] != "connection refused" {
		t.Errorf("error = %v", fields["error"])
	}
	if fields["error_type"] != "errors.errorString" {
		t.Errorf("error_type = %v", fields["error_type"])
	}
	if msg, _ := fields["message"].(string); !strings.Contains(msg, "connection refused") {
		t.Errorf("message %q does not embed error text", msg)
	}
	// 失败时不附加返回值
	if _, ok := fields["result"]; ok {
		t.Error("result captured on error")
	}
}

// TestWrap2_ArgsAndResult 测试参数与返回值捕获选项。
func TestWrap2_ArgsAndResult(t *testing.T) {
	_, hook := newTestPipeline(t)

	add := Wrap2("add", func(ctx context.Context, a, b int) (int, error) {
		return a + b, nil
	}, WithArgs(), WithResult())

	if _, err := add(context.Background(), 5, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := logData(t, hook.LastEntry())
	if fields["args"] != "(5, 3)" {
		t.Errorf("args = %v, want (5, 3)", fields["args"])
	}
	if fields["result"] != "8" {
		t.Errorf("result = %v, want 8", fields["result"])
	}
}

// TestWrap0_WithLevel 测试自定义成功级别。
// WithLevel(LevelWarning) 的成功调用应记录为 WARNING 级别。
func TestWrap0_WithLevel(t *testing.T) {
	_, hook := newTestPipeline(t)

	ping := Wrap0("ping", func(ctx context.Context) (bool, error) {
		return true, nil
	}, WithLevel(LevelWarning))

	if _, err := ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := hook.LastEntry()
	if entry.Level != logrus.WarnLevel {
		t.Errorf("entry level = %v, want warning", entry.Level)
	}
	fields := logData(t, entry)
	if fields["level"] != "WARNING" {
		t.Errorf("level = %v, want WARNING", fields["level"])
	}
}

// TestFunc1_PanicPropagates 测试 panic 透明传播。
// 包装器记录失败遥测后必须原样重新抛出 panic 值。
func TestFunc1_PanicPropagates(t *testing.T) {
	_, hook := newTestPipeline(t)

	boom := Func1("boom", func(n int) int {
		panic("something broke")
	})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("panic was swallowed")
		}
		if r != "something broke" {
			t.Errorf("panic value = %v, want original value", r)
		}

		entries := hook.AllEntries()
		if len(entries) != 1 {
			t.Fatalf("got %d log entries, want 1", len(entries))
		}
		fields := logData(t, entries[0])
		if fields["status"] != "error" {
			t.Errorf("status = %v, want error", fields["status"])
		}
		if fields["error"] != "panic: something broke" {
			t.Errorf("error = %v", fields["error"])
		}
		if fields["error_type"] != "string" {
			t.Errorf("error_type = %v, want string", fields["error_type"])
		}
	}()

	boom(1)
}

// TestDo 测试内联执行包装。
func TestDo(t *testing.T) {
	exporter, hook := newTestPipeline(t)

	called := false
	err := Do(context.Background(), "sync_orders", func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("function body was not invoked")
	}

	if len(hook.AllEntries()) != 1 {
		t.Fatalf("got %d log entries, want 1", len(hook.AllEntries()))
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "sync_orders_execution" {
		t.Errorf("unexpected spans: %+v", spans)
	}
}

// TestWrap_Concurrent 测试并发调用下的记录完整性。
// 多协程并发调用同一个包装函数，每次调用都应产生记录，互不干扰。
func TestWrap_Concurrent(t *testing.T) {
	_, hook := newTestPipeline(t)

	const workers = 2
	const callsPerWorker = 100

	echo := Wrap1("echo", func(ctx context.Context, n int) (int, error) {
		if n%5 == 0 {
			return 0, fmt.Errorf("rejected %d", n)
		}
		return n, nil
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < callsPerWorker; i++ {
				echo(context.Background(), i)
			}
		}()
	}
	wg.Wait()

	entries := hook.AllEntries()
	if len(entries) != workers*callsPerWorker {
		t.Errorf("got %d log entries, want %d", len(entries), workers*callsPerWorker)
	}
}

// TestWithModule 测试显式分组与默认分组解析。
func TestWithModule(t *testing.T) {
	_, hook := newTestPipeline(t)

	explicit := Wrap0("explicit", func(ctx context.Context) (int, error) {
		return 0, nil
	}, WithModule("billing"))
	explicit(context.Background())

	fields := logData(t, hook.LastEntry())
	if fields["module"] != "billing" {
		t.Errorf("module = %v, want billing", fields["module"])
	}

	hook.Reset()

	implicit := Wrap0("implicit", func(ctx context.Context) (int, error) {
		return 0, nil
	})
	implicit(context.Background())

	fields = logData(t, hook.LastEntry())
	module, _ := fields["module"].(string)
	if !strings.Contains(module, "funclog") {
		t.Errorf("module = %q, want caller package path", module)
	}
}

// TestSafeString 测试任意值的安全字符串化。
func TestSafeString(t *testing.T) {
	tests := []struct {
		name string      // 测试用例名称
		in   interface{} // 输入值
		want string      // 期望的字符串表示
	}{
		{name: "nil value", in: nil, want: "<nil>"},
		{name: "plain string", in: "hello", want: "hello"},
		{name: "integer", in: 42, want: "42"},
		{name: "error value", in: errors.New("boom"), want: "boom"},
		{name: "panicking error", in: panickyError{}, want: "<unprintable>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeString(tt.in); got != tt.want {
				t.Errorf("safeString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	// 超长值截断
	long := strings.Repeat("x", maxFieldLength+50)
	got := safeString(long)
	if len(got) != maxFieldLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("long value not truncated: len=%d", len(got))
	}
}

// panickyError 是一个 Error() 方法会 panic 的类型，用于测试降级行为。
type panickyError struct{}

func (panickyError) Error() string {
	panic("error text exploded")
}
