// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 本文件实现函数包装器：Go 没有装饰器语法，这里使用返回闭包的
// 高阶泛型函数来达到同样的效果。包装后的函数与原函数签名一致，
// 返回值与错误（含 panic）原样传播，同时每次调用额外产生一个
// 追踪 Span 和一条调用记录日志。
package funclog

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LogDataKey 是调用记录在导出日志条目中的结构化属性键。
// 查看器按该键从 OTLP 日志属性中提取完整的调用记录。
const LogDataKey = "log_data"

// maxFieldLength 参数/返回值字符串表示的最大长度，超出部分截断。
const maxFieldLength = 256

// options 保存包装器的配置选项。
type options struct {
	level         Level
	includeArgs   bool
	includeResult bool
	module        string
}

// Option 是包装器的配置选项函数。
type Option func(*options)

// WithLevel 设置成功调用记录的日志级别（默认 INFO）。
// 失败调用始终记录为 ERROR，不受该选项影响。
func WithLevel(level Level) Option {
	return func(o *options) { o.level = level }
}

// WithArgs 启用参数捕获：调用记录中附加参数的字符串表示。
// 默认关闭。
func WithArgs() Option {
	return func(o *options) { o.includeArgs = true }
}

// WithResult 启用返回值捕获：成功时调用记录中附加返回值的字符串表示。
// 失败时永不附加返回值。默认关闭。
func WithResult() Option {
	return func(o *options) { o.includeResult = true }
}

// WithModule 显式指定函数所属的逻辑分组。
// 未指定时取包装调用方的包路径。
func WithModule(module string) Option {
	return func(o *options) { o.module = module }
}

// resolveOptions 应用选项并填充默认值。
// module 未指定时通过调用栈解析为调用方的包路径。
func resolveOptions(opts []Option) options {
	o := options{level: LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}
	if o.module == "" {
		o.module = callerModule(3)
	}
	return o
}

// callerModule 返回指定栈深度处调用方的包路径。
// 解析失败时返回 "unknown"。
func callerModule(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	// 完整名称形如 github.com/user/pkg.Func 或 github.com/user/pkg.(*T).Method，
	// 截取最后一个路径段之后的首个点号之前的部分即为包路径
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return name
	}
	return name[:slash+1+dot]
}

// Wrap0 包装一个无参数、带错误返回的函数。
// 返回的函数与 fn 签名一致：成功时返回完全相同的结果，
// 失败时在记录遥测后原样返回相同的错误。
//
// 参数：
//   - name: 函数的标识名，用作 Span 名称与记录字段
//   - fn: 被包装的函数
//   - opts: 包装选项（级别、参数/返回值捕获、分组）
func Wrap0[R any](name string, fn func(context.Context) (R, error), opts ...Option) func(context.Context) (R, error) {
	o := resolveOptions(opts)
	return func(ctx context.Context) (r R, err error) {
		inv := begin(ctx, name, o, "")
		defer inv.recoverPanic()
		r, err = fn(inv.ctx)
		if err != nil {
			inv.fail(err)
			return r, err
		}
		inv.succeed(renderResult(o.includeResult, r))
		return r, err
	}
}

// Wrap1 包装一个单参数、带错误返回的函数。
// 行为与 Wrap0 相同；启用 WithArgs 时记录参数的字符串表示。
func Wrap1[A, R any](name string, fn func(context.Context, A) (R, error), opts ...Option) func(context.Context, A) (R, error) {
	o := resolveOptions(opts)
	return func(ctx context.Context, a A) (r R, err error) {
		inv := begin(ctx, name, o, renderArgs(o.includeArgs, a))
		defer inv.recoverPanic()
		r, err = fn(inv.ctx, a)
		if err != nil {
			inv.fail(err)
			return r, err
		}
		inv.succeed(renderResult(o.includeResult, r))
		return r, err
	}
}

// Wrap2 包装一个双参数、带错误返回的函数。
func Wrap2[A, B, R any](name string, fn func(context.Context, A, B) (R, error), opts ...Option) func(context.Context, A, B) (R, error) {
	o := resolveOptions(opts)
	return func(ctx context.Context, a A, b B) (r R, err error) {
		inv := begin(ctx, name, o, renderArgs(o.includeArgs, a, b))
		defer inv.recoverPanic()
		r, err = fn(inv.ctx, a, b)
		if err != nil {
			inv.fail(err)
			return r, err
		}
		inv.succeed(renderResult(o.includeResult, r))
		return r, err
	}
}

// Func1 包装一个纯函数（单参数、无错误返回）。
// 函数内发生的 panic 在记录遥测后原样重新抛出。
func Func1[A, R any](name string, fn func(A) R, opts ...Option) func(A) R {
	o := resolveOptions(opts)
	return func(a A) R {
		inv := begin(context.Background(), name, o, renderArgs(o.includeArgs, a))
		defer inv.recoverPanic()
		r := fn(a)
		inv.succeed(renderResult(o.includeResult, r))
		return r
	}
}

// Func2 包装一个纯函数（双参数、无错误返回）。
func Func2[A, B, R any](name string, fn func(A, B) R, opts ...Option) func(A, B) R {
	o := resolveOptions(opts)
	return func(a A, b B) R {
		inv := begin(context.Background(), name, o, renderArgs(o.includeArgs, a, b))
		defer inv.recoverPanic()
		r := fn(a, b)
		inv.succeed(renderResult(o.includeResult, r))
		return r
	}
}

// Do 在追踪与日志记录下执行一个函数体。
// 适用于无需预先包装的内联场景：
//
//	err := funclog.Do(ctx, "sync_orders", func(ctx context.Context) error {
//	    return syncOrders(ctx)
//	})
func Do(ctx context.Context, name string, fn func(context.Context) error, opts ...Option) error {
	o := resolveOptions(opts)
	inv := begin(ctx, name, o, "")
	defer inv.recoverPanic()
	if err := fn(inv.ctx); err != nil {
		inv.fail(err)
		return err
	}
	inv.succeed("")
	return nil
}

// invocation 表示一次进行中的被包装调用。
// 生命周期：begin 创建（开启 Span、记录起始时间），
// succeed 或 fail 二者之一最终化（计算耗时、发出记录、结束 Span）。
type invocation struct {
	pipeline  *Pipeline
	opts      options
	name      string
	args      string
	timestamp string
	start     time.Time
	ctx       context.Context
	span      trace.Span
}

// begin 开启一次调用：创建 Span 并记录起始时间戳。
// Span 名称为 <name>_execution，携带函数名与分组属性。
func begin(ctx context.Context, name string, o options, args string) *invocation {
	p := Default()
	start := time.Now()
	sctx, span := p.tracer.Start(ctx, name+"_execution")
	span.SetAttributes(
		attribute.String("function.name", name),
		attribute.String("function.module", o.module),
	)
	return &invocation{
		pipeline:  p,
		opts:      o,
		name:      name,
		args:      args,
		timestamp: start.Format(time.RFC3339Nano),
		start:     start,
		ctx:       sctx,
		span:      span,
	}
}

// succeed 最终化一次成功调用：附加 Span 属性并发出成功记录。
func (inv *invocation) succeed(result string) {
	duration := roundDuration(time.Since(inv.start))
	inv.span.SetAttributes(
		attribute.Float64("function.duration_ms", duration),
		attribute.String("function.status", string(StatusSuccess)),
	)
	if result != "" {
		inv.span.SetAttributes(attribute.String("function.result", result))
	}
	rec := newSuccessRecord(inv.name, inv.opts.module, inv.timestamp, duration, inv.opts.level, inv.args, result)
	inv.emit(rec)
	inv.span.End()
}

// fail 最终化一次失败调用：标记 Span 为失败、附加异常详情并发出错误记录。
// 该方法只记录遥测，错误本身由调用方继续传播。
func (inv *invocation) fail(err error) {
	duration := roundDuration(time.Since(inv.start))
	errText := safeString(err)
	inv.span.SetAttributes(
		attribute.Float64("function.duration_ms", duration),
		attribute.String("function.status", string(StatusError)),
		attribute.String("function.error", errText),
	)
	inv.span.RecordError(err)
	inv.span.SetStatus(codes.Error, errText)
	rec := newErrorRecord(inv.name, inv.opts.module, inv.timestamp, duration, inv.args, err)
	inv.emit(rec)
	inv.span.End()
}

// emit 将调用记录作为结构化日志发出。
// 完整记录以 LogDataKey 字段附加，消息按管道的模板渲染。
func (inv *invocation) emit(rec *Record) {
	entry := inv.pipeline.logger.WithContext(inv.ctx).WithField(LogDataKey, rec.Fields())
	msg := inv.pipeline.formatter.Render(rec)
	switch {
	case rec.Status == StatusError:
		entry.Error(msg)
	case rec.Level == LevelWarning:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
}

// recoverPanic 捕获被包装函数抛出的 panic，记录遥测后原样重新抛出。
// 包装器永不吞掉 panic。
func (inv *invocation) recoverPanic() {
	if r := recover(); r != nil {
		inv.fail(&panicError{value: r})
		panic(r)
	}
}

// panicError 将 panic 值适配为 error，用于生成失败记录。
type panicError struct {
	value interface{}
}

// Error 返回 panic 值的字符串描述。
func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// renderArgs 渲染参数列表的字符串表示。
// include 为 false 时返回空字符串，记录中不出现任何参数数据。
func renderArgs(include bool, vals ...interface{}) string {
	if !include {
		return ""
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = safeString(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// renderResult 渲染返回值的字符串表示。
// include 为 false 时返回空字符串。
func renderResult[R any](include bool, v R) string {
	if !include {
		return ""
	}
	return safeString(v)
}

// safeString 将任意值转换为字符串表示，保证永不失败。
// 自定义 String()/Error() 实现发生 panic 时返回占位符，
// 超长值截断到 maxFieldLength。
func safeString(v interface{}) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unprintable>"
		}
	}()
	if v == nil {
		return "<nil>"
	}
	if err, ok := v.(error); ok {
		s = err.Error()
	} else {
		s = fmt.Sprintf("%v", v)
	}
	if len(s) > maxFieldLength {
		s = s[:maxFieldLength] + "..."
	}
	return s
}
