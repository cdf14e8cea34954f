// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 本文件实现 HTTP 中间件与客户端传输层的追踪集成，
// 使宿主服务的入站/出站请求共享同一条遥测链路。
package funclog

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware 返回一个 HTTP 中间件，为传入请求自动创建追踪 Span。
// 中间件从请求头提取追踪上下文（如果存在），并将上下文传递给下游处理器，
// 使处理器内的被包装函数调用成为请求 Span 的子 Span。
//
// 参数：
//   - serviceName: 服务名称，用于标识追踪数据来源
//
// 使用示例：
//
//	r := chi.NewRouter()
//	r.Use(funclog.HTTPMiddleware("log-viewer"))
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithSpanOptions(
				trace.WithAttributes(
					attribute.String("service.name", serviceName),
				),
			),
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

// HTTPClientTransport 返回一个带追踪功能的 http.RoundTripper。
// 出站请求会自动创建客户端 Span 并注入追踪上下文头。
// base 为 nil 时使用 http.DefaultTransport。
func HTTPClientTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
	)
}

// InstrumentedHTTPClient 返回一个预配置追踪功能的 HTTP 客户端。
func InstrumentedHTTPClient() *http.Client {
	return &http.Client{
		Transport: HTTPClientTransport(nil),
	}
}
