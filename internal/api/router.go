// Package api 提供日志查看器的HTTP API处理程序。
// 该文件负责配置HTTP路由器和中间件，将HTTP请求映射到相应的处理器方法。
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oriys/cirrus/funclog"
	"github.com/oriys/cirrus/internal/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig 路由器配置选项
type RouterConfig struct {
	// Handler API处理器
	Handler *Handler
	// Auth API密钥认证中间件（可选，nil表示不启用认证）
	Auth *auth.Middleware
	// RequestTimeout 请求超时时间（零值时使用60秒）
	RequestTimeout time.Duration
	// MetricsEnabled 是否暴露/metrics端点
	MetricsEnabled bool
}

// NewRouter 创建并配置HTTP路由器。
//
// 功能说明：
//   - 创建chi路由器实例并配置全局中间件
//   - 注册健康检查和指标端点
//   - 配置日志接收、查询和实时流路由
//
// 参数：
//   - cfg: 路由器配置，包含Handler和可选的认证中间件
//
// 返回值：
//   - *chi.Mux: 配置完成的路由器实例
//
// 路由结构：
//
//	/health              - 基本健康检查
//	/health/ready        - Kubernetes就绪探针
//	/health/live         - Kubernetes存活探针
//	/metrics             - Prometheus指标端点
//	/api/logs            - 日志接收与查询API
//	/api/logs/{id}       - 日志详情API
//	/api/logs/stream     - WebSocket实时日志流
//	/api/stats           - 按函数聚合的统计API
func NewRouter(cfg *RouterConfig) *chi.Mux {
	h := cfg.Handler
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// 创建新的chi路由器
	r := chi.NewRouter()

	// 配置中间件链
	// 中间件按照添加顺序执行，形成洋葱模型

	// 遥测中间件：记录HTTP请求的追踪信息
	r.Use(funclog.HTTPMiddleware("cirrus-viewer"))

	// RequestID中间件：为每个请求生成唯一ID，便于日志追踪
	r.Use(middleware.RequestID)

	// RealIP中间件：从X-Forwarded-For等头部获取真实客户端IP
	r.Use(middleware.RealIP)

	// Compress中间件：对响应进行gzip压缩，减少网络传输
	r.Use(middleware.Compress(5, "application/json", "text/plain"))

	// Recoverer中间件：捕获panic并返回500错误，防止服务崩溃
	r.Use(middleware.Recoverer)

	// CORS中间件：处理跨域请求
	r.Use(corsMiddleware)

	// 健康检查端点 - 用于负载均衡器和Kubernetes探针
	r.Get("/health", h.Health)      // 基本健康检查
	r.Get("/health/ready", h.Ready) // Kubernetes就绪探针
	r.Get("/health/live", h.Live)   // Kubernetes存活探针

	// Prometheus指标端点 - 暴露应用程序指标供监控系统采集
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API 路由组
	r.Route("/api", func(r chi.Router) {
		// 可选的API密钥认证
		if cfg.Auth != nil {
			r.Use(cfg.Auth.Authenticate)
		}

		r.Route("/logs", func(r chi.Router) {
			// WebSocket 流不能套用请求超时中间件，单独注册
			// GET /api/logs/stream - 实时日志流
			r.Get("/stream", h.StreamLogs)

			r.Group(func(r chi.Router) {
				// Timeout中间件：防止慢客户端长期占用连接
				r.Use(middleware.Timeout(timeout))

				// POST /api/logs - 接收OTLP/JSON日志导出
				r.With(GzipRequestMiddleware).Post("/", h.IngestLogs)
				// GET /api/logs - 查询日志列表
				r.Get("/", h.ListLogs)
				// GET /api/logs/{id} - 获取日志详情
				r.Get("/{id}", h.GetLog)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			// GET /api/stats - 按函数聚合的统计信息
			r.Get("/stats", h.Stats)
		})
	})

	return r
}

// corsMiddleware 是处理跨域资源共享(CORS)的中间件。
//
// 功能说明：
//   - 设置允许所有来源的跨域请求（Access-Control-Allow-Origin: *）
//   - 允许的HTTP方法：GET, POST, OPTIONS
//   - 允许的请求头：Content-Type, Content-Encoding, X-API-Key
//   - 处理预检请求（OPTIONS方法）
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 允许所有来源访问（生产环境建议设置为特定域名）
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, X-API-Key")

		// 处理预检请求
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
