// Package main 是日志查看器服务的入口点
// 查看器服务接收 OTLP 导出的函数执行日志并提供查询、统计和实时流 API
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oriys/cirrus/funclog"
	"github.com/oriys/cirrus/internal/api"
	"github.com/oriys/cirrus/internal/auth"
	"github.com/oriys/cirrus/internal/config"
	"github.com/oriys/cirrus/internal/events"
	"github.com/oriys/cirrus/internal/metrics"
	"github.com/oriys/cirrus/internal/retention"
	"github.com/oriys/cirrus/internal/storage"
	"github.com/sirupsen/logrus"
)

// main 是查看器服务的主函数
// 它负责初始化所有依赖组件并启动 HTTP 服务器
func main() {
	// 解析命令行参数，获取配置文件路径
	// 默认配置文件路径为 /etc/cirrus/viewer.yaml
	configPath := flag.String("config", "/etc/cirrus/viewer.yaml", "Path to config file")
	flag.Parse()

	// 设置日志记录器
	// 使用 JSON 格式输出日志，便于日志收集和分析
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// 加载配置文件
	// 配置文件包含存储后端、服务端口、认证和保留策略等设置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}

	applyLogging(logger, cfg)

	logger.WithField("backend", cfg.Storage.Backend).Info("Starting Cirrus viewer")

	// 初始化遥测管道 (OpenTelemetry)
	// 查看器自身的请求追踪和日志同样通过 OTLP 导出
	if cfg.Telemetry.Enabled {
		err := funclog.Configure(context.Background(), funclog.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Telemetry.Environment,
			SampleRate:  cfg.Telemetry.SampleRate,
			Format:      cfg.Telemetry.Format,
		})
		if err != nil {
			// 遥测初始化失败不影响主服务运行，仅记录警告
			logger.WithError(err).Warn("Failed to initialize telemetry, continuing without tracing")
		} else {
			defer funclog.Shutdown(context.Background())
			// 将追踪上下文钩子添加到日志记录器，自动关联日志和追踪
			logger.AddHook(funclog.NewTraceContextHook())
			logger.WithFields(logrus.Fields{
				"endpoint":    cfg.Telemetry.Endpoint,
				"sample_rate": cfg.Telemetry.SampleRate,
			}).Info("Telemetry initialized")
		}
	}

	// 初始化日志存储后端
	// 内存后端用于开发环境，Redis/PostgreSQL 后端提供持久化
	store, err := newStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage backend")
	}
	defer store.Close()

	// 初始化 Prometheus 指标收集器
	// 指标收集器用于记录系统运行状态和性能数据
	var m *metrics.Metrics
	var metricsCancel context.CancelFunc
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace)

		// 创建用于取消指标更新协程的上下文
		ctx, cancel := context.WithCancel(context.Background())
		metricsCancel = cancel

		// 定义更新存储记录数指标的函数
		updateStoreCount := func() {
			if n, err := store.Count(); err == nil {
				m.SetStoreRecords(n)
			}
		}
		// 立即执行一次更新
		updateStoreCount()

		// 启动后台协程，每 5 秒更新一次存储记录数指标
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					updateStoreCount()
				}
			}
		}()
	}

	// 初始化失败事件转发器 (NATS JetStream)
	// 状态为 error 的记录会被发布到事件流供下游告警系统消费
	var forwarder *events.Forwarder
	if cfg.Events.Enabled {
		forwarder, err = events.NewForwarder(cfg.Events.URL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to NATS, continuing without event forwarding")
			forwarder = nil
		} else {
			defer forwarder.Close()
			logger.WithField("url", cfg.Events.URL).Info("Event forwarder connected")
		}
	}

	// 初始化保留策略清理器
	// 按配置的调度周期清理超过最大保留时长的记录
	if cfg.Retention.Enabled {
		maxAge := time.Duration(cfg.Retention.MaxAgeHours) * time.Hour
		sweeper := retention.NewSweeper(store, maxAge, logger)
		if err := sweeper.Start(cfg.Retention.Schedule); err != nil {
			logger.WithError(err).Error("Failed to start retention sweeper")
		} else {
			defer sweeper.Stop()
		}
	}

	// 初始化 API 处理器和路由
	handler := api.NewHandler(store, forwarder, m, logger)

	var authMw *auth.Middleware
	if cfg.Auth.Enabled {
		authMw = auth.NewMiddleware(cfg.Auth.Header, cfg.Auth.APIKeyHash, true)
		logger.Info("API key authentication enabled")
	}

	router := api.NewRouter(&api.RouterConfig{
		Handler:        handler,
		Auth:           authMw,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	// 配置并启动主 HTTP 服务器
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,  // 读取请求超时
		WriteTimeout: 60 * time.Second,  // 写入响应超时
		IdleTimeout:  120 * time.Second, // 空闲连接超时
	}

	// 在后台协程中启动 HTTP 服务器
	go func() {
		logger.WithField("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// 监听配置文件变更，动态调整日志级别
	// 存储后端等结构性配置仍需重启生效
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := config.Watch(watchCtx, *configPath, logger, func(updated *config.Config) {
		applyLogging(logger, updated)
	}); err != nil {
		logger.WithError(err).Warn("Config watch disabled")
	}

	// 等待关闭信号
	// 监听 SIGINT (Ctrl+C) 和 SIGTERM (容器停止) 信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 创建带超时的上下文用于优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 优雅关闭 HTTP 服务器，等待现有请求处理完成
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}

	// 停止指标更新协程
	if metricsCancel != nil {
		metricsCancel()
	}

	logger.Info("Server stopped")
}

// applyLogging 根据配置调整日志级别和输出格式
func applyLogging(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

// newStore 根据配置创建日志存储后端
func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return storage.NewMemoryStore(cfg.Storage.Capacity), nil
	case "redis":
		return storage.NewRedisStore(cfg.Storage.Redis)
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
