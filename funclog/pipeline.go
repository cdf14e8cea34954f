// Package funclog 提供基于 OpenTelemetry 的函数执行日志记录功能。
// 本文件实现进程级遥测管道的生命周期管理：初始化、重配置与关闭。
// 管道持有追踪与日志两条导出链路（Span 导出器与日志导出器），
// 两者共用同一条到 OTLP 接收器的 gRPC 连接。
package funclog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/bridges/otellogrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// 默认配置值。
const (
	// DefaultEndpoint 默认的 OTLP gRPC 端点
	DefaultEndpoint = "localhost:4317"
	// defaultServiceName 默认服务名
	defaultServiceName = "cirrus-funclog"
	// instrumentationScope 追踪器与日志桥接器的 scope 名称
	instrumentationScope = "github.com/oriys/cirrus/funclog"
	// shutdownTimeout 替换旧管道时刷新数据的最长等待时间
	shutdownTimeout = 5 * time.Second
)

// Config 定义遥测管道的配置。
// 所有字段均为可比较类型，配置相等时 Configure 是幂等操作。
type Config struct {
	// Endpoint OTLP 接收器的 gRPC 端点地址，默认 localhost:4317
	Endpoint string
	// ServiceName 服务名称，作为所有遥测数据的来源标识
	ServiceName string
	// Environment 运行环境标识（如 production、development）
	Environment string
	// Format 日志消息模板，默认 DefaultFormat
	Format string
	// SampleRate Span 采样率，取值 0.0 到 1.0；0 或未设置时按 1.0 处理。
	// 采样仅影响 Span 导出，调用记录日志不受采样影响，每次调用必定导出。
	SampleRate float64
}

// applyDefaults 填充未设置的配置项。
func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		c.SampleRate = 1.0
	}
}

// Pipeline 封装进程级的遥测导出链路。
// 一个进程同一时刻只有一个活跃管道；重配置通过整体替换完成，
// 旧管道在替换后被关闭以刷新未导出的数据。
type Pipeline struct {
	config         Config
	conn           *grpc.ClientConn
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
	tracer         trace.Tracer
	logger         *logrus.Logger
	formatter      *Formatter
}

var (
	// configMu 保护管道替换操作，重配置期间持有
	configMu sync.Mutex
	// activePipeline 当前活跃的管道，读路径无锁
	activePipeline atomic.Pointer[Pipeline]
)

// Configure 初始化或重配置进程级遥测管道。
// 若当前管道的配置与给定配置相同，该调用是幂等的空操作。
// 否则构建新管道并原子替换旧管道，旧管道会被关闭以刷新缓冲数据，
// 不会泄漏重复的导出器或处理器。
//
// gRPC 连接采用惰性建立，端点不可达不会阻塞或失败；
// 导出层的投递失败由批处理器在后台处理，不影响调用方。
//
// 参数：
//   - ctx: 上下文，用于控制导出器初始化
//   - cfg: 管道配置
//
// 返回：
//   - error: 管道构建失败时的错误
func Configure(ctx context.Context, cfg Config) error {
	cfg.applyDefaults()

	configMu.Lock()
	defer configMu.Unlock()

	if old := activePipeline.Load(); old != nil && old.config == cfg {
		return nil
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	old := activePipeline.Swap(p)
	if old != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		old.shutdown(shutdownCtx)
	}
	return nil
}

// Default 返回当前活跃的管道，必要时以默认配置惰性初始化。
// 若默认初始化失败（例如导出器构建错误），返回一个仅写本地日志、
// 使用空操作追踪器的降级管道，保证调用方不受影响。
func Default() *Pipeline {
	if p := activePipeline.Load(); p != nil {
		return p
	}

	configMu.Lock()
	defer configMu.Unlock()
	if p := activePipeline.Load(); p != nil {
		return p
	}

	cfg := Config{}
	cfg.applyDefaults()
	p, err := newPipeline(context.Background(), cfg)
	if err != nil {
		p = noopPipeline(cfg)
	}
	activePipeline.Store(p)
	return p
}

// Shutdown 关闭当前管道并刷新所有待导出的遥测数据。
// 应在进程退出前调用。关闭后下一次包装调用会重新惰性初始化。
func Shutdown(ctx context.Context) error {
	configMu.Lock()
	defer configMu.Unlock()

	p := activePipeline.Swap(nil)
	if p == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// newPipeline 根据配置构建管道：gRPC 连接、Span 与日志导出器、
// 对应的 Provider，以及桥接到 OTel 日志链路的 logrus 记录器。
func newPipeline(ctx context.Context, cfg Config) (*Pipeline, error) {
	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", cfg.Endpoint, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	spanExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)

	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		tp.Shutdown(ctx)
		conn.Close()
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	// 设置全局 Provider 与传播器，使宿主进程的其他组件共用同一条链路
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	global.SetLoggerProvider(lp)

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.AddHook(otellogrus.NewHook(instrumentationScope,
		otellogrus.WithLoggerProvider(lp),
		otellogrus.WithLevels(logrus.AllLevels),
	))
	logger.AddHook(NewTraceContextHook())

	return &Pipeline{
		config:         cfg,
		conn:           conn,
		tracerProvider: tp,
		loggerProvider: lp,
		tracer:         tp.Tracer(instrumentationScope),
		logger:         logger,
		formatter:      NewFormatter(cfg.Format),
	}, nil
}

// noopPipeline 构建一个降级管道：Span 走空操作追踪器，日志仅写本地。
func noopPipeline(cfg Config) *Pipeline {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Pipeline{
		config:    cfg,
		tracer:    otel.Tracer(instrumentationScope),
		logger:    logger,
		formatter: NewFormatter(cfg.Format),
	}
}

// Tracer 返回管道的追踪器。
func (p *Pipeline) Tracer() trace.Tracer {
	return p.tracer
}

// Logger 返回桥接到遥测链路的日志记录器。
func (p *Pipeline) Logger() *logrus.Logger {
	return p.logger
}

// shutdown 依次关闭追踪链路、日志链路与底层连接。
func (p *Pipeline) shutdown(ctx context.Context) error {
	var firstErr error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.loggerProvider != nil {
		if err := p.loggerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
