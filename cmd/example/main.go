// Package main 演示 funclog 包的基本用法
// 该程序包装两个示例函数并反复调用，产生的追踪与日志
// 通过 OTLP 导出，可在查看器中实时观察
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oriys/cirrus/funclog"
	"github.com/sirupsen/logrus"
)

// calculateSum 计算两数之和，模拟少量耗时
func calculateSum(a, b int) int {
	time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
	return a + b
}

// riskyOperation 模拟不稳定的操作，约三分之一的调用会失败
func riskyOperation(ctx context.Context, value int) (int, error) {
	time.Sleep(time.Duration(rand.Intn(100)) * time.Millisecond)
	if value%3 == 0 {
		return 0, errors.New("value is divisible by three")
	}
	return value * 2, nil
}

func main() {
	endpoint := flag.String("endpoint", funclog.DefaultEndpoint, "OTLP gRPC endpoint")
	interval := flag.Duration("interval", 2*time.Second, "Delay between invocations")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	err := funclog.Configure(context.Background(), funclog.Config{
		Endpoint:    *endpoint,
		ServiceName: "cirrus-example",
		Environment: "development",
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure telemetry")
	}
	defer funclog.Shutdown(context.Background())

	// 包装示例函数：sum 记录参数与返回值，risky 只记录错误详情
	sum := funclog.Func2("calculate_sum", calculateSum, funclog.WithArgs(), funclog.WithResult())
	risky := funclog.Wrap1("risky_operation", riskyOperation, funclog.WithArgs())

	logger.WithField("endpoint", *endpoint).Info("Example app started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for i := 1; ; i++ {
		select {
		case <-ctx.Done():
			logger.Info("Example app stopped")
			return
		case <-ticker.C:
		}

		total := sum(i, i+1)

		if _, err := risky(ctx, total); err != nil {
			logger.WithError(err).WithField("value", total).Warn("Risky operation failed")
		}
	}
}
