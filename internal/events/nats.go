// Package events 提供失败调用的事件转发功能。
// 当前实现基于 NATS JetStream：查看器每接收一条 status=error 的
// 调用记录，就向对应的 subject 发布一条事件，供告警或下游系统订阅。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/oriys/cirrus/internal/storage"
	"github.com/sirupsen/logrus"
)

// JetStream Stream 与 subject 布局。
const (
	// streamName 失败事件的 Stream 名称
	streamName = "FUNCLOG_EVENTS"
	// subjectPrefix 失败事件的 subject 前缀，完整形式为 funclog.error.<函数名>
	subjectPrefix = "funclog.error."
)

// ErrorEvent 是发布到事件总线的失败调用事件（JSON 格式）。
type ErrorEvent struct {
	// ID 事件唯一标识符
	ID string `json:"id"`
	// FunctionName 失败的函数名
	FunctionName string `json:"function_name"`
	// Module 函数所属分组
	Module string `json:"module"`
	// Error 错误文本
	Error string `json:"error"`
	// ErrorType 错误类型名
	ErrorType string `json:"error_type"`
	// DurationMS 失败调用的耗时（毫秒）
	DurationMS float64 `json:"duration_ms"`
	// RecordID 查看器存储中对应记录的 ID，可用于查询详情
	RecordID string `json:"record_id"`
	// Timestamp 事件发布时间
	Timestamp time.Time `json:"timestamp"`
}

// Forwarder 封装 NATS/JetStream 连接与失败事件发布操作。
type Forwarder struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger
}

// NewForwarder 创建事件转发器并初始化所需的 JetStream Stream。
func NewForwarder(natsURL string, logger *logrus.Logger) (*Forwarder, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// 初始化失败事件 Stream（不存在则创建，存在则尝试更新配置）
	cfg := nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"funclog.>"},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	}
	if _, err := js.AddStream(&cfg); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		js.UpdateStream(&cfg)
	}

	return &Forwarder{
		conn:   nc,
		js:     js,
		logger: logger,
	}, nil
}

// Close 关闭底层 NATS 连接。
func (f *Forwarder) Close() error {
	f.conn.Close()
	return nil
}

// PublishError 将一条失败调用记录作为事件发布到总线。
// subject 为 funclog.error.<函数名>。
func (f *Forwarder) PublishError(ctx context.Context, rec *storage.LogRecord) error {
	event := ErrorEvent{
		ID:           uuid.New().String(),
		FunctionName: rec.FunctionName,
		Module:       rec.Module,
		Error:        rec.Error,
		ErrorType:    rec.ErrorType,
		DurationMS:   rec.DurationMS,
		RecordID:     rec.ID,
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := subjectPrefix + rec.FunctionName
	if _, err := f.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish error event: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"event_id": event.ID,
		"function": rec.FunctionName,
	}).Debug("Error event published")

	return nil
}
