// Package api 提供日志查看器的HTTP API处理程序。
// 本文件实现实时日志流：新接收的记录通过广播器推送给所有
// WebSocket 订阅者，供 CLI 的 tail --follow 等消费端实时跟踪。
package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oriys/cirrus/internal/storage"
)

// streamBuffer 单个订阅通道的缓冲大小，慢消费者的溢出记录被丢弃。
const streamBuffer = 100

// Broadcaster 日志广播器。
// 维护订阅通道集合，将新记录扇出给所有订阅者。
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan *storage.LogRecord]struct{}
}

// NewBroadcaster 创建日志广播器。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan *storage.LogRecord]struct{}),
	}
}

// Subscribe 注册一个订阅通道。
func (b *Broadcaster) Subscribe(ch chan *storage.LogRecord) {
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
}

// Unsubscribe 注销一个订阅通道。
func (b *Broadcaster) Unsubscribe(ch chan *storage.LogRecord) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
}

// Broadcast 将一条记录推送给所有订阅者。
// 订阅通道已满时丢弃该订阅者的本条记录，不阻塞接收路径。
func (b *Broadcaster) Broadcast(rec *storage.LogRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- rec:
		default:
		}
	}
}

// upgrader WebSocket 升级器。
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 查看器面向内部部署，允许所有来源
	},
}

// StreamLogs 处理 GET /api/logs/stream 请求（WebSocket）。
// 连接建立后持续推送新接收的记录，直到客户端断开。
//
// Query 参数：
//   - function_name: 按函数名过滤（可选）
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	filterFunction := r.URL.Query().Get("function_name")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan *storage.LogRecord, streamBuffer)
	h.broadcaster.Subscribe(ch)
	defer h.broadcaster.Unsubscribe(ch)

	h.metrics.SubscriberConnected()
	defer h.metrics.SubscriberDisconnected()

	// 监听客户端关闭
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case rec := <-ch:
			if filterFunction != "" && rec.FunctionName != filterFunction {
				continue
			}
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}
