// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现 API 客户端，用于与查看器服务进行通信。
//
// Client 封装了所有与查看器服务的交互逻辑，包括：
//   - 日志记录列表查询
//   - 单条日志详情查询
//   - 按函数聚合的统计查询
//
// 客户端使用 HTTP/JSON 协议与服务器通信，支持错误处理和超时控制。
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oriys/cirrus/funclog"
	"github.com/spf13/viper"
)

// Client 是查看器服务的 API 客户端。
// 封装了与后端服务通信的所有方法，使用 HTTP/JSON 协议。
type Client struct {
	baseURL    string       // 查看器服务的基础 URL
	apiKey     string       // API Key，为空时不发送认证头
	httpClient *http.Client // HTTP 客户端，用于发送请求
}

// NewClient 创建一个新的 API 客户端实例。
// 从 viper 配置中读取 api_url，如果未配置则使用默认值 http://localhost:8000。
// HTTP 客户端默认超时时间为 30 秒，出站请求携带追踪上下文头。
//
// 返回值：
//   - *Client: 新创建的客户端实例
func NewClient() *Client {
	baseURL := viper.GetString("api_url")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  viper.GetString("api_key"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: funclog.HTTPClientTransport(nil),
		},
	}
}

// ====== 领域模型定义 ======

// LogRecord 表示一条函数执行日志记录。
type LogRecord struct {
	ID           string                 `json:"id"`                      // 记录唯一标识符
	Timestamp    string                 `json:"timestamp"`               // 调用开始时间
	Level        string                 `json:"level"`                   // 日志级别
	FunctionName string                 `json:"function_name"`           // 函数名
	Module       string                 `json:"module"`                  // 函数所属分组
	DurationMS   float64                `json:"duration_ms"`             // 执行耗时（毫秒）
	Status       string                 `json:"status"`                  // 执行状态
	Message      string                 `json:"message"`                 // 摘要消息
	Args         string                 `json:"args,omitempty"`          // 参数字符串表示
	Result       string                 `json:"result,omitempty"`        // 返回值字符串表示
	Error        string                 `json:"error,omitempty"`         // 错误文本
	ErrorType    string                 `json:"error_type,omitempty"`    // 错误类型名
	TraceID      string                 `json:"trace_id,omitempty"`      // 关联的追踪 ID
	SpanID       string                 `json:"span_id,omitempty"`       // 关联的 Span ID
	SeverityText string                 `json:"severity_text,omitempty"` // OTLP 严重级别文本
	RawData      map[string]interface{} `json:"raw_data,omitempty"`      // 完整原始载荷
}

// FunctionStats 表示单个函数的聚合统计。
type FunctionStats struct {
	FunctionName  string  `json:"function_name"`   // 函数名
	Count         int     `json:"count"`           // 记录总数
	ErrorCount    int     `json:"error_count"`     // 失败记录数
	AvgDurationMS float64 `json:"avg_duration_ms"` // 平均耗时（毫秒）
	LastSeen      string  `json:"last_seen"`       // 最近一条记录时间
}

// APIError 表示 API 返回的错误响应。
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// do 执行 HTTP 请求并处理响应。
func (c *Client) do(method, path string, result interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.Code = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// ====== 日志查询方法 ======

// ListLogs 查询日志记录列表。
//
// 参数：
//   - functionName: 按函数名过滤，为空时不过滤
//   - limit: 返回的最大记录数
func (c *Client) ListLogs(functionName string, limit int) ([]LogRecord, error) {
	params := url.Values{}
	if functionName != "" {
		params.Set("function_name", functionName)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/logs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var records []LogRecord
	if err := c.do("GET", path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetLog 按 ID 查询单条日志记录的完整信息。
func (c *Client) GetLog(id string) (*LogRecord, error) {
	var rec LogRecord
	if err := c.do("GET", "/api/logs/"+url.PathEscape(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetStats 查询按函数聚合的统计信息。
func (c *Client) GetStats() ([]FunctionStats, error) {
	var stats []FunctionStats
	if err := c.do("GET", "/api/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
