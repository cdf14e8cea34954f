// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现 tail 命令，用于实时跟踪日志流。
//
// 该命令通过 WebSocket 连接查看器的流式端点，持续输出新接收的
// 日志记录，直到用户按 Ctrl+C 中断。
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// tailCmd 是 tail 命令的 cobra.Command 实例。
// 该命令建立 WebSocket 连接并实时输出新接收的日志记录。
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the realtime log stream",
	Long: `Follow the realtime log stream over WebSocket.

Examples:
  # Follow all logs
  cirrus tail

  # Follow logs for a specific function
  cirrus tail --function risky_operation

  # Output raw JSON
  cirrus tail -o json`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

// tailFunction 按函数名过滤，为空时跟踪所有函数的记录。
var tailFunction string

// init 注册 tail 命令并设置命令行标志。
func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().StringVarP(&tailFunction, "function", "f", "", "Filter by function name")
}

// runTail 是 tail 命令的执行函数。
// 该函数执行以下操作：
//  1. 将 API 地址转换为 WebSocket URL
//  2. 建立 WebSocket 连接（携带可选的函数名过滤参数）
//  3. 持续读取并输出新记录，直到用户中断或连接关闭
//
// 参数：
//   - cmd: cobra 命令对象
//   - args: 命令行参数（本命令无位置参数）
//
// 返回值：
//   - error: 连接或读取失败时返回错误信息
func runTail(cmd *cobra.Command, args []string) error {
	wsURL, err := buildWebSocketURL(viper.GetString("api_url"), "/api/logs/stream", tailFunction)
	if err != nil {
		return err
	}

	header := http.Header{}
	if key := viper.GetString("api_key"); key != "" {
		header.Set("X-API-Key", key)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect log stream: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	if tailFunction != "" {
		fmt.Printf("Following logs for function '%s' (Ctrl+C to stop)...\n", tailFunction)
	} else {
		fmt.Println("Following logs (Ctrl+C to stop)...")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// If user interrupted, treat as graceful exit.
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("log stream closed: %w", err)
		}

		var rec LogRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}

		if err := printStreamRecord(data, &rec); err != nil {
			return err
		}
	}
}

// printStreamRecord 按配置的输出格式输出一条流式记录。
func printStreamRecord(raw []byte, rec *LogRecord) error {
	switch viper.GetString("output") {
	case "json":
		fmt.Fprintln(os.Stdout, string(raw))
		return nil
	case "yaml":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	default:
		// Human-friendly output
		line := fmt.Sprintf("%s\t%s\t%s\t%.2fms\t%s", rec.Timestamp, rec.Level, rec.FunctionName, rec.DurationMS, rec.Message)
		if rec.Error != "" {
			line += fmt.Sprintf("\terror=%s", rec.Error)
		}
		fmt.Fprintln(os.Stdout, line)
		return nil
	}
}

// buildWebSocketURL 将 HTTP API 地址转换为 WebSocket 流地址。
func buildWebSocketURL(baseURL, path, functionName string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// ok
	default:
		return "", fmt.Errorf("unsupported api url scheme: %s", u.Scheme)
	}

	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	if functionName != "" {
		q := url.Values{}
		q.Set("function_name", functionName)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
