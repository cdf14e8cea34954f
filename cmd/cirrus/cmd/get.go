// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现 get 命令，用于查看单条日志记录的详细信息。
package cmd

import (
	"github.com/spf13/cobra"
)

// getCmd 是 get 命令的 cobra.Command 实例。
// 该命令按 ID 查询单条日志记录，显示包括参数、返回值、
// 错误信息和追踪关联在内的完整字段。
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show details of a log record",
	Long: `Show the full details of a single log record.

Examples:
  # Show a log record by ID
  cirrus get 3f2b1c8a-...

  # Output as YAML
  cirrus get 3f2b1c8a-... -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// init 注册 get 命令。
func init() {
	rootCmd.AddCommand(getCmd)
}

// runGet 是 get 命令的执行函数。
// 按 ID 获取日志记录详情并以指定格式输出。
//
// 参数：
//   - cmd: cobra 命令对象
//   - args: 命令行参数，args[0] 是记录 ID
//
// 返回值：
//   - error: 获取记录失败时返回错误信息
func runGet(cmd *cobra.Command, args []string) error {
	client := NewClient()
	rec, err := client.GetLog(args[0])
	if err != nil {
		return err
	}

	printer := NewPrinter()
	return printer.PrintLogDetail(rec)
}
