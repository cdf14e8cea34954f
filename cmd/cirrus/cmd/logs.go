// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现 logs 命令，用于查看函数执行日志列表。
//
// 该命令会显示最近的执行记录，包括函数名、状态、耗时等信息。
// 可以通过 --limit 参数控制显示的记录数量，默认显示最近20条。
// 支持以 JSON 或 YAML 格式输出。
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logsCmd 是 logs 命令的 cobra.Command 实例。
// 该命令用于查看执行日志列表，显示每次调用的状态、耗时等信息。
// 可以通过 --limit 和 --function 参数过滤输出。
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View function execution logs",
	Long: `View recent function execution logs.

Examples:
  # View recent logs
  cirrus logs

  # View logs for a specific function
  cirrus logs --function calculate_sum

  # View last N logs
  cirrus logs --limit 50

  # Output as JSON
  cirrus logs -o json`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

// logsLimit 控制显示的记录数量，默认为20条。
var logsLimit int

// logsFunction 按函数名过滤，为空时显示所有函数的记录。
var logsFunction string

// init 注册 logs 命令并设置命令行标志。
func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "Number of logs to show")
	logsCmd.Flags().StringVarP(&logsFunction, "function", "f", "", "Filter by function name")
}

// runLogs 是 logs 命令的执行函数。
// 该函数执行以下操作：
//  1. 调用查看器 API 获取日志记录列表
//  2. 根据 --limit 和 --function 参数过滤
//  3. 以指定格式输出记录列表
//
// 参数：
//   - cmd: cobra 命令对象
//   - args: 命令行参数（本命令无位置参数）
//
// 返回值：
//   - error: 获取记录失败时返回错误信息
func runLogs(cmd *cobra.Command, args []string) error {
	client := NewClient()
	records, err := client.ListLogs(logsFunction, logsLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		if logsFunction != "" {
			fmt.Printf("No logs found for function '%s'.\n", logsFunction)
		} else {
			fmt.Println("No logs found.")
		}
		return nil
	}

	printer := NewPrinter()
	return printer.PrintLogs(records)
}
