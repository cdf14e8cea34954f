// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现 stats 命令，用于查看按函数聚合的统计信息。
package cmd

import (
	"github.com/spf13/cobra"
)

// statsCmd 是 stats 命令的 cobra.Command 实例。
// 该命令显示每个函数的记录总数、失败数、错误率和平均耗时。
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-function statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

// init 注册 stats 命令。
func init() {
	rootCmd.AddCommand(statsCmd)
}

// runStats 是 stats 命令的执行函数。
// 获取按函数聚合的统计并以指定格式输出。
func runStats(cmd *cobra.Command, args []string) error {
	client := NewClient()
	stats, err := client.GetStats()
	if err != nil {
		return err
	}

	printer := NewPrinter()
	return printer.PrintStats(stats)
}
