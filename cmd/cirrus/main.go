// Package main 是 cirrus 命令行工具的入口点
// cirrus 是用于查询函数执行日志的 CLI 工具
// 它提供查看日志列表、日志详情、实时跟踪和统计等操作
package main

import (
	"os"

	"github.com/oriys/cirrus/cmd/cirrus/cmd"
)

// main 是 CLI 工具的主函数
// 它调用 cmd 包的 Execute 函数来解析和执行用户命令
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
