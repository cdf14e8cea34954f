// Package cmd 包含 cirrus CLI 工具的所有命令实现
// 使用 cobra 框架构建命令行接口
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// 全局命令行标志变量
var (
	cfgFile   string // 配置文件路径
	apiURL    string // 查看器服务地址
	apiKey    string // API Key（可选）
	outputFmt string // 输出格式（table/json/yaml）
)

// rootCmd 是 CLI 的根命令
// 所有子命令都挂载在这个根命令下
var rootCmd = &cobra.Command{
	Use:   "cirrus",
	Short: "Cirrus - Function execution log viewer CLI",
	Long: `cirrus 是用于查询函数执行日志的命令行工具。

使用示例:
  # 查看最近的执行日志
  cirrus logs

  # 按函数名过滤
  cirrus logs --function calculate_sum

  # 查看单条日志详情
  cirrus get <id>

  # 实时跟踪日志流
  cirrus tail --function risky_operation

  # 查看按函数聚合的统计
  cirrus stats`,
}

// Execute 执行根命令
// 这是 CLI 的入口函数，由 main 包调用
//
// 返回:
//   - error: 命令执行错误
func Execute() error {
	return rootCmd.Execute()
}

// init 初始化命令行工具
// 注册全局标志和配置初始化函数
func init() {
	// 在命令执行前初始化配置
	cobra.OnInitialize(initConfig)

	// 注册持久化标志（所有子命令都可使用）
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认为 $HOME/.cirrus.yaml）")
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "u", "http://localhost:8000", "查看器服务地址")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API Key（启用认证时必填）")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "输出格式（table、json、yaml）")

	// 将标志绑定到 viper 配置
	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

// initConfig 初始化配置
// 按优先级加载配置：命令行标志 > 环境变量 > 配置文件
func initConfig() {
	if cfgFile != "" {
		// 使用用户指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 获取用户主目录
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// 搜索配置文件的路径
		viper.AddConfigPath(home) // 在主目录查找
		viper.AddConfigPath(".")  // 在当前目录查找
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cirrus") // 配置文件名（不含扩展名）
	}

	// 设置环境变量前缀
	// 环境变量格式：CIRRUS_<KEY>，如 CIRRUS_API_URL
	viper.SetEnvPrefix("CIRRUS")
	viper.AutomaticEnv() // 自动读取环境变量

	// 读取配置文件（如果存在）
	_ = viper.ReadInConfig()
}
