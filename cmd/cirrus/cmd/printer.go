// Package cmd 提供 cirrus 命令行工具的所有子命令实现。
// 本文件实现输出格式化打印功能，支持多种输出格式。
//
// Printer 支持以下输出格式：
//   - table: 表格格式（默认），适合人类阅读
//   - json:  JSON 格式，适合程序处理
//   - yaml:  YAML 格式，适合配置文件
//
// 提供了针对不同数据类型的打印方法：
//   - PrintLogs:      打印日志记录列表
//   - PrintLogDetail: 打印单条日志详情
//   - PrintStats:     打印按函数聚合的统计
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Printer 是格式化输出的处理器。
// 根据配置的输出格式（table/json/yaml）将数据格式化后输出到指定的 writer。
type Printer struct {
	format string    // 输出格式：table、json 或 yaml
	writer io.Writer // 输出目标，默认为 os.Stdout
}

// NewPrinter 创建一个新的 Printer 实例。
// 从 viper 配置中读取 output 格式，如果未配置则默认使用 table 格式。
//
// 返回值：
//   - *Printer: 新创建的打印器实例
func NewPrinter() *Printer {
	format := viper.GetString("output")
	if format == "" {
		format = "table"
	}
	return &Printer{
		format: format,
		writer: os.Stdout,
	}
}

// PrintLogs 打印日志记录列表。
// 根据配置的输出格式（table/json/yaml）格式化输出记录列表。
//
// 参数：
//   - records: 要打印的日志记录列表
//
// 返回值：
//   - error: 打印失败时返回错误信息
func (p *Printer) PrintLogs(records []LogRecord) error {
	switch p.format {
	case "json":
		return p.printJSON(records)
	case "yaml":
		return p.printYAML(records)
	default:
		return p.printLogsTable(records)
	}
}

// PrintLogDetail 打印单条日志的详细信息。
// 根据配置的输出格式格式化输出记录详情。
//
// 参数：
//   - rec: 要打印的日志记录
//
// 返回值：
//   - error: 打印失败时返回错误信息
func (p *Printer) PrintLogDetail(rec *LogRecord) error {
	switch p.format {
	case "json":
		return p.printJSON(rec)
	case "yaml":
		return p.printYAML(rec)
	default:
		return p.printLogDetail(rec)
	}
}

// PrintStats 打印按函数聚合的统计信息。
// 根据配置的输出格式格式化输出统计列表。
//
// 参数：
//   - stats: 要打印的统计列表
//
// 返回值：
//   - error: 打印失败时返回错误信息
func (p *Printer) PrintStats(stats []FunctionStats) error {
	switch p.format {
	case "json":
		return p.printJSON(stats)
	case "yaml":
		return p.printYAML(stats)
	default:
		return p.printStatsTable(stats)
	}
}

// printJSON 以 JSON 格式输出数据。
// 使用 2 空格缩进美化输出。
func (p *Printer) printJSON(v interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML 以 YAML 格式输出数据。
// 使用 2 空格缩进。
func (p *Printer) printYAML(v interface{}) error {
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	return enc.Encode(v)
}

// printLogsTable 以表格形式输出日志记录列表。
// 显示记录ID、时间、级别、函数名、状态、耗时和摘要消息。
func (p *Printer) printLogsTable(records []LogRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(p.writer, "No logs found.")
		return nil
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tLEVEL\tFUNCTION\tSTATUS\tDURATION\tMESSAGE")

	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2fms\t%s\n",
			truncate(rec.ID, 12),
			timeAgo(parseTimestamp(rec.Timestamp)),
			rec.Level,
			rec.FunctionName,
			colorStatus(rec.Status),
			rec.DurationMS,
			truncate(rec.Message, 50),
		)
	}

	return w.Flush()
}

// printLogDetail 以详细格式输出单条日志信息。
// 显示记录的所有字段，包括参数、返回值和追踪关联信息。
func (p *Printer) printLogDetail(rec *LogRecord) error {
	fmt.Fprintf(p.writer, "ID:        %s\n", rec.ID)
	fmt.Fprintf(p.writer, "Time:      %s\n", rec.Timestamp)
	fmt.Fprintf(p.writer, "Level:     %s\n", rec.Level)
	fmt.Fprintf(p.writer, "Function:  %s\n", rec.FunctionName)
	fmt.Fprintf(p.writer, "Module:    %s\n", rec.Module)
	fmt.Fprintf(p.writer, "Status:    %s\n", colorStatus(rec.Status))
	fmt.Fprintf(p.writer, "Duration:  %.2f ms\n", rec.DurationMS)
	fmt.Fprintf(p.writer, "Message:   %s\n", rec.Message)

	if rec.Args != "" {
		fmt.Fprintf(p.writer, "Args:      %s\n", rec.Args)
	}
	if rec.Result != "" {
		fmt.Fprintf(p.writer, "Result:    %s\n", rec.Result)
	}
	if rec.Error != "" {
		fmt.Fprintf(p.writer, "Error:     %s (%s)\n", rec.Error, rec.ErrorType)
	}
	if rec.TraceID != "" {
		fmt.Fprintf(p.writer, "Trace ID:  %s\n", rec.TraceID)
		fmt.Fprintf(p.writer, "Span ID:   %s\n", rec.SpanID)
	}

	if len(rec.RawData) > 0 {
		fmt.Fprintln(p.writer, "\nRaw Data:")
		enc := json.NewEncoder(p.writer)
		enc.SetIndent("  ", "  ")
		fmt.Fprint(p.writer, "  ")
		return enc.Encode(rec.RawData)
	}

	return nil
}

// printStatsTable 以表格形式输出按函数聚合的统计。
// 显示函数名、记录总数、失败数、错误率、平均耗时和最近活动时间。
func (p *Printer) printStatsTable(stats []FunctionStats) error {
	if len(stats) == 0 {
		fmt.Fprintln(p.writer, "No stats available.")
		return nil
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tCOUNT\tERRORS\tERROR RATE\tAVG DURATION\tLAST SEEN")

	for _, st := range stats {
		errorRate := 0.0
		if st.Count > 0 {
			errorRate = float64(st.ErrorCount) / float64(st.Count) * 100
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%.2fms\t%s\n",
			st.FunctionName,
			st.Count,
			st.ErrorCount,
			errorRate,
			st.AvgDurationMS,
			timeAgo(parseTimestamp(st.LastSeen)),
		)
	}

	return w.Flush()
}

// ====== 辅助函数 ======

// colorStatus 根据状态值返回带颜色的字符串。
// 使用 ANSI 转义序列：
//   - 绿色: success
//   - 红色: error、failed
func colorStatus(status string) string {
	switch strings.ToLower(status) {
	case "success":
		return "\033[32m" + status + "\033[0m" // Green
	case "error", "failed":
		return "\033[31m" + status + "\033[0m" // Red
	default:
		return status
	}
}

// parseTimestamp 解析 RFC3339 时间戳字符串，解析失败时返回零值。
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// timeAgo 将时间转换为相对时间字符串。
// 例如："5s ago"、"3m ago"、"2h ago"、"1d ago"
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := time.Since(t)

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncate 截断字符串到指定长度。
// 如果字符串超过最大长度，则截断并添加 "..." 后缀。
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
