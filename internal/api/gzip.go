// Package api 提供日志查看器的HTTP API处理程序。
// 本文件实现请求体的 gzip 解压中间件。
// OTLP 导出器通常对日志批次启用 gzip 压缩，查看器需要在
// 解析 JSON 之前透明地解压请求体。
package api

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// GzipRequestMiddleware 返回一个 HTTP 中间件，透明解压 gzip 编码的请求体。
// 仅当请求头 Content-Encoding 为 gzip 时生效；解压失败返回 400。
func GzipRequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") && r.Body != nil {
			reader, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "invalid gzip body", http.StatusBadRequest)
				return
			}
			defer reader.Close()
			r.Body = reader
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1
		}
		next.ServeHTTP(w, r)
	})
}
