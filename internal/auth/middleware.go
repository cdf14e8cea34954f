// Package auth 提供查看器 API 的访问控制功能。
// 本文件实现 HTTP 认证中间件。
package auth

import (
	"net/http"
)

// DefaultAPIKeyHeader 是携带 API Key 的默认 HTTP 头名称。
const DefaultAPIKeyHeader = "X-API-Key"

// Middleware 是 API Key 认证中间件。
// enabled 为 false 时跳过所有认证检查（内部部署的默认模式）。
type Middleware struct {
	// header 存储 API Key 的 HTTP 头名称
	header string
	// keyHash 配置的 API Key 哈希
	keyHash string
	// enabled 是否启用认证
	enabled bool
}

// NewMiddleware 创建认证中间件。
//
// 参数:
//   - header: 携带 API Key 的 HTTP 头名称，为空时使用 DefaultAPIKeyHeader
//   - keyHash: 配置的 API Key SHA-256 哈希
//   - enabled: 是否启用认证
func NewMiddleware(header, keyHash string, enabled bool) *Middleware {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &Middleware{
		header:  header,
		keyHash: keyHash,
		enabled: enabled,
	}
}

// Authenticate 是 HTTP 中间件函数，验证请求携带的 API Key。
// 认证未启用时直接放行；验证失败时返回 401。
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(m.header)
		if key == "" {
			http.Error(w, "missing api key", http.StatusUnauthorized)
			return
		}
		if err := VerifyAPIKey(key, m.keyHash); err != nil {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
