// Package auth 提供查看器 API 的访问控制功能。
// 该包实现基于 API Key 的认证机制：原始密钥不落盘，
// 配置中只保存其 SHA-256 哈希，验证时比较哈希值。
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrInvalidAPIKey 表示请求携带的 API Key 无效。
var ErrInvalidAPIKey = errors.New("invalid api key")

// GenerateAPIKey 生成一个新的 API Key。
// 该函数使用加密安全的随机数生成器创建密钥，并计算其哈希值用于存储。
//
// 返回:
//   - string: 原始 API Key（以 "cl_" 为前缀，应安全地发送给用户）
//   - string: API Key 的 SHA-256 哈希值（应写入配置）
//   - error: 随机数生成失败时返回错误
func GenerateAPIKey() (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	key := "cl_" + hex.EncodeToString(bytes)
	return key, HashAPIKey(key), nil
}

// HashAPIKey 计算 API Key 的 SHA-256 哈希值（十六进制编码）。
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// VerifyAPIKey 验证给定的 API Key 是否与配置的哈希匹配。
// 比较采用常数时间算法。
func VerifyAPIKey(key, wantHash string) error {
	got := HashAPIKey(key)
	if subtle.ConstantTimeCompare([]byte(got), []byte(wantHash)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}
