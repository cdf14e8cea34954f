// Package auth 提供查看器 API 的访问控制功能。
// 该文件包含 API 密钥生成与校验的单元测试。
package auth

import (
	"errors"
	"strings"
	"testing"
)

// TestGenerateAPIKey 测试密钥生成。
// 生成的密钥带固定前缀，哈希可直接用于校验，且每次生成的密钥不同。
func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "cl_") {
		t.Errorf("key %q missing cl_ prefix", key)
	}
	if hash != HashAPIKey(key) {
		t.Error("returned hash does not match HashAPIKey(key)")
	}

	key2, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if key == key2 {
		t.Error("consecutive keys are identical")
	}
}

// TestVerifyAPIKey 测试密钥校验。
func TestVerifyAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if err := VerifyAPIKey(key, hash); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := VerifyAPIKey("cl_wrong", hash); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("wrong key err = %v, want ErrInvalidAPIKey", err)
	}
	if err := VerifyAPIKey("", hash); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("empty key err = %v, want ErrInvalidAPIKey", err)
	}
}
