// Package api 提供日志查看器的HTTP API处理程序。
// 该文件包含查询、统计与健康检查端点的单元测试。
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oriys/cirrus/internal/auth"
	"github.com/oriys/cirrus/internal/storage"
)

// seedRecord 向存储写入一条测试记录。
func seedRecord(t *testing.T, store *storage.MemoryStore, id, function, status string, duration float64, timestamp string) {
	t.Helper()
	_, err := store.Add(&storage.LogRecord{
		ID:           id,
		Timestamp:    timestamp,
		Level:        "INFO",
		FunctionName: function,
		Module:       "test",
		DurationMS:   duration,
		Status:       status,
		Message:      "function executed successfully",
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

// TestListLogs 测试日志列表查询端点。
// 验证时间倒序、limit 与 function_name 过滤参数。
func TestListLogs(t *testing.T) {
	_, router, store := newTestHandler(t)
	seedRecord(t, store, "a", "alpha", "success", 1, "2026-08-30T10:00:01Z")
	seedRecord(t, store, "b", "beta", "success", 2, "2026-08-30T10:00:02Z")
	seedRecord(t, store, "c", "alpha", "error", 3, "2026-08-30T10:00:03Z")

	tests := []struct {
		name    string   // 测试用例名称
		url     string   // 请求路径
		wantIDs []string // 期望返回的记录 ID 顺序
	}{
		{name: "all records newest first", url: "/api/logs", wantIDs: []string{"c", "b", "a"}},
		{name: "limit", url: "/api/logs?limit=2", wantIDs: []string{"c", "b"}},
		{name: "filter by function", url: "/api/logs?function_name=alpha", wantIDs: []string{"c", "a"}},
		{name: "filter with no matches", url: "/api/logs?function_name=gamma", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}

			var records []storage.LogRecord
			if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
				t.Fatalf("invalid response: %v", err)
			}
			if len(records) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(records), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if records[i].ID != id {
					t.Errorf("records[%d].ID = %s, want %s", i, records[i].ID, id)
				}
			}
		})
	}
}

// TestGetLog 测试日志详情端点。
func TestGetLog(t *testing.T) {
	_, router, store := newTestHandler(t)
	seedRecord(t, store, "abc", "alpha", "success", 1, "2026-08-30T10:00:00Z")

	req := httptest.NewRequest("GET", "/api/logs/abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var rec storage.LogRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if rec.ID != "abc" || rec.FunctionName != "alpha" {
		t.Errorf("unexpected record: %+v", rec)
	}

	// 不存在的记录返回 404
	req = httptest.NewRequest("GET", "/api/logs/missing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

// TestStats 测试按函数聚合的统计端点。
func TestStats(t *testing.T) {
	_, router, store := newTestHandler(t)
	seedRecord(t, store, "a", "alpha", "success", 10, "2026-08-30T10:00:01Z")
	seedRecord(t, store, "b", "alpha", "error", 20, "2026-08-30T10:00:02Z")
	seedRecord(t, store, "c", "beta", "success", 5, "2026-08-30T10:00:03Z")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var stats []FunctionStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d stats, want 2", len(stats))
	}

	byName := make(map[string]FunctionStats)
	for _, st := range stats {
		byName[st.FunctionName] = st
	}

	alpha := byName["alpha"]
	if alpha.Count != 2 || alpha.ErrorCount != 1 {
		t.Errorf("alpha stats = %+v", alpha)
	}
	if alpha.AvgDurationMS != 15 {
		t.Errorf("alpha avg duration = %v, want 15", alpha.AvgDurationMS)
	}
	if alpha.LastSeen != "2026-08-30T10:00:02Z" {
		t.Errorf("alpha last seen = %s", alpha.LastSeen)
	}

	beta := byName["beta"]
	if beta.Count != 1 || beta.ErrorCount != 0 || beta.AvgDurationMS != 5 {
		t.Errorf("beta stats = %+v", beta)
	}
}

// TestHealthEndpoints 测试健康检查端点。
func TestHealthEndpoints(t *testing.T) {
	_, router, _ := newTestHandler(t)

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

// TestAuthMiddleware 测试 API 密钥认证。
// 启用认证后，缺失或错误的密钥被拒绝，正确的密钥放行；
// 健康检查端点不在认证范围内。
func TestAuthMiddleware(t *testing.T) {
	h, _, _ := newTestHandler(t)

	key, keyHash, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	router := NewRouter(&RouterConfig{
		Handler: h,
		Auth:    auth.NewMiddleware("X-API-Key", keyHash, true),
	})

	tests := []struct {
		name     string // 测试用例名称
		path     string // 请求路径
		key      string // 请求携带的 API Key
		wantCode int    // 期望的状态码
	}{
		{name: "missing key rejected", path: "/api/logs", key: "", wantCode: http.StatusUnauthorized},
		{name: "wrong key rejected", path: "/api/logs", key: "cl_bogus", wantCode: http.StatusUnauthorized},
		{name: "valid key accepted", path: "/api/logs", key: key, wantCode: http.StatusOK},
		{name: "health bypasses auth", path: "/health", key: "", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}
