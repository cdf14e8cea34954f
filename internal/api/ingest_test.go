// Package api 提供日志查看器的HTTP API处理程序。
// 该文件包含 OTLP/JSON 日志接收端点的单元测试，使用内存存储
// 与 httptest 隔离测试环境，无需真实的收集器。
package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/oriys/cirrus/internal/storage"
)

// newTestHandler 构建一个使用内存存储的测试处理器与路由器。
func newTestHandler(t *testing.T) (*Handler, http.Handler, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore(100)
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.ErrorLevel)

	h := NewHandler(store, nil, nil, logger)
	router := NewRouter(&RouterConfig{Handler: h})
	return h, router, store
}

// otlpBody 构建一个携带 log_data 属性的 OTLP/JSON 日志批次。
func otlpBody(records ...map[string]interface{}) []byte {
	logRecords := make([]interface{}, 0, len(records))
	for _, fields := range records {
		values := make([]interface{}, 0, len(fields))
		for k, v := range fields {
			var anyValue map[string]interface{}
			switch n := v.(type) {
			case string:
				anyValue = map[string]interface{}{"stringValue": n}
			case float64:
				anyValue = map[string]interface{}{"doubleValue": n}
			case int:
				anyValue = map[string]interface{}{"intValue": strconv.Itoa(n)}
			}
			values = append(values, map[string]interface{}{"key": k, "value": anyValue})
		}
		logRecords = append(logRecords, map[string]interface{}{
			"severityText": "INFO",
			"traceId":      "0af7651916cd43dd8448eb211c80319c",
			"spanId":       "b7ad6b7169203331",
			"attributes": []interface{}{
				map[string]interface{}{
					"key": "log_data",
					"value": map[string]interface{}{
						"kvlistValue": map[string]interface{}{"values": values},
					},
				},
			},
		})
	}

	payload := map[string]interface{}{
		"resourceLogs": []interface{}{
			map[string]interface{}{
				"scopeLogs": []interface{}{
					map[string]interface{}{"logRecords": logRecords},
				},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

// TestIngestLogs 测试标准 OTLP/JSON 批次的接收。
// 验证记录被解析存储、响应包含接收数量、OTLP 元数据被并入记录。
func TestIngestLogs(t *testing.T) {
	_, router, store := newTestHandler(t)

	body := otlpBody(map[string]interface{}{
		"function_name": "calculate_sum",
		"module":        "example",
		"timestamp":     "2026-08-30T10:00:00Z",
		"level":         "INFO",
		"duration_ms":   12.5,
		"status":        "success",
		"message":       "function executed successfully",
	})

	req := httptest.NewRequest("POST", "/api/logs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status    string `json:"status"`
		LogsAdded int    `json:"logs_added"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Status != "success" || resp.LogsAdded != 1 {
		t.Errorf("response = %+v", resp)
	}

	records, _ := store.List(storage.Query{})
	if len(records) != 1 {
		t.Fatalf("store has %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.FunctionName != "calculate_sum" {
		t.Errorf("FunctionName = %q", rec.FunctionName)
	}
	if rec.DurationMS != 12.5 {
		t.Errorf("DurationMS = %v", rec.DurationMS)
	}
	if rec.TraceID != "0af7651916cd43dd8448eb211c80319c" {
		t.Errorf("TraceID = %q", rec.TraceID)
	}
	if rec.SeverityText != "INFO" {
		t.Errorf("SeverityText = %q", rec.SeverityText)
	}
}

// TestIngestLogs_SkipsUnrelatedRecords 测试不携带 log_data 属性的记录被跳过。
func TestIngestLogs_SkipsUnrelatedRecords(t *testing.T) {
	_, router, store := newTestHandler(t)

	payload := map[string]interface{}{
		"resourceLogs": []interface{}{
			map[string]interface{}{
				"scopeLogs": []interface{}{
					map[string]interface{}{
						"logRecords": []interface{}{
							map[string]interface{}{
								"severityText": "INFO",
								"body":         map[string]interface{}{"stringValue": "unrelated log line"},
							},
						},
					},
				},
			},
		},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/logs", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	n, _ := store.Count()
	if n != 0 {
		t.Errorf("store has %d records, want 0", n)
	}
}

// TestIngestLogs_InvalidJSON 测试非法请求体的拒绝。
func TestIngestLogs_InvalidJSON(t *testing.T) {
	_, router, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/api/logs", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// TestIngestLogs_Gzip 测试 gzip 压缩请求体的接收。
// OTLP 收集器的 HTTP 导出器默认启用 gzip 压缩。
func TestIngestLogs_Gzip(t *testing.T) {
	_, router, store := newTestHandler(t)

	body := otlpBody(map[string]interface{}{
		"function_name": "risky_operation",
		"status":        "error",
		"message":       "function failed: boom",
	})

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(body)
	zw.Close()

	req := httptest.NewRequest("POST", "/api/logs", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	n, _ := store.Count()
	if n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}
}

// TestFlattenAnyValue 测试 OTLP AnyValue 的扁平化。
// OTLP/JSON 中 64 位整数编码为字符串，应还原为数值。
func TestFlattenAnyValue(t *testing.T) {
	tests := []struct {
		name string                 // 测试用例名称
		in   map[string]interface{} // AnyValue 的 JSON 表示
		want interface{}            // 期望的扁平化结果
	}{
		{name: "string", in: map[string]interface{}{"stringValue": "x"}, want: "x"},
		{name: "bool", in: map[string]interface{}{"boolValue": true}, want: true},
		{name: "double", in: map[string]interface{}{"doubleValue": 12.5}, want: 12.5},
		{name: "int as string", in: map[string]interface{}{"intValue": "42"}, want: float64(42)},
		{name: "unknown", in: map[string]interface{}{}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenAnyValue(tt.in); got != tt.want {
				t.Errorf("flattenAnyValue() = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}
