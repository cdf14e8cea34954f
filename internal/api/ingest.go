// Package api 提供日志查看器的HTTP API处理程序。
// 本文件实现 OTLP/JSON 日志批次的接收与解析。
// 导出端（funclog）将完整的调用记录以 log_data 属性附加在日志记录上，
// 这里沿 resourceLogs → scopeLogs → logRecords 的嵌套结构查找该属性，
// 将其扁平化后存入记录存储。
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/oriys/cirrus/funclog"
	"github.com/oriys/cirrus/internal/storage"
)

// IngestLogs 处理 POST /api/logs 请求。
// 请求体为 OTLP/JSON 格式的日志批次（通常由 OTLP 收集器的 HTTP
// 导出器发来）。每条携带 log_data 属性的日志记录被解析、存储、
// 广播到实时流，失败记录额外转发到事件总线。
func (h *Handler) IngestLogs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	added := 0
	for _, resourceLog := range asSlice(payload["resourceLogs"]) {
		for _, scopeLog := range asSlice(asMap(resourceLog)["scopeLogs"]) {
			for _, logRecord := range asSlice(asMap(scopeLog)["logRecords"]) {
				record := asMap(logRecord)
				logData := extractLogData(record)
				if logData == nil {
					continue
				}
				h.ingestRecord(r, logData)
				added++
			}
		}
	}

	h.metrics.RecordBatch(float64(time.Since(start).Nanoseconds()) / 1e6)
	if n, err := h.store.Count(); err == nil {
		h.metrics.SetStoreRecords(n)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"logs_added": added,
	})
}

// ingestRecord 存储一条解析出的记录并触发后续动作（广播、事件转发）。
func (h *Handler) ingestRecord(r *http.Request, logData map[string]interface{}) {
	rec := storage.FromPayload(logData)

	if _, err := h.store.Add(rec); err != nil {
		h.logger.WithError(err).WithField("function", rec.FunctionName).
			Error("Failed to store ingested record")
		return
	}
	h.metrics.RecordIngested(rec.Status)
	h.broadcaster.Broadcast(rec)

	if h.forwarder != nil && rec.Status == "error" {
		err := h.forwarder.PublishError(r.Context(), rec)
		h.metrics.EventPublished(err == nil)
		if err != nil {
			h.logger.WithError(err).WithField("function", rec.FunctionName).
				Warn("Failed to forward error event")
		}
	}
}

// extractLogData 从 OTLP 日志记录中提取调用记录属性。
// 返回扁平化后的字段映射；记录不携带 log_data 属性时返回 nil。
// OTLP 记录自身的 severityText/traceId/spanId 一并并入映射。
func extractLogData(record map[string]interface{}) map[string]interface{} {
	var logData map[string]interface{}

	for _, attr := range asSlice(record["attributes"]) {
		attrMap := asMap(attr)
		if attrMap["key"] != funclog.LogDataKey {
			continue
		}
		kvlist := asMap(asMap(attrMap["value"])["kvlistValue"])
		flattened := make(map[string]interface{})
		for _, kv := range asSlice(kvlist["values"]) {
			kvMap := asMap(kv)
			key, ok := kvMap["key"].(string)
			if !ok {
				continue
			}
			flattened[key] = flattenAnyValue(asMap(kvMap["value"]))
		}
		if len(flattened) > 0 {
			logData = flattened
		}
		break
	}

	if logData == nil {
		return nil
	}

	if v, ok := record["severityText"].(string); ok && v != "" {
		logData["severity_text"] = v
	}
	if v, ok := record["traceId"].(string); ok && v != "" {
		logData["trace_id"] = v
	}
	if v, ok := record["spanId"].(string); ok && v != "" {
		logData["span_id"] = v
	}
	return logData
}

// flattenAnyValue 将 OTLP 的 AnyValue JSON 表示扁平化为 Go 值。
// OTLP/JSON 中 64 位整数编码为字符串，这里还原为数值。
func flattenAnyValue(value map[string]interface{}) interface{} {
	if v, ok := value["stringValue"]; ok {
		return v
	}
	if v, ok := value["boolValue"]; ok {
		return v
	}
	if v, ok := value["doubleValue"]; ok {
		return v
	}
	if v, ok := value["intValue"]; ok {
		switch n := v.(type) {
		case string:
			if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
				return float64(parsed)
			}
			return n
		default:
			return n
		}
	}
	if v, ok := value["arrayValue"]; ok {
		items := asSlice(asMap(v)["values"])
		result := make([]interface{}, 0, len(items))
		for _, item := range items {
			result = append(result, flattenAnyValue(asMap(item)))
		}
		return result
	}
	if v, ok := value["kvlistValue"]; ok {
		result := make(map[string]interface{})
		for _, kv := range asSlice(asMap(v)["values"]) {
			kvMap := asMap(kv)
			if key, ok := kvMap["key"].(string); ok {
				result[key] = flattenAnyValue(asMap(kvMap["value"]))
			}
		}
		return result
	}
	if v, ok := value["bytesValue"]; ok {
		return v
	}
	return nil
}

// asSlice 将任意值断言为切片，类型不符时返回 nil。
func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

// asMap 将任意值断言为映射，类型不符时返回 nil。
func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}
