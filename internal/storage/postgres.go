// Package storage 提供日志查看器的调用记录存储功能。
// 本文件实现基于 PostgreSQL 的存储：结构化字段落独立列，
// 原始载荷以 JSONB 形式完整保留，适合长期保留与后续分析。
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConfig 定义 PostgreSQL 存储的连接配置。
type PostgresConfig struct {
	// Host 数据库主机
	Host string `yaml:"host"`
	// Port 数据库端口
	Port int `yaml:"port"`
	// User 连接用户名
	User string `yaml:"user"`
	// Password 连接密码，可通过环境变量覆盖
	Password string `yaml:"password"`
	// Database 数据库名
	Database string `yaml:"database"`
	// SSLMode SSL 模式（disable/require 等）
	SSLMode string `yaml:"sslmode"`
}

// PostgresStore 是基于 PostgreSQL 的日志存储实现。
type PostgresStore struct {
	db *sql.DB
}

// logRecordsSchema 日志记录表结构，NewPostgresStore 时自动创建。
const logRecordsSchema = `
CREATE TABLE IF NOT EXISTS log_records (
	id            TEXT PRIMARY KEY,
	timestamp     TEXT NOT NULL,
	level         TEXT NOT NULL,
	function_name TEXT NOT NULL,
	module        TEXT NOT NULL,
	duration_ms   DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL,
	message       TEXT NOT NULL,
	raw_data      JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_log_records_function ON log_records (function_name);
CREATE INDEX IF NOT EXISTS idx_log_records_timestamp ON log_records (timestamp DESC);
`

// NewPostgresStore 创建 PostgreSQL 存储，验证连接并初始化表结构。
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.Exec(logRecordsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize log_records schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Add 存入一条记录。
func (s *PostgresStore) Add(rec *LogRecord) (string, error) {
	raw, err := json.Marshal(rec.RawData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal raw payload: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO log_records (id, timestamp, level, function_name, module, duration_ms, status, message, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Timestamp, rec.Level, rec.FunctionName, rec.Module,
		rec.DurationMS, rec.Status, rec.Message, raw)
	if err != nil {
		return "", fmt.Errorf("failed to insert log record: %w", err)
	}
	return rec.ID, nil
}

// List 按时间倒序返回匹配查询条件的记录。
func (s *PostgresStore) List(q Query) ([]*LogRecord, error) {
	q.normalize()

	query := `SELECT id, raw_data FROM log_records`
	args := []interface{}{}
	if q.FunctionName != "" {
		query += ` WHERE function_name = $1`
		args = append(args, q.FunctionName)
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT %d`, q.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log records: %w", err)
	}
	defer rows.Close()

	var result []*LogRecord
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan log record: %w", err)
		}
		rec, err := recordFromRow(id, raw)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Get 按 ID 返回单条记录。
func (s *PostgresStore) Get(id string) (*LogRecord, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT raw_data FROM log_records WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load log record %s: %w", id, err)
	}
	return recordFromRow(id, raw)
}

// Count 返回当前存储的记录总数。
func (s *PostgresStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM log_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count log records: %w", err)
	}
	return n, nil
}

// Purge 删除时间戳早于给定时刻的记录。
func (s *PostgresStore) Purge(olderThan time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM log_records WHERE timestamp < $1`,
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to purge log records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close 关闭数据库连接池。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// recordFromRow 从 JSONB 原始载荷重建记录并覆盖存储分配的 ID。
func recordFromRow(id string, raw []byte) (*LogRecord, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw payload for %s: %w", id, err)
	}
	rec := FromPayload(data)
	rec.ID = id
	return rec, nil
}
