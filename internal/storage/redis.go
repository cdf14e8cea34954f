// Package storage 提供日志查看器的调用记录存储功能。
// 本文件实现基于 Redis 的存储：记录以 JSON 存放在独立键中，
// 全局与按函数名的 ID 列表维护插入顺序，容量超限时从尾部淘汰。
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 键名布局。
const (
	// redisLogList 全局记录 ID 列表（新记录在头部）
	redisLogList = "cirrus:logs"
	// redisLogKeyPrefix 单条记录的键前缀
	redisLogKeyPrefix = "cirrus:log:"
	// redisFnListPrefix 按函数名的 ID 列表前缀
	redisFnListPrefix = "cirrus:logs:fn:"
)

// RedisConfig 定义 Redis 存储的连接配置。
type RedisConfig struct {
	// Addr Redis 服务器地址（host:port）
	Addr string `yaml:"addr"`
	// Password 连接密码，可通过环境变量覆盖
	Password string `yaml:"password"`
	// DB 数据库编号
	DB int `yaml:"db"`
	// Capacity 保留的最大记录数，0 时使用 DefaultCapacity
	Capacity int `yaml:"capacity"`
}

// RedisStore 是基于 Redis 的日志存储实现。
type RedisStore struct {
	client   *redis.Client
	capacity int
}

// NewRedisStore 创建 Redis 存储并验证连接。
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisStore{client: client, capacity: capacity}, nil
}

// Add 存入一条记录，容量超限时从尾部淘汰最旧记录。
func (s *RedisStore) Add(rec *LogRecord) (string, error) {
	ctx := context.Background()

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal log record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisLogKeyPrefix+rec.ID, data, 0)
	pipe.LPush(ctx, redisLogList, rec.ID)
	pipe.LPush(ctx, redisFnListPrefix+rec.FunctionName, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store log record: %w", err)
	}

	// 容量淘汰：从全局列表尾部弹出多余的 ID 并清理关联键
	length, err := s.client.LLen(ctx, redisLogList).Result()
	if err == nil && length > int64(s.capacity) {
		for i := int64(0); i < length-int64(s.capacity); i++ {
			id, err := s.client.RPop(ctx, redisLogList).Result()
			if err != nil {
				break
			}
			if old, err := s.load(ctx, id); err == nil {
				s.client.LRem(ctx, redisFnListPrefix+old.FunctionName, 1, id)
			}
			s.client.Del(ctx, redisLogKeyPrefix+id)
		}
	}
	return rec.ID, nil
}

// List 按时间倒序返回匹配查询条件的记录。
func (s *RedisStore) List(q Query) ([]*LogRecord, error) {
	q.normalize()
	ctx := context.Background()

	listKey := redisLogList
	if q.FunctionName != "" {
		listKey = redisFnListPrefix + q.FunctionName
	}

	ids, err := s.client.LRange(ctx, listKey, 0, int64(q.Limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list log records: %w", err)
	}

	result := make([]*LogRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.load(ctx, id)
		if err != nil {
			continue // 记录可能刚被淘汰
		}
		result = append(result, rec)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	return result, nil
}

// Get 按 ID 返回单条记录。
func (s *RedisStore) Get(id string) (*LogRecord, error) {
	return s.load(context.Background(), id)
}

// Count 返回当前存储的记录总数。
func (s *RedisStore) Count() (int, error) {
	n, err := s.client.LLen(context.Background(), redisLogList).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count log records: %w", err)
	}
	return int(n), nil
}

// Purge 删除时间戳早于给定时刻的记录。
func (s *RedisStore) Purge(olderThan time.Time) (int, error) {
	ctx := context.Background()

	ids, err := s.client.LRange(ctx, redisLogList, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan log records: %w", err)
	}

	removed := 0
	for _, id := range ids {
		rec, err := s.load(ctx, id)
		if err != nil {
			continue
		}
		t := recordTime(rec)
		if t.IsZero() || !t.Before(olderThan) {
			continue
		}
		s.client.LRem(ctx, redisLogList, 1, id)
		s.client.LRem(ctx, redisFnListPrefix+rec.FunctionName, 1, id)
		s.client.Del(ctx, redisLogKeyPrefix+id)
		removed++
	}
	return removed, nil
}

// Close 关闭底层 Redis 连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// load 按 ID 加载并反序列化一条记录。
func (s *RedisStore) load(ctx context.Context, id string) (*LogRecord, error) {
	data, err := s.client.Get(ctx, redisLogKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load log record %s: %w", id, err)
	}

	var rec LogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal log record %s: %w", id, err)
	}
	return &rec, nil
}
