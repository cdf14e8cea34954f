// Package storage 提供日志查看器的调用记录存储功能。
// 本文件实现基于内存的默认存储：容量固定的环形缓冲，
// 超出容量时淘汰最旧的记录，并维护按函数名的二级索引。
package storage

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore 是内存日志存储实现。
// 记录按到达顺序保存，容量满时从头部淘汰；
// byFunction 索引加速按函数名的过滤查询。
type MemoryStore struct {
	mu         sync.RWMutex
	records    []*LogRecord
	byID       map[string]*LogRecord
	byFunction map[string][]*LogRecord
	capacity   int
}

// NewMemoryStore 创建内存存储。
// capacity 小于等于 0 时使用 DefaultCapacity。
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		records:    make([]*LogRecord, 0, capacity),
		byID:       make(map[string]*LogRecord),
		byFunction: make(map[string][]*LogRecord),
		capacity:   capacity,
	}
}

// Add 存入一条记录，容量满时淘汰最旧记录。
func (s *MemoryStore) Add(rec *LogRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec
	s.byFunction[rec.FunctionName] = append(s.byFunction[rec.FunctionName], rec)

	if len(s.records) > s.capacity {
		evicted := s.records[0]
		s.records = s.records[1:]
		delete(s.byID, evicted.ID)
		s.removeFromIndex(evicted)
	}
	return rec.ID, nil
}

// removeFromIndex 从函数名索引中移除一条被淘汰的记录。
// 调用方必须已持有写锁。
func (s *MemoryStore) removeFromIndex(rec *LogRecord) {
	list := s.byFunction[rec.FunctionName]
	for i, r := range list {
		if r.ID == rec.ID {
			s.byFunction[rec.FunctionName] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.byFunction[rec.FunctionName]) == 0 {
		delete(s.byFunction, rec.FunctionName)
	}
}

// List 按时间倒序返回匹配查询条件的记录。
func (s *MemoryStore) List(q Query) ([]*LogRecord, error) {
	q.normalize()

	s.mu.RLock()
	var source []*LogRecord
	if q.FunctionName != "" {
		source = s.byFunction[q.FunctionName]
	} else {
		source = s.records
	}
	result := make([]*LogRecord, len(source))
	copy(result, source)
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})
	if len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// Get 按 ID 返回单条记录。
func (s *MemoryStore) Get(id string) (*LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.byID[id]; ok {
		return rec, nil
	}
	return nil, ErrRecordNotFound
}

// Count 返回当前存储的记录总数。
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Purge 删除时间戳早于给定时刻的记录。
func (s *MemoryStore) Purge(olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for _, rec := range s.records {
		t := recordTime(rec)
		if !t.IsZero() && t.Before(olderThan) {
			delete(s.byID, rec.ID)
			s.removeFromIndex(rec)
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Close 释放资源（内存实现为空操作）。
func (s *MemoryStore) Close() error {
	return nil
}
