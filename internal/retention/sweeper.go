// Package retention 实现日志保留策略。
// 按配置的调度周期清理超过最大保留时长的日志记录。
package retention

import (
	"time"

	"github.com/oriys/cirrus/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper 管理定期清理任务
type Sweeper struct {
	cron   *cron.Cron
	store  storage.Store
	maxAge time.Duration
	logger *logrus.Logger
}

// NewSweeper 创建一个新的 Sweeper。
//
// 参数：
//   - store: 日志存储后端
//   - maxAge: 记录的最大保留时长
//   - logger: 日志记录器
func NewSweeper(store storage.Store, maxAge time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(cron.WithSeconds()), // 支持秒级
		store:  store,
		maxAge: maxAge,
		logger: logger,
	}
}

// Start 注册清理任务并启动调度器。
//
// 参数：
//   - schedule: cron 表达式（六字段，含秒）
//
// 返回值：
//   - error: 表达式无效时返回错误
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": schedule,
		"max_age":  s.maxAge.String(),
	}).Info("Retention sweeper started")
	return nil
}

// sweep 执行一次清理，删除超过保留时长的记录
func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	removed, err := s.store.Purge(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Retention sweep failed")
		return
	}

	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Retention sweep completed")
	}
}

// Stop 停止调度器
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("Retention sweeper stopped")
}
