// Package config 提供日志查看器服务的配置管理功能。
// 本文件实现配置文件的热重载：基于 fsnotify 监听配置文件变更，
// 变更后重新加载并通过回调通知宿主进程（如重配置遥测管道）。
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounceInterval 文件变更事件的去抖间隔。
// 编辑器保存通常触发多个连续事件，合并为一次重载。
const debounceInterval = 500 * time.Millisecond

// Watch 监听配置文件的变更并在变更后重新加载。
// 每次成功重载都会调用 onChange 回调；解析失败时保留旧配置并记录警告。
// ctx 取消时停止监听。
//
// 参数：
//   - ctx: 控制监听生命周期的上下文
//   - path: 配置文件路径
//   - logger: 日志记录器
//   - onChange: 配置重载后的回调
//
// 返回：
//   - error: 监听器创建失败时的错误
func Watch(ctx context.Context, path string, logger *logrus.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// 监听目录而非文件本身：原子替换（rename+create）时文件级监听会失效
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		reload := func() {
			cfg, err := Load(path)
			if err != nil {
				logger.WithError(err).Warn("Failed to reload config, keeping previous configuration")
				return
			}
			logger.WithField("path", path).Info("Config reloaded")
			onChange(cfg)
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceInterval, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Config watcher error")
			}
		}
	}()

	return nil
}
