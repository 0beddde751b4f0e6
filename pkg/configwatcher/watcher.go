package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"step2hub/pkg/logger"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader 文件变更后回调，参数为被监听文件的绝对路径
type Reloader func(path string)

// DebounceInterval 编辑器保存时常连续触发多次写事件
const DebounceInterval = time.Second

// WatchFile 监听单个文件，ctx 取消后退出。
// 监听的是所在目录，以便编辑器用重命名方式保存时也能收到事件
func WatchFile(ctx context.Context, path string, reloader Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(DebounceInterval)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					// 防抖处理
					timer.Reset(DebounceInterval)
				}
			case <-timer.C:
				reloader(absPath)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Error("File watcher error", zap.String("file", absPath), zap.Error(err))
			}
		}
	}()

	logger.Log.Info("Watching file for changes", zap.String("file", absPath))
	return nil
}
