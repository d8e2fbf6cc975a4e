package wordlib

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher 监控词库目录，人工编辑.txt文件后自动触发重载
// 编辑器保存往往产生一串事件，用短暂的去抖窗口合并成一次重载
type Watcher struct {
	store    *Store
	dir      string
	debounce time.Duration
	fw       *fsnotify.Watcher
}

func NewWatcher(store *Store, dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		store:    store,
		dir:      dir,
		debounce: 500 * time.Millisecond,
		fw:       fw,
	}, nil
}

// Start 启动监控循环，ctx取消后退出
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer w.fw.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".txt" {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logrus.Debugf("词库文件变更: %s %s", event.Op, event.Name)
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					// Reset前必须排空已过期未消费的tick，否则会立刻触发一次过早的重载
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := w.store.Reload(); err != nil {
					// 重载失败时旧快照继续生效，只记录日志等待下次编辑
					logrus.Errorf("词库自动重载失败: %v", err)
					continue
				}
				logrus.Infof("词库自动重载成功，共 %d 条词条", len(w.store.Snapshot().Rules))
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				logrus.Warnf("词库目录监控错误: %v", err)
			}
		}
	}()
}
