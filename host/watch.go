package host

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/lessoncanvas/logger"
)

// Watcher 监听单个文件的变化。编辑器常以“写临时文件再改名”的方式保存，
// 所以监听的是所在目录，再按文件名过滤。
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *logger.Logger

	mu    sync.Mutex
	timer *time.Timer
	once  sync.Once
}

// WatchFile 在 path 被写入、创建或改名后调用 onChange；debounce 内的多次变化合并为一次。
// onChange 在监听 goroutine 中调用，需要操作引擎时应投递到 Loop。
func WatchFile(path string, debounce time.Duration, onChange func(), log *logger.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析监听路径失败: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听失败: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("监听目录 %s 失败: %w", filepath.Dir(abs), err)
	}
	w := &Watcher{watcher: fw, done: make(chan struct{}), log: logger.OrNop(log).With("component", "watch", "path", abs)}
	go w.loop(abs, debounce, onChange)
	return w, nil
}

func (w *Watcher) loop(target string, debounce time.Duration, onChange func()) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("输入文件已变化", "op", event.Op.String())
			w.schedule(debounce, onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("文件监听出错", "error", err)
		}
	}
}

func (w *Watcher) schedule(debounce time.Duration, onChange func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, func() {
		select {
		case <-w.done:
		default:
			onChange()
		}
	})
}

// Close 停止监听。可重复调用。
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
