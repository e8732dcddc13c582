package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"termssh/backend/pkg/utils"
)

// DefaultDebounce 编辑器保存时往往产生多个事件，合并为一次回调
const DefaultDebounce = 200 * time.Millisecond

// Handler 文件变化后调用，参数是被监控的文件路径
type Handler func(path string)

// Service 监控单个文件的变化。fsnotify 监控的是所在目录，
// 这样编辑器用“写临时文件再重命名”的方式保存时也能收到事件
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	watcher  *fsnotify.Watcher
	logger   *log.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string][]Handler
	dirs    map[string]int
	pending map[string]*time.Timer
}

// New 是 Service 的构造函数
func New(appCtx context.Context, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("无法创建文件监控器: %w", err)
	}

	ctx, cancel := context.WithCancel(appCtx)
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		watcher:  w,
		logger:   logger,
		debounce: DefaultDebounce,
		files:    make(map[string][]Handler),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetDebounce 修改合并事件的时间窗口
func (s *Service) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Start 监控服务的主循环，阻塞直到 Stop 被调用
func (s *Service) Start() {
	defer s.watcher.Close()
	s.logger.Println("文件监控服务已启动")

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Println("文件监控服务正在关闭...")
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("监控器错误: %v", err)
		}
	}
}

// Stop 优雅地停止监控服务
func (s *Service) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for path, t := range s.pending {
		t.Stop()
		delete(s.pending, path)
	}
}

// Watch 添加一个要监控的文件，文件本身可以暂时不存在，但目录必须存在
func (s *Service) Watch(file string, handler Handler) error {
	file = filepath.Clean(file)
	dir := filepath.Dir(file)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[file]; !ok {
		if s.dirs[dir] == 0 {
			if err := s.watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			s.logger.Printf("添加新监控路径: %s", dir)
		}
		s.dirs[dir]++
	}
	s.files[file] = append(s.files[file], handler)
	return nil
}

// Unwatch 移除对文件的所有监控
func (s *Service) Unwatch(file string) {
	file = filepath.Clean(file)
	dir := filepath.Dir(file)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[file]; !ok {
		return
	}
	delete(s.files, file)
	if t, ok := s.pending[file]; ok {
		t.Stop()
		delete(s.pending, file)
	}

	s.dirs[dir]--
	if s.dirs[dir] <= 0 {
		delete(s.dirs, dir)
		if err := s.watcher.Remove(dir); err != nil {
			s.logger.Printf("从 fsnotify 移除监控失败: %v", err)
		}
	}
}

// Watched 返回当前监控的文件数量
func (s *Service) Watched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// handleEvent 只关心被监控文件本身的变化，同一文件的连续事件合并后再回调
func (s *Service) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	file := filepath.Clean(event.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[file]; !ok {
		return
	}
	if t, ok := s.pending[file]; ok {
		t.Stop()
	}
	s.pending[file] = time.AfterFunc(s.debounce, func() {
		s.fire(file)
	})
}

func (s *Service) fire(file string) {
	s.mu.Lock()
	delete(s.pending, file)
	handlers := append([]Handler(nil), s.files[file]...)
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	for _, h := range handlers {
		h := h
		utils.SafeGo(s.logger, func() { h(file) })
	}
}
