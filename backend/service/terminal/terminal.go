package terminal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"termssh/backend/internal/sshproc"
	"termssh/backend/internal/types"
	"termssh/backend/pkg/ptyx"
	"termssh/backend/pkg/utils"
)

const wsPathPrefix = "/ws/terminal/"

// Options 终端服务的配置
type Options struct {
	// Addr WebSocket 服务监听地址
	Addr string
	// ProcessOptions 每次启动进程时调用，返回最新的进程参数
	ProcessOptions func() sshproc.Options
	// Spawn 为 nil 时使用 sshproc.Spawn
	Spawn Spawner
	// OnStart 任何会话的进程启动成功时调用
	OnStart func(sessionID string)
	// OnExit 任何会话的进程结束时调用
	OnExit func(types.ConnectionExit)
	Logger *log.Logger
}

// Service 负责管理所有活动的终端会话
type Service struct {
	ctx      context.Context
	opts     Options
	sessions map[string]*Bridge
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *log.Logger

	server   *http.Server
	listener net.Listener
}

// NewService 是终端服务的构造函数
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Service{
		ctx:      context.Background(),
		opts:     opts,
		sessions: make(map[string]*Bridge),
		logger:   opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.opts.Spawn == nil {
		s.opts.Spawn = s.spawnProcess
	}
	return s
}

// Startup 在应用启动时被调用，启动后台 WebSocket 服务器
func (s *Service) Startup(ctx context.Context) error {
	s.ctx = ctx

	addr := s.opts.Addr
	if addr == "" {
		addr = "127.0.0.1:45678"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Printf("Starting terminal WebSocket server on %s", listener.Addr())
	utils.SafeGo(s.logger, func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Terminal WebSocket server stopped: %v", err)
		}
	})
	return nil
}

// Shutdown 关闭所有活动会话和 WebSocket 服务器
func (s *Service) Shutdown() {
	s.logger.Println("Terminal service shutting down, cleaning up all active sessions...")
	s.cleanupAllSessions()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}

// Addr 返回实际监听的地址
func (s *Service) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Handler 返回处理 WebSocket 连接的 http.Handler
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(wsPathPrefix, s.handleConnection)
	return mux
}

// StartSession 创建一个等待显示端连接的会话，进程在显示端发送 ready 之后才启动
func (s *Service) StartSession(cfg types.SessionConfig) *types.TerminalSessionInfo {
	sessionID := uuid.NewString()
	bridge := NewBridge(sessionID, cfg, s.opts.Spawn, BridgeOptions{
		OnStart: s.opts.OnStart,
		OnExit:  s.opts.OnExit,
		OnClose: s.removeSession,
		Logger:  s.logger,
	})

	s.mu.Lock()
	s.sessions[sessionID] = bridge
	s.mu.Unlock()

	s.logger.Printf("Created terminal session %s for %s", sessionID, cfg.Host)

	return &types.TerminalSessionInfo{
		ID:     sessionID,
		Target: cfg.Host,
		URL:    fmt.Sprintf("ws://%s%s%s", s.Addr(), wsPathPrefix, sessionID),
		Colors: cfg.Colors,
	}
}

// Session 按 ID 查找会话
func (s *Service) Session(sessionID string) (*Bridge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.sessions[sessionID]
	return b, ok
}

// SetColors 向一个活动会话推送新配色
func (s *Service) SetColors(sessionID string, colors types.TerminalColors) error {
	b, ok := s.Session(sessionID)
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	b.SetColors(colors)
	return nil
}

// CloseSession 关闭会话，不存在时什么也不做
func (s *Service) CloseSession(sessionID string) {
	if b, ok := s.Session(sessionID); ok {
		b.Close()
	}
}

// ActiveSessions 返回当前会话数量
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) spawnProcess(cfg types.SessionConfig, size *ptyx.Winsize) (Process, error) {
	var opts sshproc.Options
	if s.opts.ProcessOptions != nil {
		opts = s.opts.ProcessOptions()
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	opts.InitialSize = size
	return sshproc.Spawn(cfg, opts)
}

// handleConnection 将 HTTP 请求升级为 WebSocket 连接并绑定到会话
func (s *Service) handleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, wsPathPrefix)
	bridge, ok := s.Session(sessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("Failed to upgrade connection for session %s: %v", sessionID, err)
		return
	}

	surface := &wsSurface{conn: conn}
	if err := bridge.Attach(surface); err != nil {
		s.logger.Printf("Rejecting websocket for session %s: %v", sessionID, err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session already attached"))
		_ = conn.Close()
		return
	}
	s.logger.Printf("WebSocket connected for session %s", sessionID)

	// 显示端关闭（读出错）等同于 dispose
	defer bridge.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !surface.isClosed() {
				s.logger.Printf("Error reading from websocket for session %s: %v", sessionID, err)
			}
			return
		}
		bridge.Handle(message)
	}
}

// removeSession 从 map 中移除
func (s *Service) removeSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.logger.Printf("Cleaned up terminal session %s", sessionID)
	}
}

// cleanupAllSessions 遍历并关闭所有会话
func (s *Service) cleanupAllSessions() {
	s.mu.RLock()
	// Close 会回调 removeSession 请求写锁，先复制一份
	bridges := make([]*Bridge, 0, len(s.sessions))
	for _, b := range s.sessions {
		bridges = append(bridges, b)
	}
	s.mu.RUnlock()

	for _, b := range bridges {
		b.Close()
	}
}

// wsSurface 基于 WebSocket 的显示端，消息以 JSON 文本帧发送
type wsSurface struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (w *wsSurface) Send(msg any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return net.ErrClosed
	}
	return w.conn.WriteJSON(msg)
}

func (w *wsSurface) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.conn.Close()
}

func (w *wsSurface) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
