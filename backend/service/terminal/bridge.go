package terminal

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"termssh/backend/internal/sshproc"
	"termssh/backend/internal/types"
	"termssh/backend/pkg/ptyx"
	"termssh/backend/pkg/utils"
)

// State 会话状态，只会向前推进
type State int

const (
	StateCreated State = iota
	StateAwaitingReady
	StateConnecting
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Surface 显示端，只需要能发送消息和关闭
type Surface interface {
	Send(msg any) error
	Close() error
}

// Process 桥接使用的进程接口，*sshproc.Session 实现了它
type Process interface {
	Events() <-chan sshproc.Event
	Write(data string) error
	Resize(cols, rows uint16) error
	Kill()
}

// Spawner 启动进程，size 是显示端最近一次报告的大小，可能为 nil
type Spawner func(cfg types.SessionConfig, size *ptyx.Winsize) (Process, error)

var ErrAlreadyAttached = errors.New("display surface already attached")

// Bridge 把一个显示端和一个 ssh 进程连接起来
type Bridge struct {
	id     string
	cfg    types.SessionConfig
	spawn  Spawner
	logger *log.Logger

	// onStart 进程启动成功后调用
	onStart func(id string)
	// onExit 进程结束、启动失败或 ready 之前关闭时调用，只调用一次
	onExit func(types.ConnectionExit)
	// onClose 会话进入 Closed 时调用
	onClose func(id string)

	mu        sync.Mutex
	state     State
	surface   Surface
	proc      Process
	size      *ptyx.Winsize
	closeOnce sync.Once
	exitOnce  sync.Once

	// 保证对显示端的写入是串行的
	sendMu sync.Mutex
}

type BridgeOptions struct {
	OnStart func(id string)
	OnExit  func(types.ConnectionExit)
	OnClose func(id string)
	Logger  *log.Logger
}

func NewBridge(id string, cfg types.SessionConfig, spawn Spawner, opts BridgeOptions) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		id:      id,
		cfg:     cfg,
		spawn:   spawn,
		logger:  logger,
		onStart: opts.OnStart,
		onExit:  opts.OnExit,
		onClose: opts.OnClose,
		state:   StateCreated,
	}
}

func (b *Bridge) ID() string {
	return b.id
}

// Config 返回创建时的启动参数副本
func (b *Bridge) Config() types.SessionConfig {
	return b.cfg
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Attach 绑定显示端，之后等待 ready 消息
func (b *Bridge) Attach(surface Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateCreated {
		return fmt.Errorf("session %s: %w (state %s)", b.id, ErrAlreadyAttached, b.state)
	}
	b.surface = surface
	b.state = StateAwaitingReady
	return nil
}

// Handle 处理显示端发来的一条原始消息。错误的消息只记录日志
func (b *Bridge) Handle(raw []byte) {
	defer utils.Recover(b.logger)

	msg, err := decodeInbound(raw)
	if err != nil {
		b.logger.Printf("[bridge] session %s: ignoring message: %v", b.id, err)
		return
	}

	switch msg.Type {
	case TypeReady:
		b.handleReady()
	case TypeInput:
		b.handleInput(*msg.Data)
	case TypeResize:
		b.handleResize(uint16(*msg.Cols), uint16(*msg.Rows))
	case TypeClosePanel:
		b.Close()
	}
}

func (b *Bridge) handleReady() {
	b.mu.Lock()
	if b.state != StateAwaitingReady {
		state := b.state
		b.mu.Unlock()
		b.logger.Printf("[bridge] session %s: ready received in state %s, ignored", b.id, state)
		return
	}
	b.state = StateConnecting
	size := b.size
	b.mu.Unlock()

	// 先推送配色，再启动进程，保证 setColors 在所有输出之前
	b.send(SetColorsMessage{Type: TypeSetColors, Colors: b.cfg.Colors})

	proc, err := b.spawn(b.cfg, size)
	if err != nil {
		b.logger.Printf("[bridge] session %s: spawn failed: %v", b.id, err)
		b.send(ExitMessage{Type: TypeExit, Error: err.Error()})
		b.reportExit(types.ConnectionExit{Error: err.Error()})
		b.Close()
		return
	}

	b.mu.Lock()
	if b.state == StateClosed {
		// 启动期间显示端已经关闭
		b.mu.Unlock()
		proc.Kill()
		go b.pump(proc)
		return
	}
	b.proc = proc
	b.state = StateStreaming
	b.mu.Unlock()

	go b.pump(proc)
	if b.onStart != nil {
		b.onStart(b.id)
	}
}

func (b *Bridge) handleInput(data string) {
	b.mu.Lock()
	proc, state := b.proc, b.state
	b.mu.Unlock()

	if state != StateStreaming || proc == nil {
		b.logger.Printf("[bridge] session %s: input in state %s dropped", b.id, state)
		return
	}
	if err := proc.Write(data); err != nil {
		b.logger.Printf("[bridge] session %s: write failed: %v", b.id, err)
	}
}

// handleResize 记录大小；只有伪终端模式下才真正影响远端
func (b *Bridge) handleResize(cols, rows uint16) {
	b.mu.Lock()
	b.size = &ptyx.Winsize{Cols: cols, Rows: rows}
	proc := b.proc
	b.mu.Unlock()

	if proc == nil {
		return
	}
	if err := proc.Resize(cols, rows); err != nil {
		b.logger.Printf("[bridge] session %s: resize to %dx%d failed: %v", b.id, cols, rows, err)
	}
}

// SetColors 向显示端推送新的配色
func (b *Bridge) SetColors(colors types.TerminalColors) {
	b.send(SetColorsMessage{Type: TypeSetColors, Colors: colors})
}

// pump 把进程事件转发给显示端，直到事件通道关闭
func (b *Bridge) pump(proc Process) {
	defer utils.Recover(b.logger)

	var exit *sshproc.ExitStatus
	for ev := range proc.Events() {
		switch ev.Kind {
		case sshproc.EventOutput:
			b.send(OutputMessage{Type: TypeOutput, Data: ev.Data})
		case sshproc.EventExit:
			exit = ev.Exit
		}
	}
	if exit == nil {
		exit = &sshproc.ExitStatus{}
	}

	b.send(ExitMessage{Type: TypeExit, Code: exit.Code, Signal: exit.Signal})
	b.reportExit(types.ConnectionExit{
		Code:       exit.Code,
		Signal:     exit.Signal,
		StderrTail: exit.StderrTail,
	})
	b.Close()
}

func (b *Bridge) reportExit(exit types.ConnectionExit) {
	if b.onExit == nil {
		return
	}
	exit.SessionID = b.id
	exit.Target = b.cfg.Host
	exit.Config = b.cfg
	b.exitOnce.Do(func() { b.onExit(exit) })
}

// Close 结束会话：终止进程（可重复调用），释放显示端
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		prev := b.state
		b.state = StateClosed
		proc, surface := b.proc, b.surface
		b.mu.Unlock()

		if proc != nil {
			proc.Kill()
		}
		if surface != nil {
			b.sendMu.Lock()
			_ = surface.Close()
			b.sendMu.Unlock()
		}
		b.logger.Printf("[bridge] session %s closed in state %s", b.id, prev)
		// 进程从未启动，没有别的地方会报告结束
		if prev == StateCreated || prev == StateAwaitingReady {
			b.reportExit(types.ConnectionExit{Canceled: true})
		}
		if b.onClose != nil {
			b.onClose(b.id)
		}
	})
}

// send 在会话关闭后直接丢弃消息
func (b *Bridge) send(msg any) {
	b.mu.Lock()
	surface, state := b.surface, b.state
	b.mu.Unlock()
	if surface == nil || state == StateClosed {
		return
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	if err := surface.Send(msg); err != nil {
		b.logger.Printf("[bridge] session %s: send failed: %v", b.id, err)
	}
}
