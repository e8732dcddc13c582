// Package sshproc 管理一个外部 ssh 客户端进程：启动、输出转发、退出状态和终止。
package sshproc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"termssh/backend/internal/types"
	"termssh/backend/pkg/ptyx"
	"termssh/backend/pkg/utils"
)

// ErrClosed 进程已经退出或被终止
var ErrClosed = errors.New("ssh session closed")

type EventKind int

const (
	EventOutput EventKind = iota
	EventExit
)

// Event 从进程发出的事件，输出按到达顺序发送，最后一个一定是 EventExit
type Event struct {
	Kind EventKind
	Data string
	Exit *ExitStatus
}

// ExitStatus 进程退出信息。被信号终止时 Code 为 nil
type ExitStatus struct {
	Code       *int
	Signal     string
	StderrTail string
	Err        error
}

// Options 启动参数
type Options struct {
	// Binary ssh 客户端路径，默认 "ssh"
	Binary string
	// Prefix 放在 ssh 参数之前的参数，比如通过 wsl.exe 运行 ssh 时
	Prefix []string
	// UsePty 在本地伪终端中运行客户端，这样 resize 可以生效
	UsePty bool
	// InitialSize 伪终端初始大小，nil 时使用 80x24
	InitialSize *ptyx.Winsize
	// Env 额外的环境变量，覆盖同名的继承变量
	Env      []string
	TailSize int
	Logger   *log.Logger
}

// Session 拥有一个 ssh 客户端进程
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	pty    ptyx.Pty
	events chan Event
	done   chan struct{}
	tail   *tailBuffer
	logger *log.Logger

	mu       sync.Mutex
	exited   bool
	killOnce sync.Once
}

// Spawn 启动 ssh 客户端。stdout 和 stderr 都作为输出事件转发
func Spawn(cfg types.SessionConfig, opts Options) (*Session, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "ssh"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	args := append(append([]string{}, opts.Prefix...), BuildArgs(cfg.Host, cfg.UseConfigFile, cfg.ConfigPath, cfg.PrivateKeyPath)...)
	cmd := exec.Command(binary, args...)
	cmd.Env = mergeEnv(os.Environ(), append([]string{"TERM=xterm-256color"}, opts.Env...))

	s := &Session{
		cmd:    cmd,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		tail:   newTailBuffer(opts.TailSize),
		logger: logger,
	}

	var err error
	if opts.UsePty {
		err = s.startPty(opts.InitialSize)
	} else {
		err = s.startPipes()
	}
	if err != nil {
		return nil, &types.SpawnError{Binary: binary, Err: describeSpawnError(err)}
	}

	logger.Printf("[sshproc] started %s (pid %d, pty=%t) for %s", binary, cmd.Process.Pid, opts.UsePty, cfg.Host)
	return s, nil
}

func (s *Session) startPipes() error {
	setProcessGroup(s.cmd)

	// 自己创建管道而不是用 StdoutPipe，这样进程退出后可以不等 EOF 就关闭读端
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeFiles(stdinR, stdinW)
		return err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeFiles(stdinR, stdinW, outR, outW)
		return err
	}

	s.cmd.Stdin, s.cmd.Stdout, s.cmd.Stderr = stdinR, outW, errW
	startErr := s.cmd.Start()
	// 子进程已经持有自己的副本
	closeFiles(stdinR, outW, errW)
	if startErr != nil {
		closeFiles(stdinW, outR, errR)
		return startErr
	}
	s.stdin = stdinW

	var wg sync.WaitGroup
	wg.Add(2)
	go s.pump(outR, nil, &wg)
	go s.pump(errR, s.tail, &wg)

	utils.SafeGo(s.logger, func() {
		state, waitErr := s.cmd.Process.Wait()
		// 继承了输出管道的孙进程（比如 ProxyCommand）可能比 ssh 活得久
		drainOutput(&wg, outR, errR)
		_ = stdinW.Close()
		s.finish(state, waitErr)
	})
	return nil
}

func (s *Session) startPty(size *ptyx.Winsize) error {
	if size == nil {
		size = &ptyx.Winsize{Rows: 24, Cols: 80}
	}
	p, err := ptyx.StartWithSize(s.cmd, size)
	if err != nil {
		return err
	}
	s.pty = p
	s.stdin = p.In()

	var wg sync.WaitGroup
	wg.Add(1)
	// 伪终端中 stderr 和 stdout 合并，尾部保存全部输出
	go s.pump(p.Out(), s.tail, &wg)

	utils.SafeGo(s.logger, func() {
		state, waitErr := s.cmd.Process.Wait()
		// unix 上子进程退出后读端会读完剩余输出再返回 EIO；
		// ConPTY 的输出管道要等伪终端关闭才结束
		drainOutput(&wg, p)
		s.finish(state, waitErr)
	})
	return nil
}

// drainTimeout 进程退出后等待剩余输出的最长时间
var drainTimeout = 2 * time.Second

// drainOutput 等读取协程读完剩余输出，超时后关闭读端让它们返回
func drainOutput(wg *sync.WaitGroup, closers ...io.Closer) {
	readerDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(readerDone)
	}()
	select {
	case <-readerDone:
	case <-time.After(drainTimeout):
	}
	for _, c := range closers {
		_ = c.Close()
	}
	<-readerDone
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// pump 读取一个输出流，按 UTF-8 解码后发送，跨块的多字节字符不会被截断
func (s *Session) pump(r io.Reader, tee io.Writer, wg *sync.WaitGroup) {
	defer wg.Done()
	defer utils.Recover(s.logger)

	if tee != nil {
		r = io.TeeReader(r, tee)
	}
	decoded := transform.NewReader(r, unicode.UTF8.NewDecoder())
	buf := make([]byte, 4096)
	for {
		n, err := decoded.Read(buf)
		if n > 0 {
			s.events <- Event{Kind: EventOutput, Data: string(buf[:n])}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
				s.logger.Printf("[sshproc] stream ended: %v", err)
			}
			return
		}
	}
}

// finish 发送退出事件并关闭事件通道
func (s *Session) finish(state *os.ProcessState, waitErr error) {
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()

	status := &ExitStatus{StderrTail: s.tail.String()}
	switch {
	case state != nil && state.Exited():
		code := state.ExitCode()
		status.Code = &code
	case state != nil:
		status.Signal = signalName(state)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		status.Err = waitErr
	}

	s.logger.Printf("[sshproc] pid %d exited: code=%s signal=%q", s.cmd.Process.Pid, formatCode(status.Code), status.Signal)
	s.events <- Event{Kind: EventExit, Exit: status}
	close(s.events)
	close(s.done)
}

// Events 返回事件通道。调用方必须读到通道关闭为止
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done 进程退出且所有事件都已发出后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// StderrTail 返回目前为止 stderr 的尾部
func (s *Session) StderrTail() string {
	return s.tail.String()
}

// Write 原样写入进程的标准输入
func (s *Session) Write(data string) error {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()
	if exited {
		return ErrClosed
	}
	if _, err := io.WriteString(s.stdin, data); err != nil {
		return fmt.Errorf("write to ssh stdin: %w", err)
	}
	return nil
}

// Resize 调整伪终端大小。管道模式下没有效果
func (s *Session) Resize(cols, rows uint16) error {
	if s.pty == nil || cols == 0 || rows == 0 {
		return nil
	}
	return s.pty.Resize(rows, cols)
}

// UsesPty 是否运行在本地伪终端中
func (s *Session) UsesPty() bool {
	return s.pty != nil
}

// Kill 终止进程组，可以重复调用，不等待进程退出
func (s *Session) Kill() {
	if s == nil {
		return
	}
	s.killOnce.Do(func() {
		s.mu.Lock()
		exited := s.exited
		s.mu.Unlock()
		if exited {
			return
		}
		utils.SafeGo(s.logger, func() {
			terminateProcessGroup(s.cmd, s.logger)
		})
	})
}

// mergeEnv 用 extra 覆盖 base 中的同名变量
func mergeEnv(base, extra []string) []string {
	keys := make(map[string]bool, len(extra))
	for _, kv := range extra {
		if k, _, ok := strings.Cut(kv, "="); ok {
			keys[envKey(k)] = true
		}
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok && keys[envKey(k)] {
			continue
		}
		out = append(out, kv)
	}
	return append(out, extra...)
}

func describeSpawnError(err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("ssh client not found, install OpenSSH or set sshPath: %w", err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("ssh client is not executable: %w", err)
	}
	return err
}

func formatCode(code *int) string {
	if code == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *code)
}
