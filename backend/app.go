package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"termssh/backend/internal/diagnostics"
	"termssh/backend/internal/i18n"
	"termssh/backend/internal/settings"
	"termssh/backend/internal/sshmanager"
	"termssh/backend/internal/sshproc"
	"termssh/backend/internal/theme"
	"termssh/backend/internal/types"
	"termssh/backend/internal/watcher"
	"termssh/backend/pkg/pathx"
	"termssh/backend/pkg/utils"
	"termssh/backend/service/terminal"
)

// 发送给前端的事件
const (
	EventConnected        = "terminal:connected"
	EventConnectionFailed = "terminal:connection-failed"
	EventRetrySuggested   = "terminal:retry-suggested"
	EventExited           = "terminal:exited"
	EventConfigChanged    = "sshconfig:changed"
	EventLog              = "log_event"
)

// 连接中提示的最短显示时间
const connectedNoticeDelay = time.Second

// RetrySuggestion 公钥认证失败后提示用户选择私钥
type RetrySuggestion struct {
	SessionID string `json:"sessionId"`
	Target    string `json:"target"`
	Message   string `json:"message"`
	Action    string `json:"action"`
}

// App struct
type App struct {
	ctx        context.Context
	store      *settings.Store
	watcherSvc *watcher.Service

	Terminal *terminal.Service

	// 等待用户选择私钥的会话，每个只能重试一次
	pendingRetries map[string]types.SessionConfig
	watchedConfig  string
	mu             sync.Mutex

	// emitter 为 nil 时使用 runtime.EventsEmit
	emitter func(name string, data ...any)

	isQuitting bool // 内部状态标志
	isDebug    bool
	isMacOS    bool
}

// NewApp creates a new App application struct
func NewApp(isDebug, isMacOS bool) *App {
	return &App{
		ctx:            context.Background(),
		isDebug:        isDebug,
		isMacOS:        isMacOS,
		pendingRetries: make(map[string]types.SessionConfig),
	}
}

func (a *App) Ctx() context.Context {
	return a.ctx
}

func (a *App) IsDebug() bool {
	return a.isDebug
}

func (a *App) IsQuitting() bool {
	return a.isQuitting
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.isQuitting = false

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("无法获取用户配置目录: %v", err)
	}
	a.setupLogFile(filepath.Join(userConfigDir, "TermSSH"))
	log.Println("-------------------- App Starting --------------------")

	settingsPath, err := settings.DefaultPath()
	if err != nil {
		log.Fatalf("无法确定设置文件路径: %v", err)
	}
	a.store = settings.NewStore(settingsPath)
	cfg := a.loadSettings()

	a.Terminal = a.newTerminalService(cfg.Addr())
	if err := a.Terminal.Startup(ctx); err != nil {
		log.Printf("警告: 终端服务启动失败: %v", err)
	}

	a.watcherSvc, err = watcher.New(ctx, log.Default())
	if err != nil {
		log.Printf("警告: %v", err)
		return
	}
	go a.watcherSvc.Start()
	a.watchFiles(cfg)
}

// setupLogFile 把日志写到 app.log，开发模式下同时输出到终端
func (a *App) setupLogFile(logDir string) {
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		log.Printf("警告: 创建日志目录失败: %v", err)
		return
	}
	logFilePath := filepath.Join(logDir, "app.log")
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
	if err != nil {
		log.Printf("警告: 打开日志文件失败: %v", err)
		return
	}
	fmt.Printf("运行模式: debug=%t, 日志文件路径: %s\n", a.isDebug, logFilePath)
	if a.isDebug {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	} else {
		log.SetOutput(logFile)
	}
}

func (a *App) newTerminalService(addr string) *terminal.Service {
	return terminal.NewService(terminal.Options{
		Addr:           addr,
		ProcessOptions: a.processOptions,
		OnStart:        a.handleStart,
		OnExit:         a.handleExit,
		Logger:         log.Default(),
	})
}

// processOptions 每次启动进程时读取最新设置
func (a *App) processOptions() sshproc.Options {
	s := a.loadSettings()
	return sshproc.Options{
		Binary: s.SSHBinary(),
		UsePty: s.UsePty,
		Logger: log.Default(),
	}
}

// watchFiles 监控 ssh 配置和设置文件，变化时通知前端刷新主机列表
func (a *App) watchFiles(cfg settings.Settings) {
	if a.watcherSvc == nil {
		return
	}
	notify := func(path string) {
		log.Printf("[connect] %s changed, reloading host list", path)
		a.emitEvent(EventConfigChanged, path)
	}

	if err := a.watcherSvc.Watch(a.store.Path(), func(path string) {
		a.watchSSHConfig(a.loadSettings(), notify)
		notify(path)
	}); err != nil {
		log.Printf("警告: 无法监控设置文件: %v", err)
	}
	a.watchSSHConfig(cfg, notify)
}

// watchSSHConfig sshConfigPath 改变后切换监控的文件
func (a *App) watchSSHConfig(cfg settings.Settings, notify watcher.Handler) {
	path := sshmanager.ResolveConfigPath(cfg.SSHConfigPath).Effective

	a.mu.Lock()
	defer a.mu.Unlock()
	if path == a.watchedConfig {
		return
	}
	if a.watchedConfig != "" {
		a.watcherSvc.Unwatch(a.watchedConfig)
	}
	a.watchedConfig = ""
	if err := a.watcherSvc.Watch(path, notify); err != nil {
		log.Printf("警告: 无法监控 ssh 配置文件 %s: %v", path, err)
		return
	}
	a.watchedConfig = path
}

// Shutdown is called when the app terminates.
func (a *App) Shutdown(ctx context.Context) {
	log.Println("app shutdown")
	if a.watcherSvc != nil {
		a.watcherSvc.Stop()
	}
	if a.Terminal != nil {
		a.Terminal.Shutdown()
	}
}

// OnBeforeClose is called when the user attempts to close the window.
func (a *App) OnBeforeClose(ctx context.Context) (prevent bool) {
	if !a.isMacOS || a.isQuitting {
		return false
	}
	// 用户点击 'X'，交给前端确认
	runtime.EventsEmit(ctx, "app:request-quit")
	return true
}

func (a *App) Menu(appMenu *menu.Menu) {
	fileMenu := appMenu.AddSubmenu("File")
	if a.isMacOS {
		fileMenu.AddText("Quit TermSSH", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
			runtime.Quit(a.ctx)
		})
	} else {
		fileMenu.AddText("Exit", keys.OptionOrAlt("f4"), func(_ *menu.CallbackData) {
			runtime.Quit(a.ctx)
		})
	}

	viewMenu := appMenu.AddSubmenu("View")
	zoomIn, zoomOut := keys.CmdOrCtrl("+"), keys.CmdOrCtrl("-")
	zoomInLabel, zoomOutLabel, resetLabel := "Zoom In", "Zoom Out", "Actual Size"
	if !a.isMacOS {
		// 终端里 Ctrl+- 等组合键会被远端程序使用
		zoomIn, zoomOut = keys.CmdOrCtrl("]"), keys.CmdOrCtrl("[")
		zoomInLabel, zoomOutLabel, resetLabel = "Zoom In\tCtrl+]", "Zoom Out\tCtrl+[", "Actual Size\tCtrl+0"
	}
	viewMenu.AddText(zoomOutLabel, zoomOut, func(_ *menu.CallbackData) {
		runtime.EventsEmit(a.ctx, "zoom_change", "small")
	})
	viewMenu.AddText(zoomInLabel, zoomIn, func(_ *menu.CallbackData) {
		runtime.EventsEmit(a.ctx, "zoom_change", "large")
	})
	viewMenu.AddText(resetLabel, keys.CmdOrCtrl("0"), func(_ *menu.CallbackData) {
		runtime.EventsEmit(a.ctx, "zoom_change", "default")
	})

	toolsMenu := appMenu.AddSubmenu("Tools")
	toolsMenu.AddText("Diagnose", nil, func(_ *menu.CallbackData) {
		report, _ := a.Diagnose("")
		log.Printf("[connect] diagnostics:\n%s", report)
		runtime.EventsEmit(a.ctx, "diagnostics:report", report)
	})
}

// --- 设置 ---

// loadSettings 读取失败时使用默认值，只记录日志
func (a *App) loadSettings() settings.Settings {
	if a.store == nil {
		return settings.Settings{}
	}
	s, err := a.store.Load()
	if err != nil {
		log.Printf("警告: 加载设置失败: %v", err)
	}
	return s
}

func (a *App) GetSettings() (settings.Settings, error) {
	return a.store.Load()
}

func (a *App) SaveSettings(s settings.Settings) error {
	return a.store.Save(s)
}

func (a *App) printer() *i18n.Printer {
	return i18n.NewPrinter(i18n.Resolve(a.loadSettings().Language, i18n.SystemLanguage()))
}

// GetUIMessages 返回当前语言下的界面文案
func (a *App) GetUIMessages() map[string]string {
	return a.printer().UIMessages()
}

// --- 主机和连接 ---

// GetSSHHosts 返回配置文件中的主机，文件不存在时返回空列表
func (a *App) GetSSHHosts() ([]types.SSHHost, error) {
	mgr := sshmanager.NewManager(a.loadSettings().SSHConfigPath, log.Default())
	hosts, err := mgr.GetSSHHosts()
	if err != nil {
		a.emitLog("ERROR", a.printer().Sprintf(i18n.ReadConfigError, err))
	}
	return hosts, nil
}

// ConnectInTerminal 为目标创建一个终端会话。isFromConfigFile 表示目标是配置文件中的别名
func (a *App) ConnectInTerminal(target string, isFromConfigFile bool) (*types.ConnectionResult, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return &types.ConnectionResult{Success: false, ErrorMessage: "target host is empty"}, nil
	}

	s := a.loadSettings()
	mgr := sshmanager.NewManager(s.SSHConfigPath, log.Default())
	loc := mgr.Location()
	log.Printf("[connect] ssh config: configured=%q effective=%q usedDefault=%t", loc.Configured, loc.Effective, loc.UsedDefault)

	if isFromConfigFile {
		if nf := mgr.ConfigNotFound(); nf != nil {
			log.Printf("[connect] %v", nf)
			msg := a.printer().Sprintf(i18n.SSHConfigNotFound, nf.Path)
			a.emitLog("ERROR", msg)
			return &types.ConnectionResult{Success: false, ErrorMessage: msg, ConfigNotFound: nf}, nil
		}
	}

	resolved := mgr.ResolveTarget(target, isFromConfigFile)
	colors := theme.Resolve(resolved, s.DefaultColors, s.HostColors)
	cfg := types.SessionConfig{
		Host:          resolved.TargetHost,
		UseConfigFile: isFromConfigFile,
		Colors:        colors,
	}
	if isFromConfigFile {
		cfg.ConfigPath = loc.Effective
	}
	a.logKnownHosts(mgr, resolved)
	a.dropPendingRetries(cfg.Host)
	return a.launch(cfg), nil
}

// RetryWithPrivateKey 用私钥重新连接认证失败的会话，每个会话只能重试一次
// 选择框取消时 keyPath 为空，这时保留待重试状态
func (a *App) RetryWithPrivateKey(sessionID, keyPath string) (*types.ConnectionResult, error) {
	keyPath = strings.TrimSpace(keyPath)
	if keyPath == "" {
		return &types.ConnectionResult{Success: false, ErrorMessage: sshmanager.ErrEmptyKeyPath.Error()}, nil
	}

	a.mu.Lock()
	prev, ok := a.pendingRetries[sessionID]
	delete(a.pendingRetries, sessionID)
	a.mu.Unlock()
	if !ok {
		return &types.ConnectionResult{Success: false, ErrorMessage: fmt.Sprintf("no retry pending for session %s", sessionID)}, nil
	}

	p := a.printer()
	expanded := pathx.Expand(keyPath)
	if err := sshmanager.CheckPrivateKey(expanded); err != nil {
		var notFound *types.PrivateKeyNotFoundError
		if errors.As(err, &notFound) {
			msg := p.Sprintf(i18n.PrivateKeyNotFound, notFound.Path)
			log.Printf("[connect] %v", err)
			a.emitLog("ERROR", msg)
			return &types.ConnectionResult{Success: false, ErrorMessage: msg}, nil
		}
		if errors.Is(err, sshmanager.ErrKeyIsDirectory) {
			msg := p.Sprintf(i18n.PrivateKeyInvalid, err)
			log.Printf("[connect] %v", err)
			a.emitLog("ERROR", msg)
			return &types.ConnectionResult{Success: false, ErrorMessage: msg}, nil
		}
		// 格式无法识别时仍然交给 ssh 客户端尝试
		log.Printf("[connect] warning: %v", err)
		a.emitLog("WARN", p.Sprintf(i18n.PrivateKeyInvalid, err))
	}

	cfg := types.SessionConfig{
		Host:           prev.Host,
		PrivateKeyPath: expanded,
		Colors:         prev.Colors,
	}
	return a.launch(cfg), nil
}

// SelectPrivateKey 打开文件选择框，返回展开后的绝对路径；取消时返回空字符串
func (a *App) SelectPrivateKey() (string, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:                a.printer().Sprintf(i18n.SelectPrivateKeyDialog),
		DefaultDirectory:     pathx.Expand("~/.ssh"),
		ShowHiddenFiles:      true,
		CanCreateDirectories: false,
	})
	if err != nil || path == "" {
		return "", err
	}
	return pathx.Expand(path), nil
}

// SetSessionColors 更新一个活动会话的配色
func (a *App) SetSessionColors(sessionID string, colors types.TerminalColors) error {
	return a.Terminal.SetColors(sessionID, colors)
}

// CloseSession 关闭会话并终止 ssh 进程，同时放弃未处理的重试提示
func (a *App) CloseSession(sessionID string) {
	a.mu.Lock()
	delete(a.pendingRetries, sessionID)
	a.mu.Unlock()
	a.Terminal.CloseSession(sessionID)
}

// dropPendingRetries 同一目标重新连接后，旧的重试提示不再有效
func (a *App) dropPendingRetries(target string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, cfg := range a.pendingRetries {
		if cfg.Host == target {
			delete(a.pendingRetries, id)
		}
	}
}

// PendingRetries 返回等待选择私钥的会话数量
func (a *App) PendingRetries() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pendingRetries)
}

// Diagnose 收集排查连接问题用的信息，target 可以为空
func (a *App) Diagnose(target string) (diagnostics.Report, error) {
	s := a.loadSettings()
	opts := diagnostics.Options{
		Settings: s,
		Manager:  sshmanager.NewManager(s.SSHConfigPath, log.Default()),
		Target:   target,
	}
	if a.store != nil {
		opts.SettingsPath = a.store.Path()
	}
	if a.Terminal != nil {
		opts.ListenAddr = a.Terminal.Addr()
		opts.ActiveSessions = a.Terminal.ActiveSessions()
	}
	return diagnostics.Collect(a.ctx, opts), nil
}

// launch 创建会话并记录连接日志，私钥只记录文件名
func (a *App) launch(cfg types.SessionConfig) *types.ConnectionResult {
	colorsJSON, _ := json.Marshal(cfg.Colors)
	keyName := ""
	if cfg.PrivateKeyPath != "" {
		keyName = filepath.Base(cfg.PrivateKeyPath)
	}
	log.Printf("[connect] target=%s isFromConfigFile=%t privateKeyProvided=%t key=%s colors=%s",
		cfg.Host, cfg.UseConfigFile, cfg.PrivateKeyPath != "", keyName, colorsJSON)

	info := a.Terminal.StartSession(cfg)
	a.emitLog("INFO", a.printer().Sprintf(i18n.Connecting, cfg.Host))
	return &types.ConnectionResult{Success: true, Session: info}
}

func (a *App) logKnownHosts(mgr *sshmanager.Manager, target types.ResolvedTarget) {
	host := target.ResolvedHostName
	if host == "" {
		host = target.TargetHost
		if i := strings.LastIndex(host, "@"); i >= 0 {
			host = host[i+1:]
		}
	}
	keyTypes, err := mgr.KnownHostKeyTypes(host)
	if err != nil {
		log.Printf("[connect] %v", err)
		return
	}
	if len(keyTypes) > 0 {
		log.Printf("[connect] known_hosts has %s for %s", strings.Join(keyTypes, ","), host)
	}
}

// handleStart 进程启动后至少显示一秒“连接中”再通知前端
func (a *App) handleStart(sessionID string) {
	utils.SafeGo(log.Default(), func() {
		time.Sleep(connectedNoticeDelay)
		b, ok := a.Terminal.Session(sessionID)
		if !ok || b.State() != terminal.StateStreaming {
			return
		}
		a.emitEvent(EventConnected, sessionID)
		a.emitLog("SUCCESS", a.printer().Sprintf(i18n.Connected, b.Config().Host))
	})
}

// handleExit 会话结束时通知前端，像是公钥认证失败时提示选择私钥
func (a *App) handleExit(exit types.ConnectionExit) {
	code := "null"
	if exit.Code != nil {
		code = fmt.Sprintf("%d", *exit.Code)
	}
	log.Printf("[connect] session %s (%s) exited: code=%s signal=%s error=%s", exit.SessionID, exit.Target, code, exit.Signal, exit.Error)
	a.emitEvent(EventExited, exit)

	if exit.Error != "" {
		a.emitEvent(EventConnectionFailed, exit)
		a.emitLog("ERROR", exit.Error)
		return
	}
	if !terminal.ShouldOfferRetry(exit) {
		return
	}

	a.mu.Lock()
	a.pendingRetries[exit.SessionID] = exit.Config
	a.mu.Unlock()

	p := a.printer()
	a.emitEvent(EventRetrySuggested, RetrySuggestion{
		SessionID: exit.SessionID,
		Target:    exit.Target,
		Message:   p.Sprintf(i18n.PrivateKeyRetryPrompt, exit.Target),
		Action:    p.Sprintf(i18n.PrivateKeyRetryAction),
	})
}

// --- 日志 ---

// LogFromFrontend 接收一个结构化的 LogEntry 对象
func (a *App) LogFromFrontend(entry types.LogEntry) {
	timestamp := entry.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format("15:04:05")
	}
	log.Printf("[FRONTEND] [%s] [%s] %s", timestamp, entry.Level, entry.Message)
}

func (a *App) emitLog(level, message string) {
	entry := types.LogEntry{
		Timestamp: time.Now().Format("15:04:05"),
		Level:     level,
		Message:   message,
	}
	a.emitEvent(EventLog, entry)
}

func (a *App) emitEvent(name string, data ...any) {
	if a.emitter != nil {
		a.emitter(name, data...)
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

// ForceQuit 强制退出应用程序
func (a *App) ForceQuit() {
	log.Println("ForceQuit called from frontend. Setting quit flag and exiting.")
	a.isQuitting = true
	runtime.Quit(a.ctx)
}
