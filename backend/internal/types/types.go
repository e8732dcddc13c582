package types

import (
	"fmt"
	"path/filepath"
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"` // e.g., "SUCCESS", "ERROR", "INFO"
	Message   string `json:"message"`
}

// SSHHost 代表一个从 ssh config 文件中解析出的主机条目
type SSHHost struct {
	Alias          string `json:"alias"`          // Host 别名, e.g., "my-server"
	DisplayAddress string `json:"displayAddress"` // 展示用, e.g., "root@192.168.1.100"
}

// TerminalColors 终端前景色/背景色，解析后两个字段都不为空
type TerminalColors struct {
	Foreground string `json:"foreground" yaml:"foreground"`
	Background string `json:"background" yaml:"background"`
}

// ResolvedTarget 连接目标以及它的来源
type ResolvedTarget struct {
	TargetHost       string `json:"targetHost"`
	IsFromConfigFile bool   `json:"isFromConfigFile"`
	ResolvedHostName string `json:"resolvedHostName,omitempty"` // 仅当来自配置文件且能计算出时填充
	ResolvedUser     string `json:"resolvedUser,omitempty"`
}

// SessionConfig 一次连接尝试的启动参数，创建后不再修改，按值传递
type SessionConfig struct {
	Host           string         `json:"host"`
	UseConfigFile  bool           `json:"useConfigFile"`
	ConfigPath     string         `json:"configPath,omitempty"`
	PrivateKeyPath string         `json:"privateKeyPath,omitempty"`
	Colors         TerminalColors `json:"colors"`
}

type TerminalSessionInfo struct {
	ID     string         `json:"id"`
	Target string         `json:"target"`
	URL    string         `json:"url"`
	Colors TerminalColors `json:"colors"`
}

// ConnectionExit 会话结束时交给上层的信息。Error 不为空表示进程没有启动成功，
// Canceled 表示显示端在 ready 之前就关闭了，进程从未启动
type ConnectionExit struct {
	SessionID  string        `json:"sessionId"`
	Target     string        `json:"target"`
	Code       *int          `json:"code"`
	Signal     string        `json:"signal,omitempty"`
	StderrTail string        `json:"-"`
	Error      string        `json:"error,omitempty"`
	Canceled   bool          `json:"canceled,omitempty"`
	Config     SessionConfig `json:"-"`
}

type ConnectionResult struct {
	Success        bool                 `json:"success"`
	ErrorMessage   string               `json:"errorMessage,omitempty"`
	Session        *TerminalSessionInfo `json:"session,omitempty"`
	ConfigNotFound *ConfigNotFoundError `json:"configNotFound,omitempty"`
}

// ConfigNotFoundError 表示选择了配置文件中的主机，但配置文件不存在
type ConfigNotFoundError struct {
	Path       string `json:"path"`
	Configured string `json:"configured"`
}

func (e *ConfigNotFoundError) Error() string {
	configured := e.Configured
	if configured == "" {
		configured = "(empty)"
	}
	return fmt.Sprintf("ssh config file not found: %s (setting: sshConfigPath='%s')", e.Path, configured)
}

// PrivateKeyNotFoundError 重试时选择的私钥文件不存在
type PrivateKeyNotFoundError struct {
	Path string
}

func (e *PrivateKeyNotFoundError) Error() string {
	return fmt.Sprintf("private key file not found: %s", e.Path)
}

// SpawnError 无法启动 ssh 客户端进程
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", filepath.Base(e.Binary), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
