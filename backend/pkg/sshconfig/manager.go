package sshconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"termssh/backend/pkg/pathx"
)

// SSHConfigManager 只读的 SSH 配置访问器，每次调用都重新读取文件
type SSHConfigManager struct {
	filename string
}

// ConfigError 配置相关错误
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ssh config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewManager 创建新的配置管理器，路径中的占位符会被展开
func NewManager(filename string) *SSHConfigManager {
	return &SSHConfigManager{
		filename: pathx.Expand(filename),
	}
}

// Path 返回展开后的配置文件路径
func (m *SSHConfigManager) Path() string {
	return m.filename
}

// Exists 配置文件是否存在
func (m *SSHConfigManager) Exists() bool {
	info, err := os.Stat(m.filename)
	return err == nil && !info.IsDir()
}

// LoadFile 读取配置文件内容。文件不存在时 found 为 false，不算错误
func LoadFile(path string) (text string, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &ConfigError{"read", err}
	}
	return string(data), true, nil
}

// Lint 检查配置文本中的可疑写法
func Lint(text string) []Issue {
	return NewConfigValidator(strings.Split(text, "\n")).Lint()
}

// Load 读取配置文件内容，见 LoadFile
func (m *SSHConfigManager) Load() (text string, found bool, err error) {
	return LoadFile(m.filename)
}

// Hosts 列出配置文件中的所有主机，任何情况下都返回非 nil 的切片
func (m *SSHConfigManager) Hosts() ([]HostEntry, error) {
	text, found, err := m.Load()
	if err != nil {
		return []HostEntry{}, err
	}
	if !found {
		return []HostEntry{}, nil
	}
	return DiscoverHosts(text)
}

// Effective 计算别名的 HostName/User，文件不存在时返回空值
func (m *SSHConfigManager) Effective(alias string) (Effective, error) {
	text, found, err := m.Load()
	if err != nil || !found {
		return Effective{}, err
	}
	return ComputeEffective(text, alias)
}

// Lint 检查配置文件中的可疑写法
func (m *SSHConfigManager) Lint() ([]Issue, error) {
	text, found, err := m.Load()
	if err != nil || !found {
		return nil, err
	}
	return Lint(text), nil
}

// Helper functions

// parseHostNames 解析Host行中的主机名列表
func parseHostNames(hostLine string) []string {
	var names []string

	fields := strings.Fields(hostLine)
	for _, field := range fields {
		// 移除首尾的引号
		trimmed := strings.Trim(field, "\"'")
		if trimmed != "" {
			names = append(names, trimmed)
		}
	}

	return names
}

// parseParamLine 解析参数行，支持 key value 和 key=value
func parseParamLine(line string) (key, value string) {
	line = strings.TrimSpace(trailingCommentRe.ReplaceAllString(line, ""))
	if line == "" || strings.HasPrefix(line, "#") {
		return "", ""
	}

	idx := strings.IndexAny(line, " \t=")
	if idx < 0 {
		return line, ""
	}
	key = line[:idx]
	value = strings.TrimSpace(line[idx:])
	value = strings.TrimSpace(strings.TrimPrefix(value, "="))
	return key, value
}
