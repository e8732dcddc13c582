package sshmanager

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"

	"termssh/backend/internal/types"
	"termssh/backend/pkg/pathx"
	"termssh/backend/pkg/sshconfig"
)

// ConfigLocation 配置文件路径的解析结果
type ConfigLocation struct {
	Configured  string `json:"configured"`  // 设置中填写的原始值（已去除首尾空白）
	Effective   string `json:"effective"`   // 展开后的绝对路径
	UsedDefault bool   `json:"usedDefault"` // 设置为空时使用 ~/.ssh/config
}

// DefaultConfigPath 返回 ~/.ssh/config
func DefaultConfigPath() string {
	return pathx.Expand(filepath.Join("~", ".ssh", "config"))
}

// ResolveConfigPath 解析设置中的 sshConfigPath
func ResolveConfigPath(configured string) ConfigLocation {
	trimmed := strings.TrimSpace(configured)
	if trimmed == "" {
		return ConfigLocation{Effective: DefaultConfigPath(), UsedDefault: true}
	}
	return ConfigLocation{Configured: trimmed, Effective: pathx.Expand(trimmed)}
}

// Manager 封装了对 SSH 配置的高级操作
type Manager struct {
	location ConfigLocation
	manager  *sshconfig.SSHConfigManager
	logger   *log.Logger
}

// NewManager 创建一个新的应用层 Manager
// configuredPath 为空时使用默认路径 ~/.ssh/config
func NewManager(configuredPath string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	location := ResolveConfigPath(configuredPath)
	return &Manager{
		location: location,
		manager:  sshconfig.NewManager(location.Effective),
		logger:   logger,
	}
}

func (m *Manager) Location() ConfigLocation {
	return m.location
}

// ConfigExists 配置文件是否存在
func (m *Manager) ConfigExists() bool {
	return m.manager.Exists()
}

// ConfigNotFound 返回配置文件不存在的错误，存在时返回 nil
func (m *Manager) ConfigNotFound() *types.ConfigNotFoundError {
	if m.ConfigExists() {
		return nil
	}
	return &types.ConfigNotFoundError{Path: m.location.Effective, Configured: m.location.Configured}
}

// GetSSHHosts 解析用户的 SSH 配置文件并返回所有主机，文件不存在时返回空列表
func (m *Manager) GetSSHHosts() ([]types.SSHHost, error) {
	entries, err := m.manager.Hosts()
	hosts := make([]types.SSHHost, 0, len(entries))
	for _, e := range entries {
		hosts = append(hosts, types.SSHHost{Alias: e.Alias, DisplayAddress: e.DisplayAddress})
	}
	if err != nil {
		m.logger.Printf("[connect] Failed to parse %s: %v", m.location.Effective, err)
		return hosts, err
	}

	m.logger.Printf("[connect] Successfully parsed %d SSH hosts from %s", len(hosts), m.location.Effective)
	return hosts, nil
}

// ResolveTarget 计算连接目标。来自配置文件时尽量补全 HostName/User，
// 计算失败只影响配色匹配，不影响连接
func (m *Manager) ResolveTarget(target string, isFromConfigFile bool) types.ResolvedTarget {
	resolved := types.ResolvedTarget{
		TargetHost:       strings.TrimSpace(target),
		IsFromConfigFile: isFromConfigFile,
	}
	if !isFromConfigFile {
		return resolved
	}

	eff, err := m.manager.Effective(resolved.TargetHost)
	if err != nil {
		m.logger.Printf("[connect] Could not compute effective config for %s: %v", resolved.TargetHost, err)
	}
	resolved.ResolvedHostName = eff.HostName
	resolved.ResolvedUser = eff.User
	return resolved
}

// Lint 检查配置文件，文件不存在时没有问题
func (m *Manager) Lint() ([]sshconfig.Issue, error) {
	return m.manager.Lint()
}

// KnownHostsPath 和配置文件同目录的 known_hosts
func (m *Manager) KnownHostsPath() string {
	return filepath.Join(filepath.Dir(m.location.Effective), "known_hosts")
}

// KnownHostKeyTypes 返回 known_hosts 中为该主机记录的密钥类型，
// 文件不存在或没有记录时返回空
func (m *Manager) KnownHostKeyTypes(host string) ([]string, error) {
	path := m.KnownHostsPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	kh, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("could not load known_hosts %s: %w", path, err)
	}

	hostWithPort := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		hostWithPort = net.JoinHostPort(host, "22")
	}
	return kh.HostKeyAlgorithms(hostWithPort), nil
}

var (
	ErrEmptyKeyPath   = errors.New("private key path is empty")
	ErrKeyIsDirectory = errors.New("private key path is a directory")
)

// CheckPrivateKey 确认私钥文件存在并且格式可以识别。
// 带密码的私钥也算有效，密码交给 ssh 客户端处理
func CheckPrivateKey(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyKeyPath
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrKeyIsDirectory)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &types.PrivateKeyNotFoundError{Path: path}
		}
		return fmt.Errorf("could not read private key %s: %w", path, err)
	}

	if _, err := ssh.ParseRawPrivateKey(data); err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil
		}
		return fmt.Errorf("unrecognized private key %s: %w", path, err)
	}
	return nil
}
