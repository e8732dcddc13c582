package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSSHBinary  = "ssh"
	DefaultListenAddr = "127.0.0.1:45678"
)

// Settings 用户可配置的选项
type Settings struct {
	SSHConfigPath string         `json:"sshConfigPath" yaml:"sshConfigPath"`
	DefaultColors any            `json:"defaultColors,omitempty" yaml:"defaultColors,omitempty"`
	HostColors    map[string]any `json:"hostColors,omitempty" yaml:"hostColors,omitempty"`
	SSHPath       string         `json:"sshPath,omitempty" yaml:"sshPath,omitempty"`
	UsePty        bool           `json:"usePty" yaml:"usePty"`
	ListenAddr    string         `json:"listenAddr,omitempty" yaml:"listenAddr,omitempty"`
	Language      string         `json:"language,omitempty" yaml:"language,omitempty"`
}

// SSHBinary 返回 ssh 客户端路径，未设置时使用 PATH 中的 ssh
func (s Settings) SSHBinary() string {
	if p := strings.TrimSpace(s.SSHPath); p != "" {
		return p
	}
	return DefaultSSHBinary
}

// Addr 返回 WebSocket 服务监听地址
func (s Settings) Addr() string {
	if a := strings.TrimSpace(s.ListenAddr); a != "" {
		return a
	}
	return DefaultListenAddr
}

// --- 错误类型 ---
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("无法解析设置文件 '%s': %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// --- 设置存储 ---

// Store 基于文件的设置存储，.yaml/.yml 用 YAML，其它用 JSON。
// Load 每次都重新读取文件，不在内存中缓存。
type Store struct {
	path string
	mu   sync.RWMutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath 返回 <UserConfigDir>/TermSSH/settings.json
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "TermSSH", "settings.json"), nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func (s *Store) Load() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// 文件不存在是正常情况
			return out, nil
		}
		return out, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}

	if s.isYAML() {
		err = yaml.Unmarshal(data, &out)
	} else {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return Settings{}, &DecodeError{Path: s.path, Err: err}
	}
	return out, nil
}

func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "  ")
	}
	if err != nil {
		return err
	}
	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o640)
}
