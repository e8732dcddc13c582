package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"termssh/backend/internal/settings"
	"termssh/backend/internal/sshmanager"
	"termssh/backend/pkg/sshconfig"
)

// Report 连接问题排查用的环境信息
type Report struct {
	Time           string                    `json:"time"`
	OS             string                    `json:"os"`
	Arch           string                    `json:"arch"`
	SSHBinary      string                    `json:"sshBinary"`
	SSHPath        string                    `json:"sshPath,omitempty"`
	SSHVersion     string                    `json:"sshVersion,omitempty"`
	SSHError       string                    `json:"sshError,omitempty"`
	Config         sshmanager.ConfigLocation `json:"config"`
	ConfigFound    bool                      `json:"configFound"`
	HostCount      int                       `json:"hostCount"`
	Issues         []sshconfig.Issue         `json:"issues"`
	KnownHostsPath string                    `json:"knownHostsPath"`
	Target         string                    `json:"target,omitempty"`
	TargetKeyTypes []string                  `json:"targetKeyTypes,omitempty"`
	DefaultColors  string                    `json:"defaultColors"`
	HostColorCount int                       `json:"hostColorCount"`
	SettingsPath   string                    `json:"settingsPath,omitempty"`
	ListenAddr     string                    `json:"listenAddr,omitempty"`
	ActiveSessions int                       `json:"activeSessions"`
	UsePty         bool                      `json:"usePty"`
}

// Options 收集诊断信息需要的输入
type Options struct {
	Settings     settings.Settings
	SettingsPath string
	Manager      *sshmanager.Manager
	// Target 可选，填写时查询 known_hosts 中该主机的密钥类型
	Target         string
	ListenAddr     string
	ActiveSessions int
	Now            func() time.Time
}

const versionTimeout = 5 * time.Second

// Collect 收集诊断信息。单项失败只记录在报告中，不会返回错误
func Collect(ctx context.Context, opts Options) Report {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	r := Report{
		Time:           now().Format(time.RFC3339),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		SSHBinary:      opts.Settings.SSHBinary(),
		Target:         strings.TrimSpace(opts.Target),
		DefaultColors:  colorsJSON(opts.Settings.DefaultColors),
		HostColorCount: len(opts.Settings.HostColors),
		SettingsPath:   opts.SettingsPath,
		ListenAddr:     opts.ListenAddr,
		ActiveSessions: opts.ActiveSessions,
		UsePty:         opts.Settings.UsePty,
		Issues:         []sshconfig.Issue{},
	}

	r.SSHPath, r.SSHVersion, r.SSHError = probeSSH(ctx, r.SSHBinary)

	m := opts.Manager
	if m == nil {
		m = sshmanager.NewManager(opts.Settings.SSHConfigPath, nil)
	}
	r.Config = m.Location()
	r.ConfigFound = m.ConfigExists()
	r.KnownHostsPath = m.KnownHostsPath()
	if hosts, err := m.GetSSHHosts(); err == nil {
		r.HostCount = len(hosts)
	}
	if issues, err := m.Lint(); err != nil {
		r.Issues = append(r.Issues, sshconfig.Issue{Message: err.Error()})
	} else if issues != nil {
		r.Issues = issues
	}

	if r.Target != "" {
		host := r.Target
		if r.ConfigFound {
			if resolved := m.ResolveTarget(host, true); resolved.ResolvedHostName != "" {
				host = resolved.ResolvedHostName
			}
		}
		if i := strings.LastIndex(host, "@"); i >= 0 {
			host = host[i+1:]
		}
		keyTypes, err := m.KnownHostKeyTypes(host)
		if err != nil {
			r.Issues = append(r.Issues, sshconfig.Issue{Message: err.Error()})
		}
		r.TargetKeyTypes = keyTypes
	}
	return r
}

func colorsJSON(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// probeSSH 查找 ssh 客户端并读取版本（ssh -V 输出在 stderr）
func probeSSH(ctx context.Context, binary string) (path, version, errMsg string) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", "", err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-V").CombinedOutput()
	version = strings.TrimSpace(string(out))
	if err != nil && version == "" {
		return path, "", err.Error()
	}
	return path, version, ""
}

// String 适合写入日志或复制给别人的纯文本格式
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "time: %s\n", r.Time)
	fmt.Fprintf(&b, "os: %s/%s\n", r.OS, r.Arch)
	if r.SSHError != "" {
		fmt.Fprintf(&b, "ssh: %s (error: %s)\n", r.SSHBinary, r.SSHError)
	} else {
		fmt.Fprintf(&b, "ssh: %s (%s)\n", r.SSHPath, r.SSHVersion)
	}

	configured := r.Config.Configured
	if configured == "" {
		configured = "(empty)"
	}
	fmt.Fprintf(&b, "ssh config: %s (setting: %s, usedDefault: %t, found: %t, hosts: %d)\n",
		r.Config.Effective, configured, r.Config.UsedDefault, r.ConfigFound, r.HostCount)
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "  %s\n", issue)
	}
	fmt.Fprintf(&b, "known_hosts: %s\n", r.KnownHostsPath)
	if r.Target != "" {
		keyTypes := "(none)"
		if len(r.TargetKeyTypes) > 0 {
			keyTypes = strings.Join(r.TargetKeyTypes, ", ")
		}
		fmt.Fprintf(&b, "target: %s (known key types: %s)\n", r.Target, keyTypes)
	}
	fmt.Fprintf(&b, "defaultColors: %s\n", r.DefaultColors)
	fmt.Fprintf(&b, "hostColors: %d entries\n", r.HostColorCount)
	if r.SettingsPath != "" {
		fmt.Fprintf(&b, "settings: %s\n", r.SettingsPath)
	}
	if r.ListenAddr != "" {
		fmt.Fprintf(&b, "listen: %s (sessions: %d, pty: %t)\n", r.ListenAddr, r.ActiveSessions, r.UsePty)
	}
	return b.String()
}
