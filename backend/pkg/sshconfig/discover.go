package sshconfig

import (
	"regexp"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry 配置文件中声明的一个主机别名
type HostEntry struct {
	Alias          string `json:"alias"`
	DisplayAddress string `json:"displayAddress"` // user@host 或 host，仅用于展示
}

// Effective 某个别名生效后的参数
type Effective struct {
	HostName string `json:"hostName,omitempty"`
	User     string `json:"user,omitempty"`
}

var (
	trailingCommentRe = regexp.MustCompile(`\s+#.*$`)
	hostLineRe        = regexp.MustCompile(`(?i)^\s*Host\s+(.+)$`)
	userLineRe        = regexp.MustCompile(`(?i)^\s*User\s+(.+)$`)
	hostNameLineRe    = regexp.MustCompile(`(?i)^\s*HostName\s+(.+)$`)
)

// DiscoverHosts 从配置文本中解析出所有主机别名。
// 先用结构化解析，结果为空时再逐行扫描；两者都失败时返回空切片和错误。
// 同名别名只保留第一次出现的。
func DiscoverHosts(text string) ([]HostEntry, error) {
	entries, parseErr := parseStructured(text)
	if len(entries) > 0 {
		return entries, nil
	}

	entries = scanLines(text)
	if len(entries) > 0 {
		return entries, nil
	}

	if parseErr != nil {
		return []HostEntry{}, &ConfigError{"parse", parseErr}
	}
	return []HostEntry{}, nil
}

// ComputeEffective 计算别名对应的 HostName 和 User。
// 结构化解析失败时退回逐行扫描的结果，同时返回解析错误供调用方记录。
func ComputeEffective(text, alias string) (Effective, error) {
	cfg, err := ssh_config.Decode(strings.NewReader(text))
	if err != nil {
		return scanEffective(text, alias), &ConfigError{"parse", err}
	}
	return effectiveFrom(cfg, alias), nil
}

// parseStructured 使用 ssh_config 解析，应用 ssh 自身的覆盖规则
func parseStructured(text string) ([]HostEntry, error) {
	cfg, err := ssh_config.Decode(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	var entries []HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if isWildcard(alias) || seen[alias] {
				continue
			}
			// 否定模式（!name）自己匹配不上自己
			if !host.Matches(alias) {
				continue
			}
			seen[alias] = true
			entries = append(entries, HostEntry{
				Alias:          alias,
				DisplayAddress: displayAddress(alias, effectiveFrom(cfg, alias)),
			})
		}
	}
	return entries, nil
}

func effectiveFrom(cfg *ssh_config.Config, alias string) Effective {
	hostName, _ := cfg.Get(alias, "HostName")
	user, _ := cfg.Get(alias, "User")
	return Effective{
		HostName: strings.TrimSpace(hostName),
		User:     strings.TrimSpace(user),
	}
}

// hostGroup 逐行扫描时累积的一个 Host 块
type hostGroup struct {
	aliases  []string
	user     string
	hostName string
}

// scanLines 逐行扫描 Host 块，只关心 User 和 HostName，块内只记录第一次出现的值
func scanLines(text string) []HostEntry {
	var entries []HostEntry
	seen := make(map[string]bool)

	flush := func(g *hostGroup) {
		for _, alias := range g.aliases {
			if seen[alias] {
				continue
			}
			seen[alias] = true
			entries = append(entries, HostEntry{
				Alias:          alias,
				DisplayAddress: displayAddress(alias, Effective{HostName: g.hostName, User: g.user}),
			})
		}
	}

	for _, group := range scanGroups(text) {
		flush(group)
	}
	return entries
}

// scanEffective 在逐行扫描结果中找到别名第一次出现的块
func scanEffective(text, alias string) Effective {
	for _, group := range scanGroups(text) {
		for _, a := range group.aliases {
			if a == alias {
				return Effective{HostName: group.hostName, User: group.user}
			}
		}
	}
	return Effective{}
}

// scanGroups 把配置文本切分成 Host 块，第一个 Host 之前的行被忽略
func scanGroups(text string) []*hostGroup {
	var groups []*hostGroup
	var current *hostGroup

	for _, rawLine := range strings.Split(text, "\n") {
		line := trailingCommentRe.ReplaceAllString(strings.TrimSuffix(rawLine, "\r"), "")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := hostLineRe.FindStringSubmatch(line); m != nil {
			current = &hostGroup{}
			for _, name := range strings.Fields(m[1]) {
				if !isWildcard(name) {
					current.aliases = append(current.aliases, name)
				}
			}
			groups = append(groups, current)
			continue
		}

		if current == nil || len(current.aliases) == 0 {
			continue
		}

		if m := userLineRe.FindStringSubmatch(line); m != nil {
			if current.user == "" {
				current.user = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := hostNameLineRe.FindStringSubmatch(line); m != nil && current.hostName == "" {
			current.hostName = strings.TrimSpace(m[1])
		}
	}
	return groups
}

// isWildcard 通配符和否定模式不能直接作为连接目标
func isWildcard(pattern string) bool {
	return pattern == "" || strings.ContainsAny(pattern, "*?") || strings.HasPrefix(pattern, "!")
}

func displayAddress(alias string, eff Effective) string {
	host := eff.HostName
	if host == "" {
		host = alias
	}
	if eff.User != "" {
		return eff.User + "@" + host
	}
	return host
}
