package sshconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Issue 配置检查发现的问题，不影响解析
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Message)
}

// ConfigValidator SSH配置检查器
type ConfigValidator struct {
	lines []string
}

// NewConfigValidator 创建新的配置检查器
func NewConfigValidator(lines []string) *ConfigValidator {
	return &ConfigValidator{
		lines: lines,
	}
}

// Lint 逐行检查配置，收集所有问题而不是遇到第一个就返回
func (v *ConfigValidator) Lint() []Issue {
	var issues []Issue
	seen := make(map[string]int)

	for i, raw := range v.lines {
		lineNumber := i + 1
		line := strings.TrimSuffix(raw, "\r")
		key, value := parseParamLine(line)
		if key == "" {
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			issues = append(issues, v.lintHost(value, lineNumber, seen)...)
		case "include":
			if value == "" {
				issues = append(issues, Issue{lineNumber, "Include directive requires a path"})
			}
		case "match":
			// ssh_config 不支持 Match，主机列表会退回到逐行扫描
			issues = append(issues, Issue{lineNumber, "Match blocks are not supported by the structured parser; hosts are read by line scan"})
		default:
			if msg := v.checkParamValue(key, value); msg != "" {
				issues = append(issues, Issue{lineNumber, msg})
			}
		}
	}

	return issues
}

// lintHost 检查 Host 行，记录重复的别名
func (v *ConfigValidator) lintHost(value string, lineNumber int, seen map[string]int) []Issue {
	names := parseHostNames(value)
	if len(names) == 0 {
		return []Issue{{lineNumber, "Host directive requires at least one hostname"}}
	}

	var issues []Issue
	for _, name := range names {
		if len(name) > 253 {
			issues = append(issues, Issue{lineNumber, fmt.Sprintf("invalid hostname '%s': hostname too long", name)})
			continue
		}
		if isWildcard(name) {
			continue
		}
		if first, ok := seen[name]; ok {
			issues = append(issues, Issue{lineNumber, fmt.Sprintf("duplicate Host '%s' ignored, first defined on line %d", name, first)})
			continue
		}
		seen[name] = lineNumber
	}
	return issues
}

// checkParamValue 检查常见参数的值
func (v *ConfigValidator) checkParamValue(key, value string) string {
	lowerKey := strings.ToLower(key)
	switch lowerKey {
	case "identityfile", "hostname", "user", "proxycommand":
		if value == "" {
			return fmt.Sprintf("%s requires a value", key)
		}
	}

	switch lowerKey {
	case "port":
		if value == "" {
			return ""
		}
		port, err := strconv.Atoi(value)
		if err != nil {
			return "Port must be numeric"
		}
		if port < 1 || port > 65535 {
			return "Port must be between 1 and 65535"
		}
	case "serveraliveinterval", "serveralivemaxcount", "connecttimeout":
		if value != "" && !isNumeric(value) {
			return fmt.Sprintf("%s must be numeric", key)
		}
	case "compression", "tcpkeepalive", "identitiesonly", "forwardagent", "batchmode":
		if value != "" && !isValidYesNo(value) {
			return fmt.Sprintf("%s must be 'yes' or 'no'", key)
		}
	case "stricthostkeychecking":
		if value != "" && !isValidYesNo(value) && !strings.EqualFold(value, "accept-new") && !strings.EqualFold(value, "ask") && !strings.EqualFold(value, "off") {
			return fmt.Sprintf("%s must be 'yes', 'no', 'accept-new' or 'ask'", key)
		}
	}
	return ""
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isValidYesNo(s string) bool {
	lower := strings.ToLower(s)
	return lower == "yes" || lower == "no" || lower == "true" || lower == "false"
}
