// Package theme 根据连接目标决定终端配色。
package theme

import (
	"strings"

	"termssh/backend/internal/types"
)

// BuiltinColors 所有配置都无效时使用的配色
var BuiltinColors = types.TerminalColors{
	Foreground: "#f0f0f0",
	Background: "#1e1e1e",
}

// Resolve 返回目标对应的配色。
// 按候选列表顺序在 hostColors 中查找第一个有值的项；
// 无效字段依次回退到 defaultColors 和内置配色，结果两个字段都不为空。
func Resolve(target types.ResolvedTarget, defaultColors any, hostColors map[string]any) types.TerminalColors {
	defaults := ParseColors(defaultColors, BuiltinColors)

	for _, candidate := range Candidates(target) {
		hit, ok := hostColors[candidate]
		if !ok || !truthy(hit) {
			continue
		}
		return ParseColors(hit, defaults)
	}
	return defaults
}

// Candidates 按优先级生成候选标识：完整目标、@ 之后的主机部分、
// 配置中的 HostName、User@HostName。后两项只用于配置文件中的主机。
func Candidates(target types.ResolvedTarget) []string {
	var candidates []string
	push := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		for _, c := range candidates {
			if c == value {
				return
			}
		}
		candidates = append(candidates, value)
	}

	host := strings.TrimSpace(target.TargetHost)
	push(host)

	if idx := strings.LastIndex(host, "@"); idx >= 0 {
		push(host[idx+1:])
	}

	if target.IsFromConfigFile {
		push(target.ResolvedHostName)
		if target.ResolvedUser != "" && target.ResolvedHostName != "" {
			push(target.ResolvedUser + "@" + target.ResolvedHostName)
		}
	}

	return candidates
}

// ParseColors 从任意输入中取出配色，不是非空字符串的字段使用 fallback
func ParseColors(value any, fallback types.TerminalColors) types.TerminalColors {
	var fg, bg any
	switch v := value.(type) {
	case map[string]any:
		fg, bg = v["foreground"], v["background"]
	case map[string]string:
		fg, bg = v["foreground"], v["background"]
	case map[any]any:
		fg, bg = v["foreground"], v["background"]
	case types.TerminalColors:
		fg, bg = v.Foreground, v.Background
	case *types.TerminalColors:
		if v == nil {
			return fallback
		}
		fg, bg = v.Foreground, v.Background
	default:
		return fallback
	}

	return types.TerminalColors{
		Foreground: pick(fg, fallback.Foreground),
		Background: pick(bg, fallback.Background),
	}
}

func pick(value any, fallback string) string {
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// truthy 空值（nil、空字符串、false、0）视为没有配置
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case *types.TerminalColors:
		return v != nil
	}
	return true
}
