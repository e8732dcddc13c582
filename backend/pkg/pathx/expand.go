// Package pathx 处理设置项里用户填写的路径。
package pathx

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	envBraceRe   = regexp.MustCompile(`(?i)\$\{env:([^}]+)\}`)
	envDollarRe  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	envPercentRe = regexp.MustCompile(`%([^%]+)%`)
)

// Expand 依次展开 ~、${env:NAME}、$NAME、%NAME%，最后转换为绝对路径。
// 不存在的环境变量替换为空字符串。
func Expand(path string) string {
	expanded := expandHome(path)

	expanded = envBraceRe.ReplaceAllStringFunc(expanded, func(m string) string {
		return lookup(envBraceRe.FindStringSubmatch(m)[1])
	})
	expanded = envDollarRe.ReplaceAllStringFunc(expanded, func(m string) string {
		return lookup(envDollarRe.FindStringSubmatch(m)[1])
	})
	expanded = envPercentRe.ReplaceAllStringFunc(expanded, func(m string) string {
		return lookup(envPercentRe.FindStringSubmatch(m)[1])
	})

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return filepath.Clean(expanded)
	}
	return abs
}

// expandHome 展开家目录路径，"~/x" 和 "~\x" 都可以
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	tail := strings.TrimLeft(path[1:], `/\`)
	return filepath.Join(home, tail)
}

func lookup(name string) string {
	value, _ := os.LookupEnv(name)
	return value
}
