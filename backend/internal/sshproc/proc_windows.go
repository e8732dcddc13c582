//go:build windows

package sshproc

import (
	"os"
	"os/exec"
	"strings"
)

func setProcessGroup(cmd *exec.Cmd) {}

// Windows 上进程不会因信号退出
func signalName(state *os.ProcessState) string {
	return ""
}

// 环境变量名不区分大小写
func envKey(k string) string {
	return strings.ToUpper(k)
}
