//go:build windows

package sshproc

import (
	"fmt"
	"log"
	"os/exec"
)

// terminateProcessGroup terminates the client and its whole process tree with taskkill.
func terminateProcessGroup(cmd *exec.Cmd, logger *log.Logger) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	logger.Printf("[sshproc] taskkill process tree with PID %d", pid)

	// /T 连同子进程一起结束，/F 强制
	killCmd := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", pid))
	if err := killCmd.Run(); err != nil {
		logger.Printf("[sshproc] taskkill for PID %d failed: %v", pid, err)
	}
}
