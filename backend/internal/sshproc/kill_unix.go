//go:build !windows

package sshproc

import (
	"log"
	"os/exec"
	"syscall"
	"time"
)

// terminateProcessGroup attempts to gracefully terminate a process group on Unix-like systems.
// It sends SIGTERM first and falls back to SIGKILL if the group is still alive.
func terminateProcessGroup(cmd *exec.Cmd, logger *log.Logger) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// Most likely the process already exited.
		logger.Printf("[sshproc] failed to get pgid for pid %d, process may have already exited: %v", pid, err)
		pgid = pid
	}

	logger.Printf("[sshproc] sending SIGTERM to process group %d", pgid)
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	time.Sleep(250 * time.Millisecond)

	// Signal 0 checks for existence.
	if err := syscall.Kill(-pgid, 0); err != nil {
		logger.Printf("[sshproc] process group %d exited after SIGTERM", pgid)
		return
	}

	logger.Printf("[sshproc] process group %d still alive, sending SIGKILL", pgid)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
