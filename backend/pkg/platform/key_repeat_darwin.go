//go:build darwin

package platform

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// EnsureKeyRepeat 关闭本应用的长按重音字符弹窗，终端里按住方向键或退格时才能连续输入。
// 只写入应用自己的 defaults，不修改全局设置，下次启动生效
func EnsureKeyRepeat(bundleID string, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	bundleIdentifier := bundleID
	if !strings.Contains(bundleIdentifier, ".") {
		bundleIdentifier = fmt.Sprintf("com.wails.%s", bundleID)
	}

	// 已经是 0 就不用再写
	checkCmd := exec.Command("defaults", "read", bundleIdentifier, "ApplePressAndHoldEnabled")
	output, err := checkCmd.Output()

	if err == nil && strings.TrimSpace(string(output)) == "0" {
		logger.Printf("Key repeat already enabled for %s", bundleIdentifier)
		return
	}

	cmd := exec.Command("defaults", "write", bundleIdentifier, "ApplePressAndHoldEnabled", "-bool", "false")
	err = cmd.Run()

	if err != nil {
		logger.Printf("Could not enable key repeat: %v (run 'defaults write %s ApplePressAndHoldEnabled -bool false' manually)", err, bundleIdentifier)
		return
	}
	logger.Printf("Enabled key repeat for %s, takes effect after restart", bundleIdentifier)
}
