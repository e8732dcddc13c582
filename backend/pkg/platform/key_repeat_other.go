//go:build !darwin

package platform

import "log"

// EnsureKeyRepeat 只有 macOS 需要处理
func EnsureKeyRepeat(bundleID string, logger *log.Logger) {}
