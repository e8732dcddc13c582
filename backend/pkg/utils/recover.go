package utils

import (
	"log"
	"runtime/debug"
)

// Recover 在 defer 中调用，把 panic 记录为日志并附带调用栈
func Recover(logger *log.Logger) {
	if r := recover(); r != nil {
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("Recovered from panic: %v\n%s", r, debug.Stack())
	}
}
