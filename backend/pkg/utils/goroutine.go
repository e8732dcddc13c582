package utils

import (
	"log"
)

// SafeGo 启动一个 goroutine，panic 不会让整个进程退出
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer Recover(logger)
		fn()
	}()
}
