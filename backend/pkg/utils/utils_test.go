package utils

import (
	"log"
	"strings"
	"testing"
	"time"
)

type chanWriter chan string

func (c chanWriter) Write(p []byte) (int, error) {
	c <- string(p)
	return len(p), nil
}

// TestSafeGo 测试 goroutine 中的 panic 被记录而不是让测试崩溃
func TestSafeGo(t *testing.T) {
	w := make(chanWriter, 1)
	SafeGo(log.New(w, "", 0), func() {
		panic("boom")
	})

	select {
	case msg := <-w:
		if !strings.HasPrefix(msg, "Recovered from panic: boom") {
			t.Errorf("unexpected log %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("panic was not logged")
	}
}

// TestRecover_NoPanic 测试没有 panic 时什么也不记录
func TestRecover_NoPanic(t *testing.T) {
	w := make(chanWriter, 1)
	func() {
		defer Recover(log.New(w, "", 0))
	}()
	if len(w) != 0 {
		t.Errorf("nothing should be logged, got %q", <-w)
	}
}
