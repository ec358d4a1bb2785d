//go:build !linux

package executor

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThreadID falls back to the goroutine id. The dedicated loop
// goroutine never changes, so it identifies the loop as well as a tid would.
func currentThreadID() int {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.Atoi(string(b))
	return id
}

func setThreadName(string) error { return nil }

func setThreadNice(int) error { return nil }
