//go:build linux

package executor

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func currentThreadID() int {
	return unix.Gettid()
}

// setThreadName names the calling OS thread. The kernel keeps 15 bytes.
func setThreadName(name string) error {
	if len(name) > 15 {
		name = name[:15]
	}
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return fmt.Errorf("thread name %q: %w", name, err)
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PR_SET_NAME): %w", err)
	}
	return nil
}

// setThreadNice applies nice to the calling OS thread only.
func setThreadNice(nice int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice); err != nil {
		return fmt.Errorf("setpriority(%d): %w", nice, err)
	}
	return nil
}
