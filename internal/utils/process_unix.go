//go:build unix || linux || darwin

package utils

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

func isProcessRunning(pid int) bool {
	// On Unix, kill with signal 0 checks process existence without
	// sending a signal. EPERM means the process exists but belongs to
	// someone else; it still exists.
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func killProcessGracefully(pid int, procName string) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %s (PID: %d): %v", procName, pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err == nil {
		for i := 0; i < 10; i++ {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	// SIGTERM failed or timed out, force kill
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process %s (PID: %d): %v", procName, pid, err)
	}
	return nil
}
