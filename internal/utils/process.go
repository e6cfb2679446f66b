package utils

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// IsProcessRunning checks whether a process with the given PID exists.
// Existence check only; never delivers a lethal signal. A process the
// caller lacks permission to signal still counts as running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	return isProcessRunning(pid)
}

// ProcessName returns the short executable name of the given PID, or ""
// when the process is gone or unreadable.
func ProcessName(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

// MatchesProcessName reports whether the PID's executable matches the
// expected name (case-insensitive, processName+pid identifies a process
// so a recycled PID is never mistaken for ours).
func MatchesProcessName(pid int, expected string) bool {
	name := ProcessName(pid)
	if name == "" {
		return false
	}
	return strings.EqualFold(name, expected)
}

/**
 * Kill process gracefully with SIGTERM first, then SIGKILL if needed
 * @param {int} pid - Process ID to kill
 * @param {string} procName - Expected process name, guards against PID reuse
 * @returns {error} Returns error if process killing fails, nil on success
 * @description
 * - Refuses to touch a PID whose executable name no longer matches
 * - First tries to terminate process with SIGTERM (graceful shutdown)
 * - If SIGTERM fails or times out, uses SIGKILL (forceful termination)
 */
func KillProcessGracefully(pid int, procName string) error {
	if !MatchesProcessName(pid, procName) {
		return nil
	}
	return killProcessGracefully(pid, procName)
}
