//go:build !unix && !linux && !darwin

package utils

func isProcessRunning(pid int) bool {
	panic("isProcessRunning not implemented for this platform")
}

func killProcessGracefully(pid int, procName string) error {
	panic("killProcessGracefully not implemented for this platform")
}
