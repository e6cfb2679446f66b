package env

import (
	"os"
	"path/filepath"
)

// (default: %USERPROFILE%/.tunnel-keeper on Windows, $HOME/.tunnel-keeper on Linux)
var KeeperDir string = GetKeeperDir()

/**
 * Get tunnel-keeper directory path
 * @returns {string} Returns tunnel-keeper directory path
 */
func GetKeeperDir() string {
	if dir := os.Getenv("TUNNEL_KEEPER_DIR"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tunnel-keeper")
}

// TunnelsDir returns the directory holding per-port tunnel state files.
func TunnelsDir() string {
	return filepath.Join(KeeperDir, "tunnels")
}
