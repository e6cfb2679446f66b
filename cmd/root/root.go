package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "tunnel-keeper",
	Short: "Manage short-lived public tunnels for local ports",
	Long: `tunnel-keeper spawns an external tunnel process per local port inside an
isolated tmux session, tracks it with flat per-port state files, enforces a
concurrency cap and a TTL, and reclaims state left behind by crashes.`,
}
