package gc

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/services"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reclaim stale records, orphan sessions and rogue processes",
	Run: func(cmd *cobra.Command, args []string) {
		reaper := services.NewReaper(services.GetTunnelManager())
		report, err := reaper.Collect()
		if err != nil {
			fmt.Fprintf(os.Stderr, "GC failed: %v\n", err)
			os.Exit(1)
		}

		if report.Empty() {
			fmt.Println("Nothing to clean")
			return
		}
		for _, port := range report.StaleRecords {
			fmt.Printf("Removed stale record for port %d\n", port)
		}
		for _, name := range report.OrphanSessions {
			fmt.Printf("Killed untracked session %s\n", name)
		}
		for _, pid := range report.RogueProcesses {
			fmt.Printf("Killed rogue tunnel process %d\n", pid)
		}
	},
}

func init() {
	root.RootCmd.AddCommand(gcCmd)

	gcCmd.Example = `  tunnel-keeper gc`
}
