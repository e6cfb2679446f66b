package list

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/services"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active tunnels",
	Run: func(cmd *cobra.Command, args []string) {
		tunnelSvc := services.GetTunnelManager()
		live := tunnelSvc.List()

		if len(live) == 0 {
			fmt.Println("No active tunnels")
			return
		}

		now := time.Now()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Port", "PID", "Session", "Public URL", "TTL")
		for _, rec := range live {
			url := rec.PublicURL
			if url == "" {
				url = "-"
			}
			table.Append([]string{
				strconv.Itoa(rec.Port),
				strconv.Itoa(rec.Pid),
				rec.SessionName,
				url,
				rec.RemainingTTL(now),
			})
		}
		table.Render()
	},
}

func init() {
	root.RootCmd.AddCommand(listCmd)

	listCmd.Example = `  tunnel-keeper list`
}
