package stop

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/services"
)

var stopCmd = &cobra.Command{
	Use:   "stop [port]",
	Short: "Stop a tunnel, or all tunnels when no port is given",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tunnelSvc := services.GetTunnelManager()

		if len(args) == 0 {
			stopped := tunnelSvc.StopAll()
			if stopped == 0 {
				fmt.Println("No active tunnels")
				return
			}
			fmt.Printf("Stopped %d tunnel(s)\n", stopped)
			return
		}

		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 {
			fmt.Fprintf(os.Stderr, "Error: port must be a positive integer, got %q\n", args[0])
			os.Exit(1)
		}
		if err := tunnelSvc.StopTunnel(port); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Stopped tunnel on port %d\n", port)
	},
}

func init() {
	root.RootCmd.AddCommand(stopCmd)

	stopCmd.Example = `  tunnel-keeper stop 9100
  tunnel-keeper stop`
}
