package status

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/services"
)

var statusCmd = &cobra.Command{
	Use:   "status <port>",
	Short: "Show the state of one tunnel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 {
			fmt.Fprintf(os.Stderr, "Error: port must be a positive integer, got %q\n", args[0])
			os.Exit(1)
		}

		tunnelSvc := services.GetTunnelManager()
		rec, live, err := tunnelSvc.Status(port)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !live {
			fmt.Printf("Tunnel on port %d is not running (stale record removed)\n", port)
			return
		}

		fmt.Printf("Port:       %d\n", rec.Port)
		fmt.Printf("PID:        %d\n", rec.Pid)
		fmt.Printf("Session:    %s\n", rec.SessionName)
		if rec.PublicURL != "" {
			fmt.Printf("Public URL: %s\n", rec.PublicURL)
		} else {
			fmt.Printf("Public URL: not assigned yet\n")
		}
		fmt.Printf("TTL:        %s\n", rec.RemainingTTL(time.Now()))
	},
}

func init() {
	root.RootCmd.AddCommand(statusCmd)

	statusCmd.Example = `  tunnel-keeper status 9100`
}
