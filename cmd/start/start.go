package start

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/internal/models"
	"tunnel-keeper/services"
)

var (
	startProtocol string
	startTTL      string
)

var startCmd = &cobra.Command{
	Use:   "start <port>",
	Short: "Start a tunnel exposing a local port",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 {
			fmt.Fprintf(os.Stderr, "Error: port must be a positive integer, got %q\n", args[0])
			os.Exit(1)
		}

		tunnelSvc := services.GetTunnelManager()
		rec, already, err := tunnelSvc.StartTunnel(port, services.StartOptions{
			Protocol: startProtocol,
			TTL:      startTTL,
		})
		if err != nil {
			var limitErr *services.LimitError
			if errors.As(err, &limitErr) {
				fmt.Fprintf(os.Stderr, "Error: %s\n", limitErr.Error())
				fmt.Fprintln(os.Stderr, "Currently active:")
				for _, live := range limitErr.Live {
					fmt.Fprintf(os.Stderr, "  port %d (PID: %d, url: %s)\n", live.Port, live.Pid, live.PublicURL)
				}
				fmt.Fprintln(os.Stderr, "Stop one with: tunnel-keeper stop <port>")
				os.Exit(1)
			}
			if errors.Is(err, models.ErrInvalidTTL) {
				fmt.Fprintf(os.Stderr, "Error: %v (expected N followed by h, m or s, or \"forever\")\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Failed to start tunnel: %v\n", err)
			os.Exit(1)
		}

		if already {
			fmt.Printf("Tunnel on port %d already running (PID: %d)\n", rec.Port, rec.Pid)
		} else {
			fmt.Printf("Started tunnel on port %d (PID: %d)\n", rec.Port, rec.Pid)
		}
		if rec.PublicURL != "" {
			fmt.Printf("Public URL: %s\n", rec.PublicURL)
		} else {
			fmt.Println("Public URL: not assigned yet, check again with: tunnel-keeper status", port)
		}
		fmt.Printf("TTL: %s\n", rec.RemainingTTL(time.Now()))
	},
}

func init() {
	startCmd.Flags().SortFlags = false
	startCmd.Flags().StringVarP(&startProtocol, "protocol", "P", "", "Local protocol, http or https (default http)")
	startCmd.Flags().StringVarP(&startTTL, "ttl", "t", "", "Time to live, N[h|m|s] or forever (default from config)")

	root.RootCmd.AddCommand(startCmd)

	startCmd.Example = `  # expose local port 9100 for the default two hours
  tunnel-keeper start 9100

  # https upstream, expire after 30 minutes
  tunnel-keeper start 9100 --protocol https --ttl 30m`
}
