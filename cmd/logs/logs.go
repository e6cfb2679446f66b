package logs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/services"
)

var logsCmd = &cobra.Command{
	Use:   "logs <port>",
	Short: "Print the captured output of a tunnel process",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 {
			fmt.Fprintf(os.Stderr, "Error: port must be a positive integer, got %q\n", args[0])
			os.Exit(1)
		}

		tunnelSvc := services.GetTunnelManager()
		output, err := tunnelSvc.Logs(port)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(output)
	},
}

func init() {
	root.RootCmd.AddCommand(logsCmd)

	logsCmd.Example = `  tunnel-keeper logs 9100`
}
