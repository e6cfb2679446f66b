package server

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tunnel-keeper/cmd/root"
	"tunnel-keeper/controllers"
	"tunnel-keeper/internal/config"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the local REST/metrics server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(); err != nil {
			log.Fatal(err)
		}
	},
}

func startServer() error {
	gin.SetMode(config.Config.Server.Mode)
	router := gin.Default()

	apiController := controllers.NewAPIController()
	apiController.RegisterRoutes(router)

	return router.Run(config.Config.Server.Address)
}

func init() {
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Example = `  tunnel-keeper server`
}
