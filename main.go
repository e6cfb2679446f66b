package main

import (
	"os"

	_ "tunnel-keeper/cmd"
	"tunnel-keeper/cmd/root"
	"tunnel-keeper/internal/config"
	"tunnel-keeper/internal/logger"
)

func main() {
	// Server mode mirrors logs to the console; CLI mode keeps stdout clean
	// for command output.
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLoggerWithMode(&config.Config.Log, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
