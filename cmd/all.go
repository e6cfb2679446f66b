package cmd

import (
	_ "tunnel-keeper/cmd/gc"
	_ "tunnel-keeper/cmd/list"
	_ "tunnel-keeper/cmd/logs"
	_ "tunnel-keeper/cmd/root"
	_ "tunnel-keeper/cmd/server"
	_ "tunnel-keeper/cmd/start"
	_ "tunnel-keeper/cmd/status"
	_ "tunnel-keeper/cmd/stop"
)
