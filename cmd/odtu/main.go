package main

import (
	"context"

	"odtucli/cmd/odtu/commands"
	"odtucli/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "odtu")
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
