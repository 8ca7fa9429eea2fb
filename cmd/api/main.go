package main

import (
	"log/slog"
	"os"

	"quorum/internal/app/bootstrap"
)

// @title Quorum Vote Coordination API
// @version 1.0
// @description Identity resolution, exactly-once vote casting, and live tally broadcast.
// @BasePath /
func main() {
	app, err := bootstrap.BuildAPI()
	if err != nil {
		slog.Error("api bootstrap failed",
			"event", "api_bootstrap_failed",
			"module", "cmd/api",
			"layer", "main",
			"error", err.Error(),
		)
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	if err := app.Run(); err != nil {
		app.Logger.Error("api server stopped",
			"event", "api_server_stopped",
			"module", "cmd/api",
			"layer", "main",
			"error", err.Error(),
		)
		os.Exit(1)
	}
}
