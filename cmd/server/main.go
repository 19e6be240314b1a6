package main

import (
	"context"
	"log"
	"os"

	"github.com/carbonx-dev/carbonx/internal/buildinfo"
	"github.com/carbonx-dev/carbonx/internal/server"
	"github.com/carbonx-dev/carbonx/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
