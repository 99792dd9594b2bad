package main

import (
	"context"
	"log"
	"os"

	"github.com/cryptkeep/cryptkeep/internal/buildinfo"
	"github.com/cryptkeep/cryptkeep/internal/client/cli"
	"github.com/cryptkeep/cryptkeep/internal/client/config"
	"github.com/cryptkeep/cryptkeep/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg, logging.NewDefault())
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}
