package main

import (
	"context"
	"log"

	"github.com/neuronai/neuronbot/internal/app"
	"github.com/neuronai/neuronbot/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	a.Run(ctx)

}
