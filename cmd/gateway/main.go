package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/benxgao/certifai-gateway/internal/gateway/app"
)

func main() {
	// Local development convenience; deployed environments set real env vars.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
