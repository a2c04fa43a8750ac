package main

import (
	"context"
	"log"

	"websift/internal/activities"
	"websift/internal/app"
	"websift/internal/config"
	"websift/internal/logging"
	"websift/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(a.Ingest, logger))

	logger.Info("websift worker listening", "temporal", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue,
		"llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
