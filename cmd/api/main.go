package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"

	"websift/internal/api"
	"websift/internal/app"
	"websift/internal/config"
	"websift/internal/ingest"
	"websift/internal/logging"
	"websift/internal/workflows"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	var dispatcher ingest.Dispatcher
	switch cfg.Dispatcher {
	case "local":
		local := ingest.NewLocalDispatcher(ctx, a.Ingest, logger)
		defer local.Wait()
		dispatcher = local
	default:
		tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			log.Fatal(err)
		}
		defer tc.Close()
		dispatcher = workflows.NewTemporalDispatcher(tc, cfg.TemporalTaskQueue, logger)
	}

	h := api.NewServer(api.Deps{
		Ingest:     a.Ingest,
		Dispatcher: dispatcher,
		Retrieval:  a.Retrieval,
		Catalog:    a.Store,
		Blobs:      a.Blobs,
		Logger:     logger,
	})
	srv := &http.Server{Addr: cfg.APIAddr, Handler: h.Routes()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("websift api listening", "addr", cfg.APIAddr, "dispatcher", cfg.Dispatcher,
		"llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
