// Package app wires configuration into the stores, providers and
// orchestrators shared by the api and worker processes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"websift/internal/blob"
	"websift/internal/chunker"
	"websift/internal/config"
	"websift/internal/embedding"
	"websift/internal/fetch"
	"websift/internal/ingest"
	"websift/internal/providers"
	"websift/internal/retrieval"
	"websift/internal/storage"
	"websift/internal/summarize"
	"websift/internal/vector"
)

type App struct {
	DB        *storage.DB
	Store     *storage.Store
	Blobs     blob.Store
	Ingest    *ingest.Orchestrator
	Retrieval *retrieval.Service
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	bpe, err := chunker.NewBPE()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	llm, llmRef := pm.LLM()
	emb, embRef := pm.Embedder()
	log.Info("providers selected", "llm", llmRef.Raw, "embedder", embRef.Raw)

	embedder := embedding.NewClient(emb, log)
	summarizer := summarize.New(llm, log)
	fetcher := fetch.New(&http.Client{Timeout: 30 * time.Second})
	store := storage.NewStore(db)

	o := ingest.New(ingest.Deps{
		Store:      store,
		Blobs:      blobs,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Chunker:    chunker.New(bpe, embedder),
		Embedder:   embedder,
		Logger:     log,
		Tokenizer:  bpe,
	}, ingest.Options{
		WindowTokens:   cfg.ChunkTokens,
		Overlap:        cfg.ChunkOverlap,
		ChunkDim:       cfg.ChunkDim,
		DocumentDim:    cfg.DocumentDim,
		DocumentTokens: cfg.DocumentTokens,
	})
	r := retrieval.New(retrieval.Deps{
		Searcher:   vector.NewSearcher(db.Pool),
		Store:      store,
		Embedder:   embedder,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Tokenizer:  bpe,
		Logger:     log,
	}, retrieval.Options{
		TopK:           cfg.TopK,
		ChunkDim:       cfg.ChunkDim,
		DocumentDim:    cfg.DocumentDim,
		DocumentTokens: cfg.DocumentTokens,
	})
	return &App{DB: db, Store: store, Blobs: blobs, Ingest: o, Retrieval: r}, nil
}

func (a *App) Close() {
	a.DB.Close()
}
