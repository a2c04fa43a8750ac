// Package embedding turns text into fixed-width vectors through the configured
// embedding provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"websift/internal/providers"
	"websift/internal/util"
)

type Client struct {
	provider providers.EmbeddingProvider
	log      *slog.Logger
}

func NewClient(p providers.EmbeddingProvider, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{provider: p, log: log}
}

// Embed returns exactly dim floats for text. Transport and status failures map
// to util.ErrEmbeddingUnavailable; unusable replies to util.ErrEmbeddingMalformed.
// There are no retries.
func (c *Client) Embed(ctx context.Context, text string, dim int) ([]float32, error) {
	vecs, info, err := c.provider.Embed(ctx, providers.EmbedRequest{
		Operation: "embed",
		Inputs:    []string{text},
		Dimension: dim,
	})
	if err != nil {
		c.log.Warn("embedding request failed",
			"provider", info.Name, "model", info.Model,
			"class", providers.ClassifyError(err), "err", err)
		if errors.Is(err, providers.ErrMalformedResponse) {
			return nil, fmt.Errorf("%w: %v", util.ErrEmbeddingMalformed, err)
		}
		return nil, fmt.Errorf("%w: %v", util.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", util.ErrEmbeddingMalformed, len(vecs))
	}
	if len(vecs[0]) != dim {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", util.ErrEmbeddingMalformed, dim, len(vecs[0]))
	}
	return vecs[0], nil
}
