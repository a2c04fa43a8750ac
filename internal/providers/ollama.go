package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaProvider serves local embeddings and chat via an Ollama daemon.
// Example embedding model: nomic-embed-text (Nomic Embed v1.5 family).
type OllamaProvider struct {
	alias      string
	client     *api.Client
	embedModel string
	chatModel  string
}

func NewOllamaProvider(alias string) (*OllamaProvider, error) {
	baseURL := envOr("WEBSIFT_OLLAMA_BASE_URL", "http://localhost:11434")
	return NewOllamaProviderAt(alias, baseURL)
}

func NewOllamaProviderAt(alias, baseURL string) (*OllamaProvider, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &OllamaProvider{
		alias:      alias,
		client:     api.NewClient(u, &http.Client{Timeout: 90 * time.Second}),
		embedModel: resolveOllamaEmbedModel(alias),
		chatModel:  envOr("WEBSIFT_OLLAMA_CHAT_MODEL", "llama3.1"),
	}, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.embedModel, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	out := make([][]float32, 0, len(req.Inputs))
	for i, text := range req.Inputs {
		resp, err := o.client.Embed(ctx, &api.EmbedRequest{
			Model:      o.embedModel,
			Input:      text,
			Dimensions: req.Dimension,
		})
		if err != nil {
			return nil, info, fmt.Errorf("ollama embed[%d]: %w", i, err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
			return nil, info, fmt.Errorf("%w: ollama returned empty embedding for input %d", ErrMalformedResponse, i)
		}
		vec := resp.Embeddings[0]
		if req.Dimension > 0 && len(vec) != req.Dimension {
			return nil, info, fmt.Errorf("%w: ollama %s returned %d dims for input %d, want %d",
				ErrMalformedResponse, o.embedModel, len(vec), i, req.Dimension)
		}
		out = append(out, vec)
	}
	return out, info, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.chatModel, Key: o.alias}
	stream := false
	chat := &api.ChatRequest{
		Model: o.chatModel,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: userPrompt(req)},
		},
		Stream: &stream,
	}
	if req.JSON {
		chat.Format = json.RawMessage(`"json"`)
	}
	var b strings.Builder
	err := o.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("ollama chat: %w", err)
	}
	return GenerateResponse{Text: b.String()}, info, nil
}

func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		key := "WEBSIFT_OLLAMA_EMBED_MODEL_" + sanitizeEnvToken(alias)
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "nomic":
			return "nomic-embed-text"
		case "mxbai":
			return "mxbai-embed-large"
		}
		// Allow a direct model in the provider list, e.g. ollama:nomic-embed-text.
		if strings.Contains(alias, "-") || strings.Contains(alias, "/") || strings.Contains(alias, ".") {
			return alias
		}
	}
	return envOr("WEBSIFT_OLLAMA_EMBED_MODEL", "nomic-embed-text")
}

func sanitizeEnvToken(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
