package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	keyName string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewGroqProvider(keyName string) *GroqProvider {
	return &GroqProvider{
		keyName: keyName,
		apiKey:  resolveGroqKey(keyName),
		baseURL: strings.TrimRight(envOr("WEBSIFT_GROQ_BASE_URL", "https://api.groq.com/openai/v1"), "/"),
		model:   envOr("WEBSIFT_GROQ_MODEL", "llama-3.1-8b-instant"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GroqProvider) WithEndpoint(baseURL, apiKey string) *GroqProvider {
	g.baseURL = strings.TrimRight(baseURL, "/")
	g.apiKey = apiKey
	return g
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.keyName, Model: g.model}
	if g.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("groq key missing for alias %q", g.keyName)
	}
	raw, err := postJSON(ctx, g.client, g.baseURL+"/chat/completions", g.apiKey, chatPayload(g.model, req))
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("groq generate %w", err)
	}
	text, err := decodeChatCompletion(raw)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("groq %w", err)
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("WEBSIFT_GROQ_KEY_" + strings.ToUpper(sanitizeEnvToken(alias))); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
