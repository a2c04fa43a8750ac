package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider uses standard OpenAI REST APIs when keys are configured.
type OpenAIProvider struct {
	keyName    string
	apiKey     string
	baseURL    string
	embedModel string
	chatModel  string
	client     *http.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	baseURL := strings.TrimSpace(os.Getenv("WEBSIFT_OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		keyName:    keyName,
		apiKey:     resolveOpenAIKey(keyName),
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: envOr("WEBSIFT_OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		chatModel:  envOr("WEBSIFT_OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// WithEndpoint points the provider at another OpenAI-compatible server.
func (o *OpenAIProvider) WithEndpoint(baseURL, apiKey string) *OpenAIProvider {
	o.baseURL = strings.TrimRight(baseURL, "/")
	o.apiKey = apiKey
	return o
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel, Key: o.keyName}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	body := map[string]any{"model": o.embedModel, "input": req.Inputs}
	if req.Dimension > 0 {
		body["dimensions"] = req.Dimension
	}
	raw, err := o.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding %w", err)
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, info, fmt.Errorf("%w: decode embedding response: %v", ErrMalformedResponse, err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.chatModel, Key: o.keyName}
	if o.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	body := chatPayload(o.chatModel, req)
	raw, err := o.post(ctx, "/chat/completions", body)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("openai generate %w", err)
	}
	text, err := decodeChatCompletion(raw)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("openai %w", err)
	}
	return GenerateResponse{Text: text}, info, nil
}

func (o *OpenAIProvider) post(ctx context.Context, path string, body any) ([]byte, error) {
	return postJSON(ctx, o.client, o.baseURL+path, o.apiKey, body)
}

// postJSON sends one authenticated JSON request and returns the raw body of a
// successful response.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func chatPayload(model string, req GenerateRequest) map[string]any {
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req)},
			{"role": "user", "content": userPrompt(req)},
		},
	}
	if req.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return body
}

func decodeChatCompletion(raw []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode generate response: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("WEBSIFT_OPENAI_KEY_" + strings.ToUpper(sanitizeEnvToken(alias)))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
