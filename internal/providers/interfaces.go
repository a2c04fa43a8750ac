package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation string   `json:"operation"`
	System    string   `json:"system"`
	Prompt    string   `json:"prompt"`
	Context   []string `json:"context"`
	// JSON asks the provider to constrain its output to a JSON object.
	JSON bool `json:"json"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

const defaultSystemPrompt = "You are a concise assistant. Answer only from the provided content."

func systemPrompt(req GenerateRequest) string {
	if req.System != "" {
		return req.System
	}
	return defaultSystemPrompt
}

func userPrompt(req GenerateRequest) string {
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n"
		for i, c := range req.Context {
			if i > 0 {
				prompt += "\n\n"
			}
			prompt += c
		}
	}
	return prompt
}
