// Package summarize asks a chat model for a short title and description of a
// fetched page.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"websift/internal/providers"
	"websift/internal/util"
)

const SystemPrompt = `You are a summarizer. Given the title or titles and the content of a page, give a short and appropriate title of at most 10 words, and a short and appropriate description of the content in no more than 60 words. Respond with a JSON object with exactly two string attributes: "title" and "description".`

// MaxContentRunes caps the body sent to the model.
const MaxContentRunes = 16000

type Summary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Summarizer struct {
	llm providers.LLMProvider
	log *slog.Logger
}

func New(llm providers.LLMProvider, log *slog.Logger) *Summarizer {
	if log == nil {
		log = slog.Default()
	}
	return &Summarizer{llm: llm, log: log}
}

func (s *Summarizer) Summarize(ctx context.Context, headings []string, body string) (Summary, error) {
	resp, info, err := s.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "summarize_page",
		System:    SystemPrompt,
		Prompt:    BuildPrompt(headings, body),
		JSON:      true,
	})
	if err != nil {
		s.log.Warn("summary request failed",
			"provider", info.Name, "model", info.Model,
			"class", providers.ClassifyError(err), "err", err)
		return Summary{}, fmt.Errorf("%w: summarize: %v", util.ErrUpstreamUnavailable, err)
	}
	sum, err := ParseSummary(resp.Text)
	if err != nil {
		s.log.Warn("summary response malformed", "provider", info.Name, "err", err)
		return Summary{}, err
	}
	return sum, nil
}

func BuildPrompt(headings []string, body string) string {
	r := []rune(body)
	if len(r) > MaxContentRunes {
		body = string(r[:MaxContentRunes])
	}
	return fmt.Sprintf("Title: %s, Content: %s", strings.Join(headings, "; "), body)
}

// ParseSummary decodes a model reply, tolerating markdown code fences and
// prose around the JSON object.
func ParseSummary(raw string) (Summary, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}
	var out Summary
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", util.ErrSummaryMalformed, err)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)
	if out.Title == "" {
		return Summary{}, fmt.Errorf("%w: missing title", util.ErrSummaryMalformed)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
