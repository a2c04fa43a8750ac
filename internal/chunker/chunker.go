package chunker

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the BPE vocabulary used to measure windows.
const Encoding = "cl100k_base"

type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type Embedder interface {
	Embed(ctx context.Context, text string, dim int) ([]float32, error)
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int
	End   int
}

type Window struct {
	Text      string
	Start     int
	End       int
	Embedding []float32
}

type Chunker struct {
	tok Tokenizer
	emb Embedder
}

func New(tok Tokenizer, emb Embedder) *Chunker {
	return &Chunker{tok: tok, emb: emb}
}

// Chunk splits text into overlapping token windows and embeds each one.
// An embedding failure for any window aborts the whole call.
func (c *Chunker) Chunk(ctx context.Context, text string, windowTokens int, overlap float64, dim int) ([]Window, error) {
	tokens := c.tok.Encode(text)
	spans := Spans(len(tokens), windowTokens, overlap)
	out := make([]Window, 0, len(spans))
	for i, s := range spans {
		w := Window{
			Text:  c.tok.Decode(tokens[s.Start:s.End]),
			Start: s.Start,
			End:   s.End,
		}
		vec, err := c.emb.Embed(ctx, w.Text, dim)
		if err != nil {
			return nil, fmt.Errorf("embed window %d [%d,%d): %w", i, s.Start, s.End, err)
		}
		w.Embedding = vec
		out = append(out, w)
	}
	return out, nil
}

// Spans computes the window layout over n tokens. Consecutive windows start
// floor(window*overlap) tokens apart and the last window always ends at n.
// It panics when overlap is outside (0,1) or the step rounds to zero.
func Spans(n, window int, overlap float64) []Span {
	if overlap <= 0 || overlap >= 1 {
		panic(fmt.Sprintf("chunker: overlap must be in (0,1), got %v", overlap))
	}
	if window <= 0 {
		panic(fmt.Sprintf("chunker: window must be positive, got %d", window))
	}
	step := int(float64(window) * overlap)
	if step == 0 {
		panic(fmt.Sprintf("chunker: window %d with overlap %v yields a zero step", window, overlap))
	}
	if n == 0 {
		return nil
	}
	var out []Span
	for start := 0; ; start += step {
		end := min(start+window, n)
		out = append(out, Span{Start: start, End: end})
		if end == n {
			break
		}
	}
	return out
}

// Truncate cuts text to its first maxTokens tokens. A nil tokenizer or a
// non-positive bound leaves text unchanged.
func Truncate(tok Tokenizer, text string, maxTokens int) string {
	if tok == nil || maxTokens <= 0 {
		return text
	}
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text
	}
	return tok.Decode(tokens[:maxTokens])
}

// BPE wraps a tiktoken encoding. The vocabulary is loaded from the embedded
// offline loader so no network access is needed.
type BPE struct {
	enc *tiktoken.Tiktoken
}

var loaderOnce sync.Once

func NewBPE() (*BPE, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", Encoding, err)
	}
	return &BPE{enc: enc}, nil
}

func (b *BPE) Encode(text string) []int {
	return b.enc.Encode(text, nil, nil)
}

func (b *BPE) Decode(tokens []int) string {
	return b.enc.Decode(tokens)
}
