// Package embedding turns input texts into fixed-dimension vectors for the
// embedding-based routers.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
)

// Embedder maps each text to one vector, in input order. All vectors share a length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Func adapts a function to the Embedder interface.
type Func func(ctx context.Context, texts []string) ([][]float64, error)

// Embed implements Embedder.
func (f Func) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

// Provider names a supported embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderTEI    Provider = "tei"
)

// Options selects and configures an embedding backend.
type Options struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// New builds the embedder named by opts.Provider.
func New(opts Options, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(opts, logger), nil
	case ProviderOllama:
		return NewOllamaEmbedder(opts, logger)
	case ProviderTEI:
		if opts.BaseURL == "" {
			return nil, services.NewConfigError("tei embedder requires a base URL", nil)
		}
		return NewTEIEmbedder(opts, logger), nil
	default:
		return nil, services.NewConfigError(fmt.Sprintf("unknown embedding provider %q", opts.Provider), nil)
	}
}

// Embed calls e and checks the result honors the Embedder contract.
// Provider failures and malformed results are reported as embedding errors.
func Embed(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "embedding provider error", err)
	}
	if len(vecs) != len(texts) {
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vecs)), nil)
	}
	dim := len(vecs[0])
	if dim == 0 {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "provider returned empty embeddings", nil)
	}
	for i, v := range vecs {
		if len(v) != dim {
			return nil, services.NewDomainError(services.ErrorTypeExternal,
				fmt.Sprintf("embedding %d has dimension %d, expected %d", i, len(v), dim), nil).
				WithDetail("index", i)
		}
	}
	return vecs, nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := Embed(ctx, e, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
