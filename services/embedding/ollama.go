package embedding

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
)

// DefaultOllamaModel is used when no embedding model is configured.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaEmbedder connects to opts.BaseURL, or to OLLAMA_HOST when it is empty.
func NewOllamaEmbedder(opts Options, logger *zap.Logger) (*OllamaEmbedder, error) {
	var client *api.Client
	if opts.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, services.NewConfigError("ollama client from environment", err)
		}
		client = c
	} else {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, services.NewConfigError("invalid ollama base URL", err)
		}
		client = api.NewClient(base, &http.Client{Timeout: opts.Timeout})
	}

	model := opts.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{client: client, model: model, logger: logger}, nil
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		e.logger.Error("ollama embedding request failed", zap.String("model", e.model), zap.Error(err))
		return nil, err
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = widen(v)
	}
	e.logger.Debug("ollama embeddings", zap.String("model", e.model), zap.Int("texts", len(texts)))
	return out, nil
}
