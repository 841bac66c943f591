package embedding

import (
	"context"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// DefaultOpenAIModel is used when no embedding model is configured.
const DefaultOpenAIModel = openai.EmbeddingModelTextEmbeddingAda002

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
// Without an explicit API key the client reads OPENAI_API_KEY.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

func NewOpenAIEmbedder(opts Options, logger *zap.Logger) *OpenAIEmbedder {
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	model := openai.EmbeddingModel(opts.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(reqOpts...),
		model:  model,
		logger: logger,
	}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		e.logger.Error("openai embedding request failed", zap.String("model", string(e.model)), zap.Error(err))
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float64, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	e.logger.Debug("openai embeddings",
		zap.String("model", string(e.model)),
		zap.Int("texts", len(texts)),
		zap.Int64("tokens", resp.Usage.TotalTokens),
	)
	return out, nil
}
