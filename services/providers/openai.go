package providers

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services/routing"
)

// DefaultOpenAIModel is used when a backend entry names no model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIChat answers an input with a single-turn chat completion.
type OpenAIChat struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIChat(cfg BackendConfig, logger *zap.Logger) *OpenAIChat {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIChat{client: openai.NewClient(opts...), model: model, logger: logger}
}

func (c *OpenAIChat) Model() string { return c.model }

// Call implements models.Model. Temperature and max_tokens execution parameters from a
// routing decision are applied when present.
func (c *OpenAIChat) Call(ctx context.Context, input string) (any, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(input)},
	}
	gp := paramsFrom(routing.ExecParams(ctx))
	if gp.temperature != nil {
		params.Temperature = openai.Float(*gp.temperature)
	}
	if gp.maxTokens != nil {
		params.MaxCompletionTokens = openai.Int(*gp.maxTokens)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("openai chat completion failed", zap.String("model", c.model), zap.Error(err))
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	c.logger.Debug("openai chat completion",
		zap.String("model", c.model),
		zap.Int64("tokens", completion.Usage.TotalTokens))
	return completion.Choices[0].Message.Content, nil
}
