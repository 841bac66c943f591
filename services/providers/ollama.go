package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/routing"
)

// DefaultOllamaModel is used when a backend entry names no model.
const DefaultOllamaModel = "llama3.2"

// OllamaChat answers an input with a non-streaming Ollama chat request.
type OllamaChat struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaChat connects to cfg.BaseURL, or to OLLAMA_HOST when it is empty.
func NewOllamaChat(cfg BackendConfig, logger *zap.Logger) (*OllamaChat, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var client *api.Client
	if cfg.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, services.NewConfigError("ollama client from environment", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, services.NewConfigError("invalid ollama base URL", err)
		}
		client = api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaChat{client: client, model: model, logger: logger}, nil
}

func (c *OllamaChat) Model() string { return c.model }

// Call implements models.Model.
func (c *OllamaChat) Call(ctx context.Context, input string) (any, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: input}},
		Stream:   &stream,
	}
	gp := paramsFrom(routing.ExecParams(ctx))
	if gp.temperature != nil || gp.maxTokens != nil {
		req.Options = map[string]interface{}{}
		if gp.temperature != nil {
			req.Options["temperature"] = *gp.temperature
		}
		if gp.maxTokens != nil {
			req.Options["num_predict"] = *gp.maxTokens
		}
	}

	var answer strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		c.logger.Error("ollama chat failed", zap.String("model", c.model), zap.Error(err))
		return nil, err
	}
	return answer.String(), nil
}
