// Package providers exposes LLM backends as models and builds the gateway's model
// container from configuration.
package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/upb/llm-router-lab/services"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindOllama Kind = "ollama"
	KindEcho   Kind = "echo"
)

// BackendConfig describes one model backend.
type BackendConfig struct {
	Name        string        `json:"name" validate:"required"`
	Kind        Kind          `json:"kind" validate:"required"`
	Model       string        `json:"model"`
	Description string        `json:"description,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	APIKey      string        `json:"-"`
	Timeout     time.Duration `json:"-"`
}

// ParseBackend parses a "name=kind:model" entry. The model part is optional.
func ParseBackend(entry string) (BackendConfig, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(entry), "=")
	if !ok || name == "" || rest == "" {
		return BackendConfig{}, services.NewConfigError(
			fmt.Sprintf("backend entry %q must look like name=kind:model", entry), nil)
	}
	kind, model, _ := strings.Cut(rest, ":")
	return BackendConfig{
		Name:  strings.TrimSpace(name),
		Kind:  Kind(strings.ToLower(strings.TrimSpace(kind))),
		Model: strings.TrimSpace(model),
	}, nil
}

// ParseBackends parses a comma separated list of backend entries.
func ParseBackends(list string) ([]BackendConfig, error) {
	var out []BackendConfig
	for _, entry := range strings.Split(list, ",") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		cfg, err := ParseBackend(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// generationParams are the routing execution parameters a chat backend honors.
type generationParams struct {
	temperature *float64
	maxTokens   *int64
}

func paramsFrom(params map[string]any) generationParams {
	var p generationParams
	if v, ok := number(params["temperature"]); ok {
		p.temperature = &v
	}
	if v, ok := number(params["max_tokens"]); ok {
		n := int64(v)
		p.maxTokens = &n
	}
	return p
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
