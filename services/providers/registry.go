package providers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/models"
	"github.com/upb/llm-router-lab/utils"
)

// Builder creates the model for one backend kind.
type Builder func(cfg BackendConfig, logger *zap.Logger) (models.Model, error)

// Registry maps backend kinds to builders and assembles named model containers.
type Registry struct {
	builders map[Kind]Builder
	logger   *zap.Logger
}

// NewRegistry returns a registry that knows the openai, ollama and echo kinds.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{builders: make(map[Kind]Builder), logger: logger}
	r.WithBuilder(KindOpenAI, func(cfg BackendConfig, logger *zap.Logger) (models.Model, error) {
		return NewOpenAIChat(cfg, logger), nil
	})
	r.WithBuilder(KindOllama, func(cfg BackendConfig, logger *zap.Logger) (models.Model, error) {
		return NewOllamaChat(cfg, logger)
	})
	r.WithBuilder(KindEcho, func(cfg BackendConfig, _ *zap.Logger) (models.Model, error) {
		return NewEcho(cfg.Name), nil
	})
	return r
}

// WithBuilder registers or replaces the builder for kind.
func (r *Registry) WithBuilder(kind Kind, b Builder) *Registry {
	r.builders[kind] = b
	return r
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	return kinds
}

// Build creates one named model per backend, in order. Duplicate names are rejected
// rather than overwritten.
func (r *Registry) Build(configs []BackendConfig) (*models.Container, error) {
	c, err := models.NewNamedDict()
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if err := utils.ValidateStruct(cfg); err != nil {
			return nil, services.NewConfigError(fmt.Sprintf("backend %q", cfg.Name), err)
		}
		if c.Contains(cfg.Name) {
			return nil, services.NewConfigError(fmt.Sprintf("backend %q registered twice", cfg.Name), nil).
				WithDetail("backend", cfg.Name)
		}
		build, ok := r.builders[cfg.Kind]
		if !ok {
			return nil, services.NewConfigError(fmt.Sprintf("backend %q has unknown kind %q", cfg.Name, cfg.Kind), nil).
				WithDetail("backend", cfg.Name)
		}
		m, err := build(cfg, r.logger.With(zap.String("backend", cfg.Name)))
		if err != nil {
			return nil, fmt.Errorf("failed to build backend %s: %w", cfg.Name, err)
		}

		description := cfg.Description
		if description == "" {
			description = fmt.Sprintf("%s backend", cfg.Kind)
			if cfg.Model != "" {
				description = fmt.Sprintf("%s backend serving %s", cfg.Kind, cfg.Model)
			}
		}
		if _, err := c.Add(models.Spec{Name: cfg.Name, Description: description, Model: m}); err != nil {
			return nil, err
		}
		r.logger.Info("registered backend",
			zap.String("backend", cfg.Name),
			zap.String("kind", string(cfg.Kind)),
			zap.String("model", cfg.Model))
	}
	return c, nil
}
