package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/config"
	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/services/dataset"
	"github.com/upb/llm-router-lab/services/embedding"
	"github.com/upb/llm-router-lab/services/evaluators"
	"github.com/upb/llm-router-lab/services/generation"
	"github.com/upb/llm-router-lab/services/models"
	"github.com/upb/llm-router-lab/services/providers"
	"github.com/upb/llm-router-lab/services/routing"
	"github.com/upb/llm-router-lab/services/upload"
	"github.com/upb/llm-router-lab/utils"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.InMemoryMetrics

	Models     *models.Container
	Evaluators *evaluators.Container
	Embedder   embedding.Embedder
	Router     *routing.Router
	Pipeline   *generation.Pipeline
	// Uploader is nil when no upload endpoint is configured.
	Uploader *upload.Client
}

// Option customizes dependency construction.
type Option func(*Dependencies)

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e embedding.Embedder) Option {
	return func(d *Dependencies) { d.Embedder = e }
}

// WithModels replaces the backends built from configuration.
func WithModels(c *models.Container) Option {
	return func(d *Dependencies) { d.Models = c }
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	if err := deps.initModels(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize backends: %w", err)
	}

	if err := deps.initEvaluators(); err != nil {
		return nil, fmt.Errorf("failed to initialize evaluators: %w", err)
	}

	if err := deps.initRouter(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	deps.Pipeline = generation.NewPipeline(deps.Models, deps.Evaluators,
		generation.WithBatchGeneration(cfg.Pipeline.BatchGeneration),
		generation.WithLogger(logger.Named("generation")))

	if err := deps.initUploader(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize uploader: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("router", deps.Router.Name()),
		zap.Int("models", deps.Models.Len()))
	return deps, nil
}

func (d *Dependencies) initModels(cfg *config.Config) error {
	if d.Models != nil {
		return nil
	}
	backends, err := providers.ParseBackends(cfg.Backends.Entries)
	if err != nil {
		return err
	}
	for i := range backends {
		b := &backends[i]
		b.Timeout = cfg.Backends.Timeout
		switch b.Kind {
		case providers.KindOpenAI:
			b.APIKey = cfg.Backends.OpenAIAPIKey
			b.BaseURL = cfg.Backends.OpenAIBaseURL
		case providers.KindOllama:
			b.BaseURL = cfg.Backends.OllamaBaseURL
		}
	}

	c, err := providers.NewRegistry(d.Logger.Named("providers")).Build(backends)
	if err != nil {
		return err
	}
	if c.Len() == 0 {
		d.Logger.Warn("no LLM backends configured")
	}
	d.Models = c
	return nil
}

func (d *Dependencies) initEvaluators() error {
	c, err := evaluators.NewNamedDict()
	if err != nil {
		return err
	}
	for _, e := range evaluators.Builtins() {
		if _, err := c.Add(e); err != nil {
			return err
		}
	}
	d.Evaluators = c
	return nil
}

func (d *Dependencies) initRouter(ctx context.Context, cfg *config.Config) error {
	logger := d.Logger.Named("router")
	opts := []routing.Option{routing.WithLogger(logger), routing.WithName(cfg.Router.Name)}
	if cfg.Observability.MetricsEnabled {
		opts = append(opts, routing.WithMetrics(d.Metrics))
	}

	var (
		r   *routing.Router
		err error
	)
	switch cfg.Router.Strategy {
	case config.StrategyCascade:
		tiers := cfg.Router.Tiers
		if len(tiers) == 0 {
			// one tier per model, in registration order
			for _, key := range d.Models.Keys() {
				tiers = append(tiers, []string{key})
			}
		}
		r, err = routing.NewCascadeRouter(d.Models, tiers, opts...)

	case config.StrategyNN, config.StrategyModelMap:
		ds, loadErr := dataset.LoadCSVFile(cfg.Router.DatasetPath, cfg.Router.InputColumn, cfg.Router.ModelColumns)
		if loadErr != nil {
			return loadErr
		}
		if d.Embedder == nil {
			d.Embedder, err = embedding.New(embedding.Options{
				Provider: embedding.Provider(cfg.Embedding.Provider),
				Model:    cfg.Embedding.Model,
				BaseURL:  cfg.Embedding.BaseURL,
				APIKey:   cfg.Embedding.APIKey,
				Timeout:  cfg.Embedding.Timeout,
			}, d.Logger.Named("embedding"))
			if err != nil {
				return err
			}
		}
		if cfg.Router.Strategy == config.StrategyNN {
			r, err = routing.NewNNRouter(ctx, d.Models, routing.NNConfig{
				Dataset:  ds,
				Embedder: d.Embedder,
				K:        cfg.Router.K,
				Maximize: cfg.Router.Maximize,
			}, opts...)
		} else {
			r, err = routing.NewModelMapRouter(ctx, d.Models, routing.ModelMapConfig{
				Dataset:  ds,
				Embedder: d.Embedder,
				ModelDim: cfg.Router.ModelDim,
				Maximize: cfg.Router.Maximize,
			}, opts...)
		}

	default:
		return fmt.Errorf("unknown router strategy %q", cfg.Router.Strategy)
	}
	if err != nil {
		return err
	}

	d.Router = r
	logger.Info("router ready", zap.String("name", r.Name()), zap.String("strategy", r.Strategy().Kind()))
	return nil
}

func (d *Dependencies) initUploader(cfg *config.Config) error {
	if !cfg.UploadEnabled() {
		return nil
	}
	uc := upload.Config{BaseURL: cfg.Upload.BaseURL, APIKey: cfg.Upload.APIKey, Timeout: cfg.Upload.Timeout}
	if err := utils.ValidateStruct(uc); err != nil {
		return err
	}
	d.Uploader = upload.NewClient(uc, d.Logger.Named("upload"))
	return nil
}
