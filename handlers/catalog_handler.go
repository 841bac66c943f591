package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/services/container"
	"github.com/upb/llm-router-lab/utils"
)

// Entry describes one registered model or evaluator.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists the router and everything it and the pipeline can call.
type Catalog struct {
	Router     Entry   `json:"router"`
	Models     []Entry `json:"models"`
	Evaluators []Entry `json:"evaluators"`
}

type described interface {
	Name() string
	Description() string
}

// CatalogHandler serves the model catalog and routing statistics
type CatalogHandler struct {
	router     described
	models     []described
	evaluators []described
	stats      func() observability.Stats
	logger     *zap.Logger
}

// NewCatalogHandler builds a handler over the gateway's containers. Entries that do not
// describe themselves are listed under their key.
func NewCatalogHandler[M, E any](router described, models *container.Container[M], evaluators *container.Container[E], stats func() observability.Stats, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{
		router:     router,
		models:     entries(models),
		evaluators: entries(evaluators),
		stats:      stats,
		logger:     logger,
	}
}

type keyed struct {
	key string
}

func (k keyed) Name() string        { return k.key }
func (k keyed) Description() string { return "" }

func entries[V any](c *container.Container[V]) []described {
	if c == nil {
		return nil
	}
	var out []described
	for key, v := range c.All() {
		if d, ok := any(v).(described); ok {
			out = append(out, d)
			continue
		}
		out = append(out, keyed{key: key})
	}
	return out
}

func toEntries(ds []described) []Entry {
	out := make([]Entry, 0, len(ds))
	for _, d := range ds {
		out = append(out, Entry{Name: d.Name(), Description: d.Description()})
	}
	return out
}

// HandleCatalog handles GET /api/v1/models
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := Catalog{
		Router:     Entry{Name: h.router.Name(), Description: h.router.Description()},
		Models:     toEntries(h.models),
		Evaluators: toEntries(h.evaluators),
	}
	if err := utils.WriteOK(w, catalog); err != nil {
		h.logger.Error("failed to write catalog response", zap.Error(err))
	}
}

// HandleStats handles GET /api/v1/stats
func (h *CatalogHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		_ = utils.WriteError(w, http.StatusServiceUnavailable, "Metrics are disabled", nil)
		return
	}
	if err := utils.WriteOK(w, h.stats()); err != nil {
		h.logger.Error("failed to write stats response", zap.Error(err))
	}
}
