package routing

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/dataset"
	"github.com/upb/llm-router-lab/services/embedding"
	"github.com/upb/llm-router-lab/services/models"
	"github.com/upb/llm-router-lab/services/reduction"
)

// DefaultModelDim is the characteristic subspace size used when ModelMapConfig.ModelDim
// is zero.
const DefaultModelDim = 384

// minStdDev floors the per-model distance spread.
const minStdDev = 1e-10

// ModelMapConfig configures a ModelMap strategy.
type ModelMapConfig struct {
	Dataset  *dataset.Dataset
	Embedder embedding.Embedder
	// ModelDim is the dimension of the subspace kept per model. The remaining
	// embedding dimension is discarded along each group's principal directions.
	ModelDim int
	Maximize bool
	// Reducer fits the discarded directions. Defaults to PCA.
	Reducer reduction.Reducer
}

type modelGroup struct {
	model    string
	basis    *reduction.Basis
	centroid []float64
	mean     float64
	std      float64
}

// ModelMap scores an input against each model's training group and picks the model for
// which the input is least atypical.
type ModelMap struct {
	embedder embedding.Embedder
	groups   []*modelGroup
	byModel  map[string]*modelGroup
	logger   *zap.Logger
}

// NewModelMap labels the dataset and fits one projection per best-model group.
func NewModelMap(ctx context.Context, candidates *models.Container, cfg ModelMapConfig, logger *zap.Logger) (*ModelMap, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dataset == nil {
		return nil, services.NewConfigError("model map router requires a dataset", nil)
	}
	if cfg.Embedder == nil {
		return nil, services.NewConfigError("model map router requires an embedder", nil)
	}
	modelDim := cfg.ModelDim
	if modelDim == 0 {
		modelDim = DefaultModelDim
	}
	if modelDim < 0 {
		return nil, services.NewConfigError(fmt.Sprintf("model dimension must be positive, got %d", modelDim), nil)
	}
	reducer := cfg.Reducer
	if reducer == nil {
		reducer = reduction.PCA{}
	}
	if err := checkModelColumns(candidates, cfg.Dataset); err != nil {
		return nil, err
	}

	labels, err := cfg.Dataset.BestModels(!cfg.Maximize)
	if err != nil {
		return nil, err
	}
	vectors, err := embedding.Embed(ctx, cfg.Embedder, cfg.Dataset.Inputs)
	if err != nil {
		return nil, err
	}
	dim := len(vectors[0])
	discard := max(dim-modelDim, 0)

	grouped := make(map[string][][]float64)
	for i, label := range labels {
		grouped[label] = append(grouped[label], vectors[i])
	}

	mm := &ModelMap{embedder: cfg.Embedder, byModel: make(map[string]*modelGroup), logger: logger}
	for _, model := range cfg.Dataset.ModelColumns {
		group, ok := grouped[model]
		if !ok {
			continue
		}
		g, err := fitGroup(model, group, discard, reducer)
		if err != nil {
			return nil, err
		}
		mm.groups = append(mm.groups, g)
		mm.byModel[model] = g
		logger.Debug("fitted model map",
			zap.String("model", model),
			zap.Int("rows", len(group)),
			zap.Int("discarded", g.basis.Size()),
			zap.Float64("mean", g.mean),
			zap.Float64("std", g.std),
		)
	}
	return mm, nil
}

func fitGroup(model string, vectors [][]float64, discard int, reducer reduction.Reducer) (*modelGroup, error) {
	basis, err := reducer.Fit(vectors, discard)
	if err != nil {
		return nil, err
	}

	projections := make([][]float64, len(vectors))
	centroid := make([]float64, len(vectors[0]))
	for i, v := range vectors {
		p, err := basis.Residual(v)
		if err != nil {
			return nil, err
		}
		projections[i] = p
		floats.Add(centroid, p)
	}
	floats.Scale(1/float64(len(vectors)), centroid)

	dists := make([]float64, len(projections))
	for i, p := range projections {
		dists[i] = floats.Distance(centroid, p, 2)
	}
	mean, std := stat.PopMeanStdDev(dists, nil)

	return &modelGroup{
		model:    model,
		basis:    basis,
		centroid: centroid,
		mean:     mean,
		std:      math.Max(std, minStdDev),
	}, nil
}

// NewModelMapRouter builds a router whose strategy is a ModelMap.
func NewModelMapRouter(ctx context.Context, candidates *models.Container, cfg ModelMapConfig, opts ...Option) (*Router, error) {
	s := applyOptions(opts)
	mm, err := NewModelMap(ctx, candidates, cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return newRouter(candidates, mm, s), nil
}

func (m *ModelMap) Kind() string { return "ModelMap" }

// Models returns the models that have a fitted group, in dataset column order.
func (m *ModelMap) Models() []string {
	out := make([]string, len(m.groups))
	for i, g := range m.groups {
		out[i] = g.model
	}
	return out
}

func (m *ModelMap) group(model string) (*modelGroup, error) {
	g, ok := m.byModel[model]
	if !ok {
		return nil, services.NewMissingKeyError(model)
	}
	return g, nil
}

// Centroid returns the mean projection of model's training group.
func (m *ModelMap) Centroid(model string) ([]float64, error) {
	g, err := m.group(model)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), g.centroid...), nil
}

// Projection returns x with model's discarded directions removed.
func (m *ModelMap) Projection(model string, x []float64) ([]float64, error) {
	g, err := m.group(model)
	if err != nil {
		return nil, err
	}
	return g.basis.Residual(x)
}

// ProjectionDistance is the Euclidean distance from x's projection to model's centroid.
func (m *ModelMap) ProjectionDistance(model string, x []float64) (float64, error) {
	g, err := m.group(model)
	if err != nil {
		return 0, err
	}
	p, err := g.basis.Residual(x)
	if err != nil {
		return 0, err
	}
	return floats.Distance(g.centroid, p, 2), nil
}

// NormalizedDistance is the projection distance as a z-score against model's training
// distances.
func (m *ModelMap) NormalizedDistance(model string, x []float64) (float64, error) {
	g, err := m.group(model)
	if err != nil {
		return 0, err
	}
	d, err := m.ProjectionDistance(model, x)
	if err != nil {
		return 0, err
	}
	return (d - g.mean) / g.std, nil
}

// Route selects the model with the lowest normalized distance. Ties go to the model
// listed first in the dataset.
func (m *ModelMap) Route(ctx context.Context, input string) (Decision, error) {
	x, err := embedding.EmbedOne(ctx, m.embedder, input)
	if err != nil {
		return Decision{}, err
	}

	scores := make(map[string]float64, len(m.groups))
	var selection string
	best := math.Inf(1)
	for _, g := range m.groups {
		z, err := m.NormalizedDistance(g.model, x)
		if err != nil {
			return Decision{}, err
		}
		scores[g.model] = z
		if selection == "" || z < best {
			selection, best = g.model, z
		}
	}

	return Decision{
		Selection: selection,
		Metadata:  map[string]any{MetaModelScores: scores},
	}, nil
}
