package routing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/dataset"
	"github.com/upb/llm-router-lab/services/embedding"
	"github.com/upb/llm-router-lab/services/models"
	"github.com/upb/llm-router-lab/services/vectorindex"
)

// DefaultK is the neighbor count used when NNConfig.K is zero.
const DefaultK = 10

// NNConfig configures a NearestNeighbor strategy.
type NNConfig struct {
	Dataset  *dataset.Dataset
	Embedder embedding.Embedder
	// K is the number of neighbors that vote. Zero means DefaultK.
	K int
	// Maximize labels each row with its highest score instead of its lowest.
	Maximize bool
	// NewIndex builds the neighbor index. Defaults to an exact inner-product index.
	NewIndex func(dim int) (vectorindex.Index, error)
}

// NearestNeighbor selects the model that performed best on most of the k historical
// inputs closest to the query.
type NearestNeighbor struct {
	embedder embedding.Embedder
	index    vectorindex.Index
	labels   []string
	k        int
	logger   *zap.Logger
}

// NewNearestNeighbor labels the dataset, embeds its inputs and indexes them.
// Every model column must name one of the candidates.
func NewNearestNeighbor(ctx context.Context, candidates *models.Container, cfg NNConfig, logger *zap.Logger) (*NearestNeighbor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dataset == nil {
		return nil, services.NewConfigError("nearest neighbor router requires a dataset", nil)
	}
	if cfg.Embedder == nil {
		return nil, services.NewConfigError("nearest neighbor router requires an embedder", nil)
	}
	k := cfg.K
	if k == 0 {
		k = DefaultK
	}
	if k < 0 {
		return nil, services.NewConfigError(fmt.Sprintf("k must be positive, got %d", k), nil)
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

	newIndex := cfg.NewIndex
	if newIndex == nil {
		newIndex = func(dim int) (vectorindex.Index, error) { return vectorindex.NewFlatIP(dim) }
	}
	index, err := newIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := index.Add(vectors); err != nil {
		return nil, err
	}

	logger.Info("nearest neighbor index built",
		zap.Int("rows", len(labels)),
		zap.Int("dim", index.Dim()),
		zap.Int("k", k),
	)
	return &NearestNeighbor{
		embedder: cfg.Embedder,
		index:    index,
		labels:   labels,
		k:        k,
		logger:   logger,
	}, nil
}

// NewNNRouter builds a router whose strategy is a NearestNeighbor.
func NewNNRouter(ctx context.Context, candidates *models.Container, cfg NNConfig, opts ...Option) (*Router, error) {
	s := applyOptions(opts)
	nn, err := NewNearestNeighbor(ctx, candidates, cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return newRouter(candidates, nn, s), nil
}

func checkModelColumns(candidates *models.Container, ds *dataset.Dataset) error {
	for _, col := range ds.ModelColumns {
		if !candidates.Contains(col) {
			return services.NewConfigError(
				fmt.Sprintf("model %s not found in router's models but is in the data", col), nil).
				WithDetail("model", col)
		}
	}
	return nil
}

func (n *NearestNeighbor) Kind() string { return "NN" }

// K returns the number of voting neighbors.
func (n *NearestNeighbor) K() int { return n.k }

// Labels returns the best model of every historical row, by index id.
func (n *NearestNeighbor) Labels() []string {
	return append([]string(nil), n.labels...)
}

// Route picks the most common label among the input's neighbors. Ties go to the label
// seen first when neighbors are ordered by decreasing similarity.
func (n *NearestNeighbor) Route(ctx context.Context, input string) (Decision, error) {
	query, err := embedding.EmbedOne(ctx, n.embedder, input)
	if err != nil {
		return Decision{}, err
	}
	results, err := n.index.Search([][]float64{query}, n.k)
	if err != nil {
		return Decision{}, err
	}
	ids := results[0].IDs

	counts := make(map[string]int)
	for _, id := range ids {
		counts[n.labels[id]]++
	}
	var selection string
	for _, id := range ids {
		label := n.labels[id]
		if selection == "" || counts[label] > counts[selection] {
			selection = label
		}
	}

	return Decision{
		Selection: selection,
		Metadata: map[string]any{
			MetaNNIdxs:      ids,
			MetaModelCounts: counts,
		},
	}, nil
}
