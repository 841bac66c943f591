package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/dataset"
)

// Two clusters in 3-d space: A's prompts around the x axis, B's around the z axis.
func clusterFixture(t *testing.T) (*dataset.Dataset, *staticEmbedder) {
	t.Helper()
	ds, err := dataset.New("prompt", []string{"A", "B"},
		[]string{"a1", "a2", "a3", "a4", "b1", "b2", "b3", "b4"},
		[][]float64{{0, 1}, {0, 1}, {0, 1}, {0, 1}, {1, 0}, {1, 0}, {1, 0}, {1, 0}},
	)
	require.NoError(t, err)

	emb := &staticEmbedder{vectors: map[string][]float64{
		"a1":     {1, 0, 0},
		"a2":     {1, 0.2, 0},
		"a3":     {0.9, 0, 0.1},
		"a4":     {1.1, 0.1, 0},
		"b1":     {0, 0, 1},
		"b2":     {0.1, 0, 1},
		"b3":     {0, 0.2, 0.9},
		"b4":     {0, 0.1, 1.1},
		"near_a": {1, 0.05, 0.02},
		"near_b": {0.05, 0.05, 1},
	}}
	return ds, emb
}

func TestModelMapRouter_RoutesToClosestGroup(t *testing.T) {
	ds, emb := clusterFixture(t)
	r, err := NewModelMapRouter(context.Background(), namedModels(t, "A", "B"),
		ModelMapConfig{Dataset: ds, Embedder: emb, ModelDim: 2})
	require.NoError(t, err)

	tests := []struct {
		input string
		want  string
	}{
		{"near_a", "A"},
		{"near_b", "B"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := r.Run(context.Background(), tt.input, RunOptions{ReturnMetadata: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Output)

			scores := res.Metadata[MetaModelScores].(map[string]float64)
			assert.Len(t, scores, 2)
			for model, z := range scores {
				if model != tt.want {
					assert.Less(t, scores[tt.want], z)
				}
			}
		})
	}
}

func TestModelMap_CentroidHasZeroDistance(t *testing.T) {
	ds, emb := clusterFixture(t)
	mm, err := NewModelMap(context.Background(), namedModels(t, "A", "B"),
		ModelMapConfig{Dataset: ds, Embedder: emb, ModelDim: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, mm.Models())

	for _, model := range mm.Models() {
		c, err := mm.Centroid(model)
		require.NoError(t, err)
		d, err := mm.ProjectionDistance(model, c)
		require.NoError(t, err)
		assert.InDelta(t, 0, d, 1e-9)

		p, err := mm.Projection(model, c)
		require.NoError(t, err)
		assert.InDeltaSlice(t, c, p, 1e-9)

		// the centroid sits at distance 0, so its score is -mean/std of the group
		g := mm.byModel[model]
		z, err := mm.NormalizedDistance(model, c)
		require.NoError(t, err)
		assert.InDelta(t, -g.mean/g.std, z, 1e-9)
		assert.Less(t, z, 0.0)
	}
}

func TestModelMap_SingleRowGroups(t *testing.T) {
	ds, emb := historyFixture(t)
	ds, err := dataset.New(ds.InputColumn, ds.ModelColumns, ds.Inputs[:2], ds.Scores[:2])
	require.NoError(t, err)

	mm, err := NewModelMap(context.Background(), namedModels(t, "A", "B"),
		ModelMapConfig{Dataset: ds, Embedder: emb}, nil)
	require.NoError(t, err)

	z, err := mm.NormalizedDistance("A", []float64{1, 0})
	require.NoError(t, err)
	assert.Zero(t, z)

	d, err := mm.Route(context.Background(), "moons")
	require.NoError(t, err)
	assert.Equal(t, "B", d.Selection)
	assert.Zero(t, d.Metadata[MetaModelScores].(map[string]float64)["B"])
}

func TestModelMap_SkipsModelsWithoutWins(t *testing.T) {
	ds, err := dataset.New("prompt", []string{"A", "B"},
		[]string{"apples", "oranges"}, [][]float64{{0, 1}, {0, 1}})
	require.NoError(t, err)
	_, emb := historyFixture(t)

	mm, err := NewModelMap(context.Background(), namedModels(t, "A", "B"),
		ModelMapConfig{Dataset: ds, Embedder: emb}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, mm.Models())

	d, err := mm.Route(context.Background(), "planets")
	require.NoError(t, err)
	assert.Equal(t, "A", d.Selection)
}

func TestModelMap_Errors(t *testing.T) {
	ds, emb := historyFixture(t)
	ctx := context.Background()

	t.Run("construction", func(t *testing.T) {
		tests := []struct {
			name  string
			names []string
			cfg   ModelMapConfig
			check func(error) bool
		}{
			{"no dataset", []string{"A", "B"}, ModelMapConfig{Embedder: emb}, services.IsConfigurationError},
			{"no embedder", []string{"A", "B"}, ModelMapConfig{Dataset: ds}, services.IsConfigurationError},
			{"negative dimension", []string{"A", "B"}, ModelMapConfig{Dataset: ds, Embedder: emb, ModelDim: -1}, services.IsConfigurationError},
			{"column without model", []string{"B"}, ModelMapConfig{Dataset: ds, Embedder: emb}, services.IsConfigurationError},
			{"embedding failure", []string{"A", "B"}, ModelMapConfig{Dataset: ds, Embedder: &staticEmbedder{}}, services.IsExternalError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewModelMapRouter(ctx, namedModels(t, tt.names...), tt.cfg)
				assert.True(t, tt.check(err), "unexpected error %v", err)
			})
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		mm, err := NewModelMap(ctx, namedModels(t, "A", "B"), ModelMapConfig{Dataset: ds, Embedder: emb}, nil)
		require.NoError(t, err)

		_, err = mm.Centroid("C")
		assert.True(t, errors.Is(err, services.ErrMissingKey))
		_, err = mm.NormalizedDistance("C", []float64{1, 0})
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		mm, err := NewModelMap(ctx, namedModels(t, "A", "B"), ModelMapConfig{Dataset: ds, Embedder: emb}, nil)
		require.NoError(t, err)

		_, err = mm.ProjectionDistance("A", []float64{1, 0, 0})
		assert.Error(t, err)
	})
}
