package routing

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb/llm-router-lab/services/dataset"
	"github.com/upb/llm-router-lab/services/models"
)

// staticEmbedder returns fixed vectors and counts how many texts it embedded.
type staticEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (e *staticEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls += len(texts)
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func constant(answer string) models.Func {
	return func(context.Context, string) (any, error) { return answer, nil }
}

func namedModels(t *testing.T, names ...string) *models.Container {
	t.Helper()
	c, err := models.NewNamedDict()
	require.NoError(t, err)
	for _, name := range names {
		_, err := c.Add(models.Spec{Name: name, Description: "always answers " + name, Model: constant(name)})
		require.NoError(t, err)
	}
	return c
}

// Four historical prompts, two best answered by A and two by B (lower is better).
func historyFixture(t *testing.T) (*dataset.Dataset, *staticEmbedder) {
	t.Helper()
	ds, err := dataset.New("prompt", []string{"A", "B"},
		[]string{"apples", "moons", "oranges", "planets"},
		[][]float64{{0, 1}, {1, 0}, {0, 1}, {1, 0}},
	)
	require.NoError(t, err)

	emb := &staticEmbedder{vectors: map[string][]float64{
		"apples":  {1, 0},
		"moons":   {0, 1},
		"oranges": {0.9, 0.3},
		"planets": {0.1, 1},
		"fruit":   {1, 0.5},
		"sky":     {0.4, 1},
		"mixed":   {1, 0.95},
	}}
	return ds, emb
}

func nanScore() float64 { return math.NaN() }
