// Package vectorindex provides nearest-neighbor search over embeddings.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/upb/llm-router-lab/services"
)

// Index stores vectors under consecutive ids starting at 0 and answers top-k
// similarity queries.
type Index interface {
	Add(vectors [][]float64) error
	Search(queries [][]float64, k int) ([]Result, error)
	Len() int
	Dim() int
}

// Result lists the neighbors of one query ordered by decreasing similarity.
type Result struct {
	IDs    []int
	Scores []float64
}

// FlatIP is an exhaustive inner-product index. Equal scores rank the lower id first.
type FlatIP struct {
	mu        sync.RWMutex
	dim       int
	normalize bool
	vectors   [][]float64
}

// Option configures a FlatIP index.
type Option func(*FlatIP)

// WithNormalization scales stored and query vectors to unit length, turning the
// inner product into cosine similarity.
func WithNormalization() Option {
	return func(f *FlatIP) { f.normalize = true }
}

func NewFlatIP(dim int, opts ...Option) (*FlatIP, error) {
	if dim <= 0 {
		return nil, services.NewConfigError(fmt.Sprintf("index dimension must be positive, got %d", dim), nil)
	}
	f := &FlatIP{dim: dim}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FlatIP) Dim() int { return f.dim }

func (f *FlatIP) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Add appends vectors; the i-th added vector gets id Len()+i.
func (f *FlatIP) Add(vectors [][]float64) error {
	prepared := make([][]float64, 0, len(vectors))
	for i, v := range vectors {
		p, err := f.prepare(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		prepared = append(prepared, p)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, prepared...)
	return nil
}

func (f *FlatIP) prepare(v []float64) ([]float64, error) {
	if len(v) != f.dim {
		return nil, services.NewConfigError(fmt.Sprintf("dimension %d does not match index dimension %d", len(v), f.dim), nil)
	}
	out := make([]float64, len(v))
	copy(out, v)
	if f.normalize {
		if n := floats.Norm(out, 2); n > 0 {
			floats.Scale(1/n, out)
		}
	}
	return out, nil
}

// Search returns the k most similar stored vectors for each query. k is clamped to Len().
func (f *FlatIP) Search(queries [][]float64, k int) ([]Result, error) {
	if k <= 0 {
		return nil, services.NewConfigError(fmt.Sprintf("k must be positive, got %d", k), nil)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	k = min(k, len(f.vectors))
	results := make([]Result, 0, len(queries))
	scores := make([]float64, len(f.vectors))
	for qi, q := range queries {
		pq, err := f.prepare(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", qi, err)
		}
		for i, v := range f.vectors {
			scores[i] = floats.Dot(v, pq)
		}

		ids := make([]int, len(f.vectors))
		for i := range ids {
			ids[i] = i
		}
		sort.SliceStable(ids, func(a, b int) bool { return scores[ids[a]] > scores[ids[b]] })

		res := Result{IDs: ids[:k], Scores: make([]float64, k)}
		for i, id := range res.IDs {
			res.Scores[i] = scores[id]
		}
		results = append(results, res)
	}
	return results, nil
}
