// Package reduction fits linear bases used to strip dominant directions from
// embeddings.
package reduction

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/upb/llm-router-lab/services"
)

// Reducer fits a basis of at most discard directions to vectors.
type Reducer interface {
	Fit(vectors [][]float64, discard int) (*Basis, error)
}

// Basis is an orthonormal set of directions plus the mean they were fitted around.
type Basis struct {
	mean []float64
	// components holds one direction per column, d×k. Nil when k is 0.
	components *mat.Dense
}

// Dim returns the dimension of the vectors the basis was fitted on.
func (b *Basis) Dim() int { return len(b.mean) }

// Size returns the number of directions in the basis.
func (b *Basis) Size() int {
	if b.components == nil {
		return 0
	}
	_, k := b.components.Dims()
	return k
}

// Mean returns a copy of the fitted mean.
func (b *Basis) Mean() []float64 {
	out := make([]float64, len(b.mean))
	copy(out, b.mean)
	return out
}

// Reconstruct returns the part of x explained by the basis: ((x-μ)V)Vᵀ.
func (b *Basis) Reconstruct(x []float64) ([]float64, error) {
	if len(x) != len(b.mean) {
		return nil, fmt.Errorf("vector dimension %d does not match basis dimension %d", len(x), len(b.mean))
	}
	out := make([]float64, len(x))
	if b.components == nil {
		return out, nil
	}

	centered := make([]float64, len(x))
	floats.SubTo(centered, x, b.mean)

	var coefs, recon mat.VecDense
	coefs.MulVec(b.components.T(), mat.NewVecDense(len(centered), centered))
	recon.MulVec(b.components, &coefs)
	copy(out, recon.RawVector().Data)
	return out, nil
}

// Residual returns x minus its reconstruction, the component of x that lies outside
// the basis directions.
func (b *Basis) Residual(x []float64) ([]float64, error) {
	recon, err := b.Reconstruct(x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, recon)
	return out, nil
}

// PCA fits principal directions in order of decreasing variance.
type PCA struct{}

// Fit implements Reducer. discard is clamped to min(n, d); fewer than two vectors have
// no variance and yield an empty basis.
func (PCA) Fit(vectors [][]float64, discard int) (*Basis, error) {
	n := len(vectors)
	if n == 0 {
		return nil, services.NewConfigError("cannot fit a basis on zero vectors", nil)
	}
	d := len(vectors[0])
	if d == 0 {
		return nil, services.NewConfigError("cannot fit a basis on empty vectors", nil)
	}

	x := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		if len(v) != d {
			return nil, services.NewConfigError(fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), d), nil)
		}
		x.SetRow(i, v)
	}

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := range mean {
		mat.Col(col, j, x)
		mean[j] = stat.Mean(col, nil)
	}

	k := min(discard, n, d)
	if k <= 0 || n < 2 {
		return &Basis{mean: mean}, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "principal component decomposition failed", nil)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, avail := vecs.Dims()
	k = min(k, avail)

	return &Basis{
		mean:       mean,
		components: mat.DenseCopyOf(vecs.Slice(0, d, 0, k)),
	}, nil
}
