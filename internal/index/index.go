package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

// Result is one search hit: the dense id assigned at build time and the
// squared euclidean distance to the query.
type Result struct {
	ID       int
	Distance float64
}

// VectorIndex is an append-only brute-force nearest-neighbor index. Ids
// are dense 0-based integers assigned in build input order; they are the
// only stable handle into the metadata table. The index is read-only once
// built and safe for concurrent Search calls.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	metadata  []model.ChunkMetadata
	built     bool
}

func New() *VectorIndex {
	return &VectorIndex{}
}

// Build loads vectors and their metadata. Counts must agree and every
// vector must share one dimension.
func (idx *VectorIndex) Build(vectors [][]float32, metadata []model.ChunkMetadata) error {
	if len(vectors) != len(metadata) {
		return fmt.Errorf("%w: %d vectors vs %d metadata rows", appErr.ErrDimensionMismatch, len(vectors), len(metadata))
	}
	if len(vectors) == 0 {
		return fmt.Errorf("%w: empty build input", appErr.ErrDimensionMismatch)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-width vector at id 0", appErr.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has width %d, want %d", appErr.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dimension = dim
	idx.vectors = vectors
	idx.metadata = metadata
	idx.built = true
	return nil
}

// Search returns the k entries with smallest squared euclidean distance to
// the query, ascending, ties broken by lower id. k is clamped to the index
// size.
func (idx *VectorIndex) Search(query []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.built {
		return nil, appErr.ErrNotBuilt
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query width %d, index width %d", appErr.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}
	results := make([]Result, len(idx.vectors))
	for i, v := range idx.vectors {
		results[i] = Result{ID: i, Distance: squaredL2(query, v)}
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Distance != results[b].Distance {
			return results[a].Distance < results[b].Distance
		}
		return results[a].ID < results[b].ID
	})
	return results[:k], nil
}

// Metadata returns the record for a dense id.
func (idx *VectorIndex) Metadata(id int) (model.ChunkMetadata, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.built {
		return model.ChunkMetadata{}, appErr.ErrNotBuilt
	}
	if id < 0 || id >= len(idx.metadata) {
		return model.ChunkMetadata{}, fmt.Errorf("%w: id %d", appErr.ErrNotFound, id)
	}
	return idx.metadata[id], nil
}

func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func (idx *VectorIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
