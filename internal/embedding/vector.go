package embedding

import (
	"fmt"
	"math"
)

// Normalize scales v to unit length in place and returns it. A zero vector
// cannot be normalized and is reported as an error.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, fmt.Errorf("cannot normalize a zero vector")
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

// Center reduces per-token vectors to a single unit vector: each vector is
// normalized, they are averaged component-wise, and the mean is normalized
// again. Backends that return one vector per input token go through this.
func Center(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if len(vectors) == 1 {
		return Normalize(vectors[0])
	}

	dim := len(vectors[0])
	mean := make([]float32, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("inconsistent vector dimensions: %d vs %d", len(v), dim)
		}
		nv, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		for i, x := range nv {
			mean[i] += x / float32(len(vectors))
		}
	}
	return Normalize(mean)
}
