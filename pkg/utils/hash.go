package utils

import "hash/fnv"

// PointID derives a stable non-negative int64 from the given identity
// parts, joined with an unlikely separator. Embedding points use it as
// their primary key so that re-embedding the same chunk overwrites the
// same point instead of appending a new one.
func PointID(parts ...string) int64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte(p))
	}
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
