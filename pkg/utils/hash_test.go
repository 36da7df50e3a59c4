package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("LEGIARTI000006419280", "12-3", "0")
	b := PointID("LEGIARTI000006419280", "12-3", "0")
	assert.Equal(t, a, b)
}

func TestPointID_DistinguishesParts(t *testing.T) {
	base := PointID("doc", "12", "0")

	assert.NotEqual(t, base, PointID("doc", "12", "1"))
	assert.NotEqual(t, base, PointID("doc", "13", "0"))
	// The separator keeps adjacent parts from merging.
	assert.NotEqual(t, PointID("ab", "c"), PointID("a", "bc"))
}

func TestPointID_NonNegative(t *testing.T) {
	inputs := []string{"", "a", "é", "judilibre", "5ffe85a2c5e3a1f2b7c9"}
	for _, in := range inputs {
		assert.GreaterOrEqual(t, PointID(in), int64(0))
	}
}
