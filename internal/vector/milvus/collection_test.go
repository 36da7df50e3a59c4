package milvus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExpr(t *testing.T) {
	assert.Empty(t, buildExpr(nil))

	expr := buildExpr(map[string]string{"doc_id": "LEGIARTI123"})
	assert.Equal(t, `doc_id == "LEGIARTI123"`, expr)

	expr = buildExpr(map[string]string{
		"zone":   "motivations",
		"doc_id": "d1",
	})
	// Fields render in a fixed order regardless of map order.
	assert.Equal(t, `doc_id == "d1" && zone == "motivations"`, expr)
}

func TestBuildExpr_EscapesQuotes(t *testing.T) {
	expr := buildExpr(map[string]string{"title": `Code "civil" \ annexe`})
	assert.Equal(t, `title == "Code \"civil\" \\ annexe"`, expr)
}

func TestBuildExpr_IgnoresUnknownFields(t *testing.T) {
	expr := buildExpr(map[string]string{"embedding": "x", "doc_id": "d1"})
	assert.Equal(t, `doc_id == "d1"`, expr)
}

func TestMarshalList(t *testing.T) {
	assert.Equal(t, "[]", marshalList(nil))
	assert.Equal(t, `["contrat","responsabilité"]`, marshalList([]string{"contrat", "responsabilité"}))
}

func TestCollectionNames(t *testing.T) {
	assert.Equal(t, "legifrance_embeddings_1024", LegiFranceCollection(1024))
	assert.Equal(t, "judilibre_embeddings_cc_768", JudilibreCollection("cc", 768))
}
