package articles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eun-legal/backend/internal/sourceapi/legifrance"
)

func TestFilterBoilerplate(t *testing.T) {
	stubs := []legifrance.ArticleStub{
		{ID: "a", Num: "1", Content: "Les dispositions du présent article entrent en vigueur immédiatement."},
		{ID: "b", Num: "2", Content: "a modifié les dispositions suivantes : art. 3 du code civil"},
		{ID: "c", Num: "3", Content: "ont abrogé les dispositions suivantes"},
		{ID: "d", Num: "4", Content: "Texte normatif ordinaire."},
	}

	got := filterBoilerplate(stubs)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestFilterBoilerplate_IgnoresCase(t *testing.T) {
	stubs := []legifrance.ArticleStub{
		{ID: "a", Num: "1", Content: "A MODIFIÉ LES DISPOSITIONS SUIVANTES : ART. 3 DU CODE CIVIL"},
		{ID: "b", Num: "2", Content: "Ont Abrogé les dispositions suivantes"},
		{ID: "c", Num: "3", Content: "Texte normatif ordinaire."},
	}

	got := filterBoilerplate(stubs)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestShortenLawTitle(t *testing.T) {
	title := "LOI n° 2021-1104 du 22 août 2021 portant lutte contre le dérèglement climatique et renforcement de la résilience face à ses effets"

	short, date := shortenLawTitle(title)
	assert.Equal(t, "LOI n° 2021-1104 du 22 août 2021", short)
	assert.Equal(t, "2021-08-22", date)
}

func TestShortenLawTitle_FirstOfMonth(t *testing.T) {
	short, date := shortenLawTitle("LOI n° 1901-07-01 du 1er juillet 1901 relative au contrat d'association")
	assert.Equal(t, "LOI n° 1901-07-01 du 1er juillet 1901", short)
	assert.Equal(t, "1901-07-01", date)
}

func TestShortenLawTitle_NoDate(t *testing.T) {
	short, date := shortenLawTitle("Ordonnance sans date identifiable")
	assert.Equal(t, "Ordonnance sans date identifiable", short)
	assert.Empty(t, date)
}
