package decisions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eun-legal/backend/internal/sourceapi/judilibre"
)

func TestCleanVisa(t *testing.T) {
	assert.Equal(t, "Art.R123", cleanVisa("<i>Art. R. 123</i>"))
	assert.Equal(t, "Art.L110-1ducodedecommerce", cleanVisa("Art. L. 110-1 du code de commerce"))
	assert.Equal(t, "ArtD45", cleanVisa("Art D. 45"))
	assert.Empty(t, cleanVisa("<br/>"))
}

func TestConvert_SummaryFallback(t *testing.T) {
	d := &judilibre.Decision{
		ID:      "dec1",
		Summary: "",
		TitlesAndSummaries: []judilibre.TitleAndSummary{
			{Title: "t1", Summary: ""},
			{Title: "t2", Summary: "Résumé de substitution."},
		},
	}

	row := convert(d)
	assert.Equal(t, "Résumé de substitution.", row.Summary)
}

func TestConvert_LocationDefaultsToJurisdiction(t *testing.T) {
	row := convert(&judilibre.Decision{ID: "dec1", Jurisdiction: "cc", Location: ""})
	assert.Equal(t, "cc", row.Location)

	row = convert(&judilibre.Decision{ID: "dec2", Jurisdiction: "ca", Location: "Cour d'appel de Paris"})
	assert.Equal(t, "Cour d'appel de Paris", row.Location)
}

func TestConvert_DefaultsNeverNil(t *testing.T) {
	row := convert(&judilibre.Decision{ID: "dec1"})

	assert.NotNil(t, row.Themes)
	assert.NotNil(t, row.Visas)
	assert.Empty(t, row.Themes)
	assert.Empty(t, row.Visas)
}

func TestZoneTexts_MotivationsOnly(t *testing.T) {
	text := "EXPOSE DU LITIGE. MOTIVATION DE LA COUR. PAR CES MOTIFS."
	d := &judilibre.Decision{
		Text: text,
		Zones: map[string][]judilibre.Zone{
			"expose":      {{Start: 0, End: 17}},
			"motivations": {{Start: 18, End: 41}},
			"dispositif":  {{Start: 42, End: len(text)}},
		},
	}

	zones := zoneTexts(d, "Un résumé.")
	require.Len(t, zones, 2)
	assert.Equal(t, "summary", zones[0].Zone)
	assert.Equal(t, "Un résumé.", zones[0].Text)
	assert.Equal(t, "motivations", zones[1].Zone)
	assert.Equal(t, "MOTIVATION DE LA COUR.", zones[1].Text)
}

func TestZoneTexts_NoZonesFallsBackToFullText(t *testing.T) {
	d := &judilibre.Decision{Text: "Texte intégral de la décision."}

	zones := zoneTexts(d, "")
	require.Len(t, zones, 1)
	assert.Equal(t, "text", zones[0].Zone)
	assert.Equal(t, "Texte intégral de la décision.", zones[0].Text)
}

func TestZoneTexts_ClampsOutOfRangeOffsets(t *testing.T) {
	d := &judilibre.Decision{
		Text: "court",
		Zones: map[string][]judilibre.Zone{
			"motivations": {{Start: -3, End: 100}, {Start: 4, End: 2}},
		},
	}

	zones := zoneTexts(d, "")
	require.Len(t, zones, 1)
	assert.Equal(t, "court", zones[0].Text)
}
