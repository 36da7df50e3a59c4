package decisions

import (
	"strings"

	"github.com/eun-legal/backend/internal/sourceapi/judilibre"
	"github.com/eun-legal/backend/internal/storage/models"
	"github.com/eun-legal/backend/pkg/utils"
)

// ZoneText is one embeddable passage of a decision with the zone it came
// from.
type ZoneText struct {
	Zone string
	Text string
}

// convert maps an API decision onto the stored model, filling the gaps the
// API leaves: a missing summary falls back to the first title-and-summary
// entry, visa references are cleaned into a compact citation form, and
// list fields are never nil.
func convert(d *judilibre.Decision) *models.Decision {
	summary := strings.TrimSpace(d.Summary)
	if summary == "" {
		for _, ts := range d.TitlesAndSummaries {
			if s := strings.TrimSpace(ts.Summary); s != "" {
				summary = s
				break
			}
		}
	}

	visas := make([]string, 0, len(d.Visa))
	for _, v := range d.Visa {
		if cleaned := cleanVisa(v.Title); cleaned != "" {
			visas = append(visas, cleaned)
		}
	}

	themes := d.Themes
	if themes == nil {
		themes = []string{}
	}

	// Cour de cassation decisions carry no location of their own.
	location := strings.TrimSpace(d.Location)
	if location == "" {
		location = d.Jurisdiction
	}

	return &models.Decision{
		ID:           d.ID,
		Jurisdiction: d.Jurisdiction,
		Location:     location,
		Chamber:      d.Chamber,
		Number:       d.Number,
		DecisionDate: d.DecisionDate,
		Type:         d.Type,
		Text:         d.Text,
		Solution:     d.Solution,
		Summary:      summary,
		Motivations:  convertZones(d.Zones["motivations"]),
		Themes:       themes,
		Visas:        visas,
	}
}

// cleanVisa normalizes a cited text reference: HTML is stripped, the
// article family markers lose their dotted spacing, and all remaining
// whitespace is removed ("<i>Art. R. 123</i>" becomes "Art.R123").
func cleanVisa(title string) string {
	s := utils.StripHTML(title)
	s = strings.ReplaceAll(s, "R. ", "R")
	s = strings.ReplaceAll(s, "D. ", "D")
	s = strings.ReplaceAll(s, "L. ", "L")
	return strings.Join(strings.Fields(s), "")
}

// zoneTexts selects the passages worth embedding: the summary and the
// motivation zones. A decision with no zone map at all is embedded whole.
// Other zones (expose, dispositif...) restate facts or outcomes already
// covered and are skipped.
func zoneTexts(d *judilibre.Decision, summary string) []ZoneText {
	var out []ZoneText

	if summary != "" {
		out = append(out, ZoneText{Zone: "summary", Text: summary})
	}

	if len(d.Zones) == 0 {
		if t := strings.TrimSpace(d.Text); t != "" {
			out = append(out, ZoneText{Zone: "text", Text: t})
		}
		return out
	}

	for name, zones := range d.Zones {
		switch name {
		case "motivations":
			for _, z := range zones {
				if t := strings.TrimSpace(sliceZone(d.Text, z)); t != "" {
					out = append(out, ZoneText{Zone: "motivations", Text: t})
				}
			}
		default:
		}
	}

	return out
}

func sliceZone(text string, z judilibre.Zone) string {
	start, end := z.Start, z.End
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}

func convertZones(zones []judilibre.Zone) []models.TextZone {
	out := make([]models.TextZone, 0, len(zones))
	for _, z := range zones {
		out = append(out, models.TextZone{Start: z.Start, End: z.End})
	}
	return out
}
