package judilibre

// Zone is an offset range into a decision's full text.
type Zone struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Visa references a legal text cited by the decision. Titles come back as
// HTML fragments.
type Visa struct {
	Title string `json:"title"`
}

type TitleAndSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Decision is a Judilibre decision record. Zones map zone names to the
// offset ranges covering them in Text.
type Decision struct {
	ID                 string            `json:"id"`
	Jurisdiction       string            `json:"jurisdiction"`
	Location           string            `json:"location"`
	Chamber            string            `json:"chamber"`
	Number             string            `json:"number"`
	DecisionDate       string            `json:"decision_date"`
	Type               string            `json:"type"`
	Solution           string            `json:"solution"`
	Summary            string            `json:"summary"`
	Text               string            `json:"text"`
	Zones              map[string][]Zone `json:"zones"`
	Themes             []string          `json:"themes"`
	Visa               []Visa            `json:"visa"`
	TitlesAndSummaries []TitleAndSummary `json:"titlesAndSummaries"`
}

// ExportBatch is one page of the export crawl.
type ExportBatch struct {
	Batch   int        `json:"batch"`
	Total   int        `json:"total"`
	Results []Decision `json:"results"`
}
