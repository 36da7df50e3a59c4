package models

import "time"

// CodeOrLaw is a titled legal text container: a code (code civil, code
// pénal...) or a statute. It owns articles via a cascading foreign key.
type CodeOrLaw struct {
	ID        string
	Title     string
	TitleFull string
	State     string
	StartDate time.Time
	EndDate   time.Time
}

// Article is one legal provision of a code or law. Number may be compound
// ("12-3-1"), or not a number at all for annexes.
type Article struct {
	ID        string
	CodeID    string
	Number    string
	Text      string
	State     string
	StartDate time.Time
	EndDate   time.Time
}

// TextZone is an offset range into a decision's full text.
type TextZone struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Decision is a court ruling from the Judilibre corpus. Rows are
// partitioned per jurisdiction (one table per jurisdiction code).
type Decision struct {
	ID           string
	Jurisdiction string
	Location     string
	Chamber      string
	Number       string
	DecisionDate string
	Type         string
	Text         string
	Solution     string
	Summary      string
	Motivations  []TextZone
	Themes       []string
	Visas        []string
}

// DecisionCacheEntry records a decision id discovered during an export
// crawl, so that full bodies can be fetched in a later pass independently
// of export pagination drift.
type DecisionCacheEntry struct {
	ID           string
	DecisionDate string
}
