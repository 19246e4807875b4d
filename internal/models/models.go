package models

import "time"

// ItemKind distinguishes general news items from vulnerability records.
type ItemKind string

const (
	KindNews          ItemKind = "news"
	KindVulnerability ItemKind = "vulnerability"
)

// NewsItem is the uniform record produced by the feed normalizer and the
// NVD enricher, and consumed by the aggregator and the idea generator.
type NewsItem struct {
	Title   string
	Link    string
	Summary string
	Source  string
	Kind    ItemKind

	// Published is the zero time when the source provided no parseable date.
	Published time.Time

	// CVEID is set only for vulnerability items where a CVE-YYYY-NNNN+
	// identifier was found.
	CVEID string

	// CVSSScore is 0.0-10.0; HasCVSS reports whether a score was present at
	// all, since 0.0 is a valid score.
	CVSSScore float64
	HasCVSS   bool
}

// Idea is one AI-generated project idea, traceable to a specific news item.
type Idea struct {
	ID              int64     `db:"id" json:"-"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	InspirationLink string    `db:"inspiration_link" json:"inspiration_link"`
	Requirements    []string  `db:"-" json:"requirements"`
	Functionalities []string  `db:"-" json:"functionalities"`
	CreatedAt       time.Time `db:"created_at" json:"-"`
	Implemented     bool      `db:"implemented" json:"-"`
	ImplementedAt   time.Time `db:"implemented_at" json:"-"`
}

// IdeaCounts summarizes the ideas table.
type IdeaCounts struct {
	Total         int
	Implemented   int
	Unimplemented int
}
