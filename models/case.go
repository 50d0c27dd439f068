package models

import "time"

// Case is a court judgment in the catalogue.
type Case struct {
	ID          string    `bson:"id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Citation    string    `bson:"citation,omitempty" json:"citation,omitempty"`
	Court       string    `bson:"court" json:"court"`
	Year        int       `bson:"year" json:"year"`
	Judges      []string  `bson:"judges,omitempty" json:"judges,omitempty"`
	Summary     string    `bson:"summary,omitempty" json:"summary,omitempty"`
	Content     string    `bson:"content,omitempty" json:"content,omitempty"`
	DocumentURL string    `bson:"document_url,omitempty" json:"document_url,omitempty"`
	Tags        []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	DecidedAt   time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}

// Preview strips the protected parts of a case for list views.
func (c Case) Preview() Case {
	c.Content = ""
	c.DocumentURL = ""
	return c
}

// CaseFilter narrows the case list. Zero values match everything.
type CaseFilter struct {
	Query string `form:"q"`
	Court string `form:"court"`
	Year  int    `form:"year"`
	Tag   string `form:"tag"`
}

// CaseNote is a private annotation a user attaches to a case.
type CaseNote struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	CaseID    string    `bson:"case_id" json:"case_id"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SearchResult is the envelope returned by the external legal search API.
type SearchResult struct {
	Query   string      `json:"query"`
	Page    int         `json:"page"`
	Found   string      `json:"found,omitempty"`
	Results []SearchDoc `json:"results"`
}

// SearchDoc is one hit of a legal search.
type SearchDoc struct {
	DocID    int64  `json:"tid"`
	Title    string `json:"title"`
	Headline string `json:"headline"`
	Source   string `json:"docsource"`
	Size     int    `json:"docsize,omitempty"`
}
