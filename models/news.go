package models

import "time"

// LegalNews is a news headline collected by the aggregator.
type LegalNews struct {
	ID          string     `bson:"id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Link        string     `bson:"link" json:"link"`
	Summary     string     `bson:"summary,omitempty" json:"summary,omitempty"`
	Source      string     `bson:"source" json:"source"`
	ImageURL    string     `bson:"image_url,omitempty" json:"image_url,omitempty"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
	FetchedAt   time.Time  `bson:"fetched_at" json:"fetched_at"`
}
