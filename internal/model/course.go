package model

import "time"

// Course is a self-paced course from the academy catalog.
type Course struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Slug          string    `json:"slug" db:"slug"`
	Summary       string    `json:"summary" db:"summary"`
	Level         string    `json:"level" db:"level"`
	PriceCents    int       `json:"priceCents" db:"price_cents"`
	DurationWeeks int       `json:"durationWeeks" db:"duration_weeks"`
	PublishedAt   time.Time `json:"publishedAt" db:"published_at"`

	// FetchedAt records when this row was last refreshed from the
	// backend. Set by the store on upsert when zero.
	FetchedAt time.Time `json:"-" db:"fetched_at"`
}
