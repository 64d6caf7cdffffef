package model

import "time"

// Workshop is a scheduled live session with limited capacity.
type Workshop struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Location   string    `json:"location" db:"location"`
	StartsAt   time.Time `json:"startsAt" db:"starts_at"`
	Capacity   int       `json:"capacity" db:"capacity"`
	SpotsLeft  int       `json:"spotsLeft" db:"spots_left"`
	PriceCents int       `json:"priceCents" db:"price_cents"`

	FetchedAt time.Time `json:"-" db:"fetched_at"`
}

// Product is a physical or digital item sold through the academy shop.
// Products are fetched on demand and not cached locally.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"priceCents"`
	InStock     bool   `json:"inStock"`
}
