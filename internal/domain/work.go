package domain

import "time"

// Work is a portfolio item (finished sewing work shown on the storefront).
type Work struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"created_at"`
}
