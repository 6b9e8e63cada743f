package domain

import "time"

// Ref is a flattened relation reference (category, brand). The backend may
// deliver relations in several nested shapes; after normalization only this
// shape is visible to callers.
type Ref struct {
	ID   int64  `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	Slug string `json:"slug" mapstructure:"slug"`
}

// Product is the flat client-side product record.
type Product struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	DiscountPrice   *float64 `json:"discount_price,omitempty"`
	DiscountPercent float64  `json:"discount_percent"`
	Stock           int      `json:"stock"`
	InStock         bool     `json:"in_stock"` // derived: stock > 0

	// fabric metadata
	Article     string `json:"article"`
	Composition string `json:"composition"`
	Width       string `json:"width"`
	Density     string `json:"density"`
	Country     string `json:"country"`

	Category *Ref `json:"category,omitempty"`
	Brand    *Ref `json:"brand,omitempty"`

	Image  string   `json:"image"`
	Images []string `json:"images"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
