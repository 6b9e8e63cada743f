package domain

// CartLine is one position in the remote shopping cart.
type CartLine struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Sum       float64 `json:"sum"` // derived: price * quantity
}
