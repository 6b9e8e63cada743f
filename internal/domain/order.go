package domain

import "time"

// Order status pipeline. Transition legality is backend-owned; the client
// ships the vocabulary and a presentation-level cancel rule only.
const (
	OrderStatusCreated    = "created"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "paid"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// CanCancelOrder mirrors the cancel action the storefront UI offers. It is a
// presentation restriction, not a data-model invariant.
func CanCancelOrder(status string) bool {
	return status == OrderStatusCreated || status == OrderStatusProcessing
}

type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID        int64       `json:"id"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Address   string      `json:"address"`
	Payment   string      `json:"payment"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
