package domain

import "time"

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	OrderID   int64     `json:"order_id,omitempty"` // optional back-reference
	CreatedAt time.Time `json:"created_at"`
}
