package storage

import "time"

// CartItem is one product line in a user's cart.
type CartItem struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preferences are per-user viewer settings that outlive a session.
type Preferences struct {
	UserID string `json:"user_id"`
	Muted  bool   `json:"muted"`
}

// Counts summarises the catalog for the import report.
type Counts struct {
	Reviews  int `json:"reviews"`
	Products int `json:"products"`
}
