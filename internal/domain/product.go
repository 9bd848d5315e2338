package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable catalog entry. Price is the current
// list price; orders snapshot it into their items at purchase time.
type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SKU       string          `json:"sku" db:"sku"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// InventoryRecord tracks the on-hand quantity for one product.
// on_hand is never negative at any committed state.
type InventoryRecord struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	OnHand    int       `json:"on_hand" db:"on_hand"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
