package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementReason classifies an inventory change
type MovementReason string

const (
	MovementReasonSale       MovementReason = "sale"
	MovementReasonRestock    MovementReason = "restock"
	MovementReasonAdjustment MovementReason = "adjustment"
	MovementReasonRefund     MovementReason = "refund"
)

// Valid reports whether r is one of the known movement reasons
func (r MovementReason) Valid() bool {
	switch r {
	case MovementReasonSale, MovementReasonRestock,
		MovementReasonAdjustment, MovementReasonRefund:
		return true
	}
	return false
}

// StockMovement is one append-only audit row per inventory change.
// ChangeQty is signed: negative for sales, positive for restocks and
// refunds. Rows are never updated or deleted, so replaying them from
// the initial stock always reproduces the current on-hand quantity.
type StockMovement struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	ProductID uuid.UUID      `json:"product_id" db:"product_id"`
	ChangeQty int            `json:"change_qty" db:"change_qty"`
	Reason    MovementReason `json:"reason" db:"reason"`
	OrderID   *uuid.UUID     `json:"order_id,omitempty" db:"order_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
