package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Read-model rows handed to reporting collaborators. Pure query
// results, never written back.

// OrderSummary is one row of the order listing
type OrderSummary struct {
	OrderID      uuid.UUID       `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Status       OrderStatus     `json:"status"`
	OrderTotal   decimal.Decimal `json:"order_total"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderDetail is the full line-item view of one order
type OrderDetail struct {
	Order    Order             `json:"order"`
	Customer Customer          `json:"customer"`
	Items    []OrderDetailLine `json:"items"`
	Payments []Payment         `json:"payments"`
}

// OrderDetailLine is one line item joined with its product identity
type OrderDetailLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// LowStockEntry is one product under the low-stock threshold
type LowStockEntry struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	OnHand    int       `json:"on_hand"`
}

// ProductRevenue is one row of the top-products-by-revenue report
type ProductRevenue struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// PaymentReconciliationRow compares an order's derived total against
// its recorded payment
type PaymentReconciliationRow struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderStatus   OrderStatus     `json:"order_status"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Method        PaymentMethod   `json:"method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Amount        decimal.Decimal `json:"amount"`
	Matches       bool            `json:"matches"`
}
