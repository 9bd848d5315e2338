package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// ReportRepository exposes the read-only queries reporting
// collaborators consume. Plain committed reads, no locks, no writes.
type ReportRepository interface {
	OrderSummaries(ctx context.Context, limit int) ([]domain.OrderSummary, error)
	OrderDetail(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetail, error)
	TopProductsByRevenue(ctx context.Context, limit int) ([]domain.ProductRevenue, error)
	PaymentReconciliation(ctx context.Context) ([]domain.PaymentReconciliationRow, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

// OrderSummaries lists orders newest first
func (r *reportRepository) OrderSummaries(ctx context.Context, limit int) ([]domain.OrderSummary, error) {
	query := `
		SELECT o.id, c.name, o.status, o.order_total, o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list order summaries: %w", err)
	}
	defer rows.Close()

	summaries := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		err := rows.Scan(&s.OrderID, &s.CustomerName, &s.Status, &s.OrderTotal, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order summaries: %w", err)
	}

	return summaries, nil
}

// OrderDetail returns one order with its customer, frozen-price line
// items and payments
func (r *reportRepository) OrderDetail(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetail, error) {
	detail := &domain.OrderDetail{}

	err := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.customer_id, o.status, o.order_total, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, orderID).Scan(
		&detail.Order.ID, &detail.Order.CustomerID, &detail.Order.Status,
		&detail.Order.OrderTotal, &detail.Order.CreatedAt, &detail.Order.UpdatedAt,
		&detail.Customer.ID, &detail.Customer.Name, &detail.Customer.Email,
		&detail.Customer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, p.sku, p.name, oi.quantity, oi.unit_price,
		       ROUND(oi.quantity * oi.unit_price, 2)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY p.sku ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer itemRows.Close()

	detail.Items = []domain.OrderDetailLine{}
	for itemRows.Next() {
		var line domain.OrderDetailLine
		err := itemRows.Scan(&line.ProductID, &line.SKU, &line.Name,
			&line.Quantity, &line.UnitPrice, &line.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		detail.Items = append(detail.Items, line)
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	payRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, amount, method, status, paid_at, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	defer payRows.Close()

	detail.Payments = []domain.Payment{}
	for payRows.Next() {
		var p domain.Payment
		err := payRows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method,
			&p.Status, &p.PaidAt, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		detail.Payments = append(detail.Payments, p)
	}
	if err = payRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return detail, nil
}

// TopProductsByRevenue groups order items by product and ranks by
// revenue, highest first. Cancelled orders are excluded: their stock
// came back and their money never settled.
func (r *reportRepository) TopProductsByRevenue(ctx context.Context, limit int) ([]domain.ProductRevenue, error) {
	query := `
		SELECT p.id, p.sku, p.name,
		       SUM(oi.quantity)::INT,
		       ROUND(SUM(oi.quantity * oi.unit_price), 2)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status NOT IN ('cancelled', 'refunded')
		GROUP BY p.id, p.sku, p.name
		ORDER BY SUM(oi.quantity * oi.unit_price) DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank products by revenue: %w", err)
	}
	defer rows.Close()

	ranking := []domain.ProductRevenue{}
	for rows.Next() {
		var pr domain.ProductRevenue
		err := rows.Scan(&pr.ProductID, &pr.SKU, &pr.Name, &pr.UnitsSold, &pr.Revenue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product revenue: %w", err)
		}
		ranking = append(ranking, pr)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product revenue: %w", err)
	}

	return ranking, nil
}

// PaymentReconciliation pairs every payment with its order total and
// flags amount mismatches
func (r *reportRepository) PaymentReconciliation(ctx context.Context) ([]domain.PaymentReconciliationRow, error) {
	query := `
		SELECT o.id, o.status, o.order_total,
		       p.id, p.method, p.status, p.amount,
		       (p.amount = o.order_total)
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		ORDER BY p.method ASC, p.status ASC, o.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payments: %w", err)
	}
	defer rows.Close()

	report := []domain.PaymentReconciliationRow{}
	for rows.Next() {
		var row domain.PaymentReconciliationRow
		err := rows.Scan(
			&row.OrderID, &row.OrderStatus, &row.OrderTotal,
			&row.PaymentID, &row.Method, &row.PaymentStatus, &row.Amount,
			&row.Matches,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation row: %w", err)
		}
		report = append(report, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reconciliation rows: %w", err)
	}

	return report, nil
}
