package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrProductNotActive    = errors.New("product is not active")
	ErrOrderNotCancellable = errors.New("order is not in a cancellable state")
)

// currencyPlaces is the rounding precision for all money amounts
const currencyPlaces = 2

// CheckoutRepository owns the transactional state transitions of the
// order lifecycle. Each method is one all-or-nothing unit of work;
// inventory rows are always locked in ascending product-ID order so
// two carts sharing products cannot deadlock.
type CheckoutRepository interface {
	// PlaceOrder converts a validated cart into a committed pending
	// order with decremented stock, sale movements and an initiated
	// payment, or fails with no visible effect.
	PlaceOrder(ctx context.Context, customerID uuid.UUID, lines []domain.CartLine, method domain.PaymentMethod) (*domain.Order, *domain.Payment, error)
	// ConfirmPayment applies an external settlement signal. Delivering
	// the same signal more than once is a no-op.
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, outcome domain.PaymentStatus) (*domain.Payment, error)
	// CancelOrder reverses a pending order: restores stock, appends
	// refund movements mirroring the sale rows, marks the order cancelled.
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type checkoutRepository struct {
	db            *sql.DB
	lockTimeoutMs int
}

// NewCheckoutRepository creates a new instance of CheckoutRepository.
// lockTimeoutMs bounds how long a transaction waits for contended
// inventory rows before surfacing a retryable conflict.
func NewCheckoutRepository(db *sql.DB, lockTimeoutMs int) CheckoutRepository {
	if lockTimeoutMs <= 0 {
		lockTimeoutMs = 3000
	}
	return &checkoutRepository{db: db, lockTimeoutMs: lockTimeoutMs}
}

// sortLines orders cart lines by ascending product UUID. This is the
// deterministic lock-acquisition order for every code path that locks
// more than one inventory row.
func sortLines(lines []domain.CartLine) []domain.CartLine {
	sorted := make([]domain.CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]) < 0
	})
	return sorted
}

func (r *checkoutRepository) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Bound lock waits so contention surfaces as a retryable conflict
	// instead of an indefinite stall. SET LOCAL scopes it to this tx.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeoutMs)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	return tx, nil
}

func (r *checkoutRepository) PlaceOrder(ctx context.Context, customerID uuid.UUID, lines []domain.CartLine, method domain.PaymentMethod) (*domain.Order, *domain.Payment, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		OrderTotal: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, order_total, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`, order.ID, order.CustomerID, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, nil, translateConcurrency(fmt.Errorf("failed to create order: %w", err))
	}

	total := decimal.Zero
	for _, line := range sortLines(lines) {
		var (
			onHand int
			price  decimal.Decimal
			sku    string
			active bool
		)

		// Lock the inventory row; the product row is only read. The
		// price read here is the snapshot frozen into the order item.
		err = tx.QueryRowContext(ctx, `
			SELECT i.on_hand, p.price, p.sku, p.active
			FROM inventory i
			JOIN products p ON p.id = i.product_id
			WHERE i.product_id = $1
			FOR UPDATE OF i
		`, line.ProductID).Scan(&onHand, &price, &sku, &active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, ErrProductNotFound
			}
			return nil, nil, translateConcurrency(fmt.Errorf("failed to lock inventory: %w", err))
		}

		if !active {
			return nil, nil, ErrProductNotActive
		}

		if onHand < line.Quantity {
			return nil, nil, &InsufficientStockError{
				ProductID: line.ProductID,
				SKU:       sku,
				Requested: line.Quantity,
				OnHand:    onHand,
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), order.ID, line.ProductID, line.Quantity, price)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert order item: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory SET on_hand = on_hand - $2 WHERE product_id = $1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return nil, nil, translateConcurrency(fmt.Errorf("failed to decrement inventory: %w", err))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, change_qty, reason, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), line.ProductID, -line.Quantity, domain.MovementReasonSale, order.ID, now)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to record sale movement: %w", err)
		}

		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order.OrderTotal = total.Round(currencyPlaces)

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET order_total = $2 WHERE id = $1
	`, order.ID, order.OrderTotal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update order total: %w", err)
	}

	payment := &domain.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    order.OrderTotal,
		Method:    method,
		Status:    domain.PaymentStatusInitiated,
		CreatedAt: now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, payment.ID, payment.OrderID, payment.Amount, payment.Method, payment.Status, payment.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, translateConcurrency(fmt.Errorf("failed to commit order: %w", err))
	}

	return order, payment, nil
}

func (r *checkoutRepository) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, outcome domain.PaymentStatus) (*domain.Payment, error) {
	if outcome != domain.PaymentStatusConfirmed && outcome != domain.PaymentStatusFailed {
		return nil, fmt.Errorf("invalid confirmation outcome %q", outcome)
	}

	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment := &domain.Payment{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, order_id, amount, method, status, paid_at, created_at
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID).Scan(
		&payment.ID, &payment.OrderID, &payment.Amount,
		&payment.Method, &payment.Status, &payment.PaidAt, &payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, translateConcurrency(fmt.Errorf("failed to lock payment: %w", err))
	}

	// Lock the parent order before deciding anything about it
	var orderStatus domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, payment.OrderID).Scan(&orderStatus)
	if err != nil {
		return nil, translateConcurrency(fmt.Errorf("failed to lock order: %w", err))
	}

	// Signals after the first one are no-ops: the confirmation
	// transition only fires out of Initiated.
	if payment.Status != domain.PaymentStatusInitiated {
		if err := tx.Commit(); err != nil {
			return nil, translateConcurrency(fmt.Errorf("failed to commit: %w", err))
		}
		return payment, nil
	}

	if outcome == domain.PaymentStatusConfirmed {
		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, paid_at = $3 WHERE id = $1
		`, payment.ID, domain.PaymentStatusConfirmed, now)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm payment: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $2 WHERE id = $1
		`, payment.OrderID, domain.OrderStatusPaid)
		if err != nil {
			return nil, fmt.Errorf("failed to mark order paid: %w", err)
		}

		payment.Status = domain.PaymentStatusConfirmed
		payment.PaidAt = &now
	} else {
		// Order stays pending; the compensating cancellation path is
		// a separate call.
		_, err = tx.ExecContext(ctx, `
			UPDATE payments SET status = $2 WHERE id = $1
		`, payment.ID, domain.PaymentStatusFailed)
		if err != nil {
			return nil, fmt.Errorf("failed to mark payment failed: %w", err)
		}

		payment.Status = domain.PaymentStatusFailed
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConcurrency(fmt.Errorf("failed to commit confirmation: %w", err))
	}

	return payment, nil
}

func (r *checkoutRepository) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := &domain.Order{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, customer_id, status, order_total, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(
		&order.ID, &order.CustomerID, &order.Status,
		&order.OrderTotal, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, translateConcurrency(fmt.Errorf("failed to lock order: %w", err))
	}

	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotCancellable
	}

	// A confirmed payment means money moved; that path is refund, not
	// cancellation.
	payRows, err := tx.QueryContext(ctx, `
		SELECT status FROM payments WHERE order_id = $1 FOR UPDATE
	`, order.ID)
	if err != nil {
		return nil, translateConcurrency(fmt.Errorf("failed to lock payments: %w", err))
	}
	for payRows.Next() {
		var status domain.PaymentStatus
		if err := payRows.Scan(&status); err != nil {
			payRows.Close()
			return nil, fmt.Errorf("failed to scan payment status: %w", err)
		}
		if status == domain.PaymentStatusConfirmed {
			payRows.Close()
			return nil, ErrOrderNotCancellable
		}
	}
	payRows.Close()
	if err := payRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id ASC
	`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		lines = append(lines, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	now := time.Now()
	for _, line := range sortLines(lines) {
		// Same lock, same order as PlaceOrder, mirrored delta
		var onHand int
		err = tx.QueryRowContext(ctx, `
			SELECT on_hand FROM inventory WHERE product_id = $1 FOR UPDATE
		`, line.ProductID).Scan(&onHand)
		if err != nil {
			return nil, translateConcurrency(fmt.Errorf("failed to lock inventory: %w", err))
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory SET on_hand = on_hand + $2 WHERE product_id = $1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return nil, translateConcurrency(fmt.Errorf("failed to restore inventory: %w", err))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, change_qty, reason, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), line.ProductID, line.Quantity, domain.MovementReasonRefund, order.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record refund movement: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, order.ID, domain.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConcurrency(fmt.Errorf("failed to commit cancellation: %w", err))
	}

	order.Status = domain.OrderStatusCancelled
	return order, nil
}
