package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var ErrInventoryNotFound = errors.New("inventory record not found")

// InventoryRepository defines the interface for inventory data access.
// Every write goes through the same locked read-modify-write shape the
// checkout path uses, and every write appends a stock movement in the
// same transaction.
type InventoryRepository interface {
	Get(ctx context.Context, productID uuid.UUID) (*domain.InventoryRecord, error)
	// Restock adds qty (> 0) on hand with a restock movement.
	Restock(ctx context.Context, productID uuid.UUID, qty int) (*domain.InventoryRecord, error)
	// Adjust applies a signed correction with an adjustment movement.
	// A negative delta larger than the current stock fails with
	// InsufficientStockError and changes nothing.
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (*domain.InventoryRecord, error)
	LowStock(ctx context.Context, threshold int) ([]domain.LowStockEntry, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// Get retrieves the inventory record for one product
func (r *inventoryRepository) Get(ctx context.Context, productID uuid.UUID) (*domain.InventoryRecord, error) {
	query := `
		SELECT product_id, on_hand, updated_at
		FROM inventory
		WHERE product_id = $1
	`

	record := &domain.InventoryRecord{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&record.ProductID,
		&record.OnHand,
		&record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return record, nil
}

func (r *inventoryRepository) Restock(ctx context.Context, productID uuid.UUID, qty int) (*domain.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("restock quantity must be positive, got %d", qty)
	}
	return r.apply(ctx, productID, qty, domain.MovementReasonRestock)
}

func (r *inventoryRepository) Adjust(ctx context.Context, productID uuid.UUID, delta int) (*domain.InventoryRecord, error) {
	if delta == 0 {
		return nil, errors.New("adjustment delta must be non-zero")
	}
	return r.apply(ctx, productID, delta, domain.MovementReasonAdjustment)
}

// apply locks the inventory row, applies the signed delta and appends
// the audit movement, all in one transaction.
func (r *inventoryRepository) apply(ctx context.Context, productID uuid.UUID, delta int, reason domain.MovementReason) (*domain.InventoryRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record := &domain.InventoryRecord{}
	var sku string
	err = tx.QueryRowContext(ctx, `
		SELECT i.product_id, i.on_hand, i.updated_at, p.sku
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.product_id = $1
		FOR UPDATE OF i
	`, productID).Scan(&record.ProductID, &record.OnHand, &record.UpdatedAt, &sku)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, translateConcurrency(fmt.Errorf("failed to lock inventory: %w", err))
	}

	if record.OnHand+delta < 0 {
		return nil, &InsufficientStockError{
			ProductID: productID,
			SKU:       sku,
			Requested: -delta,
			OnHand:    record.OnHand,
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE inventory
		SET on_hand = on_hand + $2
		WHERE product_id = $1
		RETURNING on_hand, updated_at
	`, productID, delta).Scan(&record.OnHand, &record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, change_qty, reason, order_id, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5)
	`, uuid.New(), productID, delta, reason, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConcurrency(fmt.Errorf("failed to commit inventory change: %w", err))
	}

	return record, nil
}

// LowStock lists products whose on-hand quantity is below threshold,
// scarcest first. Plain committed read, takes no locks.
func (r *inventoryRepository) LowStock(ctx context.Context, threshold int) ([]domain.LowStockEntry, error) {
	query := `
		SELECT p.id, p.sku, p.name, i.on_hand
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.on_hand < $1
		ORDER BY i.on_hand ASC, p.sku ASC
	`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer rows.Close()

	entries := []domain.LowStockEntry{}
	for rows.Next() {
		var e domain.LowStockEntry
		if err := rows.Scan(&e.ProductID, &e.SKU, &e.Name, &e.OnHand); err != nil {
			return nil, fmt.Errorf("failed to scan low stock entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating low stock entries: %w", err)
	}

	return entries, nil
}
