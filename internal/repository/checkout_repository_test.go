package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_HappyPath(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	cable := seedProduct(t, "9.99", 200)
	ssd := seedProduct(t, "89.00", 40)

	order, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: cable.ID, Quantity: 2},
		{ProductID: ssd.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	// 2 * 9.99 + 1 * 89.00
	assert.True(t, decimal.RequireFromString("108.98").Equal(order.OrderTotal),
		"expected total 108.98, got %s", order.OrderTotal)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusInitiated, payment.Status)
	assert.True(t, order.OrderTotal.Equal(payment.Amount))

	assert.Equal(t, 198, onHand(t, cable.ID))
	assert.Equal(t, 39, onHand(t, ssd.ID))

	// One restock row from seeding plus one sale row each
	for _, p := range []*domain.Product{cable, ssd} {
		ms := movements(t, p.ID)
		require.Len(t, ms, 2)
		assert.Equal(t, domain.MovementReasonRestock, ms[0].Reason)
		assert.Equal(t, domain.MovementReasonSale, ms[1].Reason)
		require.NotNil(t, ms[1].OrderID)
		assert.Equal(t, order.ID, *ms[1].OrderID)
	}

	// The stored total matches the recomputed item sum
	var storedTotal, itemSum decimal.Decimal
	err = testDB.QueryRow(`SELECT order_total FROM orders WHERE id = $1`, order.ID).Scan(&storedTotal)
	require.NoError(t, err)
	err = testDB.QueryRow(`
		SELECT ROUND(SUM(quantity * unit_price), 2) FROM order_items WHERE order_id = $1
	`, order.ID).Scan(&itemSum)
	require.NoError(t, err)
	assert.True(t, storedTotal.Equal(itemSum))
}

func TestPlaceOrder_SnapshotsPriceAtPurchase(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)
	productRepo := NewProductRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "50.00", 10)

	order, _, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	// Raise the list price after the sale
	require.NoError(t, productRepo.UpdatePrice(ctx, product.ID, decimal.RequireFromString("75.00")))

	var frozen decimal.Decimal
	err = testDB.QueryRow(`
		SELECT unit_price FROM order_items WHERE order_id = $1
	`, order.ID).Scan(&frozen)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50.00").Equal(frozen),
		"order item price must stay frozen at 50.00, got %s", frozen)
}

func TestPlaceOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	plenty := seedProduct(t, "5.00", 100)
	scarce := seedProduct(t, "10.00", 3)

	_, _, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: plenty.ID, Quantity: 10},
		{ProductID: scarce.ID, Quantity: 5},
	}, domain.PaymentMethodCard)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.OnHand)

	// Nothing moved: not even the line that had enough stock
	assert.Equal(t, 100, onHand(t, plenty.ID))
	assert.Equal(t, 3, onHand(t, scarce.ID))
	assert.Len(t, movements(t, plenty.ID), 1) // seed restock only

	var orderCount int
	err = testDB.QueryRow(`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customer.ID).Scan(&orderCount)
	require.NoError(t, err)
	assert.Equal(t, 0, orderCount, "no order row may survive the rollback")
}

func TestPlaceOrder_TwoBuyersRaceForLimitedStock(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 5000)

	customer := seedCustomer(t)
	product := seedProduct(t, "89.00", 40)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, _, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
				{ProductID: product.ID, Quantity: 30},
			}, domain.PaymentMethodCard)
			results[slot] = err
		}(i)
	}
	wg.Wait()

	var successes, stockFailures int
	for _, err := range results {
		var stockErr *InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &stockErr):
			stockFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one order must win the stock")
	assert.Equal(t, 1, stockFailures, "the loser must fail with insufficient stock")
	assert.Equal(t, 10, onHand(t, product.ID))
}

func TestConfirmPayment_ConfirmedMarksOrderPaid(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	product := seedProduct(t, "20.00", 5)

	order, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 1},
	}, domain.PaymentMethodWallet)
	require.NoError(t, err)

	confirmed, err := repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.PaidAt)

	var orderStatus domain.OrderStatus
	err = testDB.QueryRow(`SELECT status FROM orders WHERE id = $1`, order.ID).Scan(&orderStatus)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, orderStatus)
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	product := seedProduct(t, "20.00", 5)

	_, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	first, err := repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusConfirmed)
	require.NoError(t, err)

	// Deliver the same signal again; nothing changes
	second, err := repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	require.NotNil(t, second.PaidAt)
	assert.WithinDuration(t, *first.PaidAt, *second.PaidAt, time.Second,
		"paid_at must not move on redelivery")

	// A late contradictory signal is also a no-op
	third, err := repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, third.Status)
}

func TestConfirmPayment_FailedLeavesOrderPending(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	product := seedProduct(t, "20.00", 5)

	order, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	failed, err := repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, failed.Status)
	assert.Nil(t, failed.PaidAt)

	var orderStatus domain.OrderStatus
	err = testDB.QueryRow(`SELECT status FROM orders WHERE id = $1`, order.ID).Scan(&orderStatus)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, orderStatus)
}

func TestCancelOrder_RestoresStockWithMirroredRefunds(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	cable := seedProduct(t, "9.99", 200)
	ssd := seedProduct(t, "89.00", 40)

	order, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: cable.ID, Quantity: 2},
		{ProductID: ssd.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	_, err = repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusFailed)
	require.NoError(t, err)

	cancelled, err := repo.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	assert.Equal(t, 200, onHand(t, cable.ID))
	assert.Equal(t, 40, onHand(t, ssd.ID))

	// Each product carries seed restock, sale, refund; the refund
	// mirrors the sale exactly
	for _, p := range []*domain.Product{cable, ssd} {
		ms := movements(t, p.ID)
		require.Len(t, ms, 3)
		sale, refund := ms[1], ms[2]
		assert.Equal(t, domain.MovementReasonSale, sale.Reason)
		assert.Equal(t, domain.MovementReasonRefund, refund.Reason)
		assert.Equal(t, -sale.ChangeQty, refund.ChangeQty)
		require.NotNil(t, refund.OrderID)
		assert.Equal(t, order.ID, *refund.OrderID)
	}
}

func TestCancelOrder_RejectsNonPendingAndConfirmedPaid(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	product := seedProduct(t, "20.00", 5)

	order, payment, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 1},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	// Money moved: cancellation is off the table
	_, err = repo.ConfirmPayment(ctx, payment.ID, domain.PaymentStatusConfirmed)
	require.NoError(t, err)

	_, err = repo.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
	assert.Equal(t, 4, onHand(t, product.ID), "stock must not be restored")
}

func TestCancelOrder_SecondCancelFails(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)

	customer := seedCustomer(t)
	product := seedProduct(t, "20.00", 5)

	order, _, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 2},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	_, err = repo.CancelOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = repo.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
	assert.Equal(t, 5, onHand(t, product.ID), "stock must be restored exactly once")
}

// The audit reconciliation invariant: replaying the ledger from zero
// reproduces the committed on-hand quantity.
func TestStockMovements_ReconcileWithOnHand(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckoutRepository(testDB, 3000)
	inventoryRepo := NewInventoryRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "15.00", 50)

	order, _, err := repo.PlaceOrder(ctx, customer.ID, []domain.CartLine{
		{ProductID: product.ID, Quantity: 8},
	}, domain.PaymentMethodCard)
	require.NoError(t, err)

	_, err = inventoryRepo.Restock(ctx, product.ID, 20)
	require.NoError(t, err)

	_, err = inventoryRepo.Adjust(ctx, product.ID, -3)
	require.NoError(t, err)

	_, err = repo.CancelOrder(ctx, order.ID)
	require.NoError(t, err)

	sum := 0
	for _, m := range movements(t, product.ID) {
		sum += m.ChangeQty
	}
	assert.Equal(t, onHand(t, product.ID), sum)
	assert.Equal(t, 50-3+20, onHand(t, product.ID))
}
