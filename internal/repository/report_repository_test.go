package repository

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSummaries_NewestFirstWithCustomerName(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckoutRepository(testDB, 3000)
	reports := NewReportRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "5.00", 100)

	first, _, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: product.ID, Quantity: 1}}, domain.PaymentMethodCard)
	require.NoError(t, err)
	second, _, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: product.ID, Quantity: 2}}, domain.PaymentMethodCard)
	require.NoError(t, err)

	summaries, err := reports.OrderSummaries(ctx, 200)
	require.NoError(t, err)

	position := map[uuid.UUID]int{}
	for i, s := range summaries {
		position[s.OrderID] = i
		if s.OrderID == first.ID || s.OrderID == second.ID {
			assert.Equal(t, customer.Name, s.CustomerName)
		}
	}

	firstPos, ok := position[first.ID]
	require.True(t, ok)
	secondPos, ok := position[second.ID]
	require.True(t, ok)
	assert.Less(t, secondPos, firstPos, "newer orders come first")
}

func TestOrderSummaries_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckoutRepository(testDB, 3000)
	reports := NewReportRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "5.00", 100)
	for i := 0; i < 3; i++ {
		_, _, err := checkout.PlaceOrder(ctx, customer.ID,
			[]domain.CartLine{{ProductID: product.ID, Quantity: 1}}, domain.PaymentMethodWallet)
		require.NoError(t, err)
	}

	summaries, err := reports.OrderSummaries(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestOrderDetail_LineTotalsAndPayments(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckoutRepository(testDB, 3000)
	reports := NewReportRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "19.99", 50)

	order, payment, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: product.ID, Quantity: 3}}, domain.PaymentMethodBankTransfer)
	require.NoError(t, err)

	detail, err := reports.OrderDetail(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.ID, detail.Order.ID)
	assert.Equal(t, customer.Email, detail.Customer.Email)

	require.Len(t, detail.Items, 1)
	line := detail.Items[0]
	assert.Equal(t, product.SKU, line.SKU)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, decimal.RequireFromString("19.99").Equal(line.UnitPrice))
	assert.True(t, decimal.RequireFromString("59.97").Equal(line.LineTotal))
	assert.True(t, line.LineTotal.Equal(detail.Order.OrderTotal))

	require.Len(t, detail.Payments, 1)
	assert.Equal(t, payment.ID, detail.Payments[0].ID)
	assert.Equal(t, domain.PaymentStatusInitiated, detail.Payments[0].Status)
}

func TestOrderDetail_UnknownOrder(t *testing.T) {
	_, err := NewReportRepository(testDB).OrderDetail(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTopProductsByRevenue_ExcludesCancelledOrders(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckoutRepository(testDB, 3000)
	reports := NewReportRepository(testDB)

	customer := seedCustomer(t)
	kept := seedProduct(t, "100.00", 50)
	cancelled := seedProduct(t, "999.00", 50)

	_, _, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: kept.ID, Quantity: 2}}, domain.PaymentMethodCard)
	require.NoError(t, err)

	doomed, _, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: cancelled.ID, Quantity: 5}}, domain.PaymentMethodCard)
	require.NoError(t, err)
	_, err = checkout.CancelOrder(ctx, doomed.ID)
	require.NoError(t, err)

	ranking, err := reports.TopProductsByRevenue(ctx, 1000)
	require.NoError(t, err)

	var found bool
	for _, pr := range ranking {
		assert.NotEqual(t, cancelled.ID, pr.ProductID, "cancelled revenue must not count")
		if pr.ProductID == kept.ID {
			found = true
			assert.Equal(t, 2, pr.UnitsSold)
			assert.True(t, decimal.RequireFromString("200.00").Equal(pr.Revenue))
		}
	}
	assert.True(t, found, "settled product must appear in the ranking")
}

func TestTopProductsByRevenue_RanksHighestFirst(t *testing.T) {
	ctx := context.Background()
	reports := NewReportRepository(testDB)

	ranking, err := reports.TopProductsByRevenue(ctx, 1000)
	require.NoError(t, err)

	for i := 1; i < len(ranking); i++ {
		assert.True(t, ranking[i-1].Revenue.GreaterThanOrEqual(ranking[i].Revenue),
			"ranking must be descending by revenue")
	}
}

func TestPaymentReconciliation_EveryPaymentMatchesItsOrder(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckoutRepository(testDB, 3000)
	reports := NewReportRepository(testDB)

	customer := seedCustomer(t)
	product := seedProduct(t, "42.50", 20)

	order, payment, err := checkout.PlaceOrder(ctx, customer.ID,
		[]domain.CartLine{{ProductID: product.ID, Quantity: 2}}, domain.PaymentMethodWallet)
	require.NoError(t, err)

	report, err := reports.PaymentReconciliation(ctx)
	require.NoError(t, err)

	var found bool
	for _, row := range report {
		assert.True(t, row.Matches, "payment amounts are always created from the order total")
		if row.PaymentID == payment.ID {
			found = true
			assert.Equal(t, order.ID, row.OrderID)
			assert.True(t, decimal.RequireFromString("85.00").Equal(row.Amount))
			assert.True(t, row.Amount.Equal(row.OrderTotal))
		}
	}
	assert.True(t, found)
}
