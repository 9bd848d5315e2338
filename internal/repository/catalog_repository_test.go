package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCreate_RejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(testDB)

	customer := seedCustomer(t)

	dup := &domain.Customer{
		ID:        uuid.New(),
		Name:      "Someone Else",
		Email:     customer.Email,
		CreatedAt: time.Now(),
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrCustomerAlreadyExists)

	found, err := repo.FindByEmail(ctx, customer.Email)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, found.ID)
}

func TestCustomerFind_Unknown(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(testDB)

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@test.local")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestProductCreate_StartsWithZeroStock(t *testing.T) {
	product := seedProduct(t, "12.34", 0)

	record, err := NewInventoryRepository(testDB).Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.OnHand)
	assert.Empty(t, movements(t, product.ID))
}

func TestProductCreate_RejectsDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	product := seedProduct(t, "12.34", 0)

	now := time.Now()
	dup := &domain.Product{
		ID:        uuid.New(),
		SKU:       product.SKU,
		Name:      "Copycat",
		Price:     decimal.RequireFromString("1.00"),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrProductAlreadyExists)

	// The duplicate's inventory row must not exist either
	_, err = NewInventoryRepository(testDB).Get(ctx, dup.ID)
	assert.ErrorIs(t, err, ErrInventoryNotFound)
}

func TestProductUpdatePriceAndSetActive(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	product := seedProduct(t, "12.34", 0)

	require.NoError(t, repo.UpdatePrice(ctx, product.ID, decimal.RequireFromString("15.00")))
	require.NoError(t, repo.SetActive(ctx, product.ID, false))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.00").Equal(found.Price))
	assert.False(t, found.Active)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	for _, p := range active {
		assert.NotEqual(t, product.ID, p.ID, "deactivated products are hidden from the listing")
	}
}

func TestProductUpdate_Unknown(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	err := repo.UpdatePrice(ctx, uuid.New(), decimal.RequireFromString("1.00"))
	assert.ErrorIs(t, err, ErrProductNotFound)
	err = repo.SetActive(ctx, uuid.New(), false)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
