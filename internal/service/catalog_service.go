package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService covers the product/customer maintenance the catalog
// collaborator performs: registering entities and feeding restocks and
// corrections through the stock movement ledger.
type CatalogService interface {
	CreateCustomer(ctx context.Context, name, email string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	CreateProduct(ctx context.Context, sku, name string, price decimal.Decimal) (*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListActiveProducts(ctx context.Context) ([]*domain.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error

	Restock(ctx context.Context, productID uuid.UUID, qty int) (*domain.InventoryRecord, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*domain.InventoryRecord, error)
}

type catalogService struct {
	customerRepo  repository.CustomerRepository
	productRepo   repository.ProductRepository
	inventoryRepo repository.InventoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	inventoryRepo repository.InventoryRepository,
) CatalogService {
	return &catalogService{
		customerRepo:  customerRepo,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
	}
}

func (s *catalogService) CreateCustomer(ctx context.Context, name, email string) (*domain.Customer, error) {
	customer := &domain.Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customerRepo.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, sku, name string, price decimal.Decimal) (*domain.Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("product price must not be negative, got %s", price)
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		SKU:       sku,
		Name:      name,
		Price:     price.Round(2),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) ListActiveProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.ListActive(ctx)
}

// DeactivateProduct retires a product from sale. There is no hard
// delete: inventory, order items and the movement ledger keep their
// references.
func (s *catalogService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.SetActive(ctx, id, false)
}

func (s *catalogService) Restock(ctx context.Context, productID uuid.UUID, qty int) (*domain.InventoryRecord, error) {
	return s.inventoryRepo.Restock(ctx, productID, qty)
}

func (s *catalogService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*domain.InventoryRecord, error) {
	return s.inventoryRepo.Adjust(ctx, productID, delta)
}
