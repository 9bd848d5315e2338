package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrUnknownCustomer          = errors.New("customer does not exist")
	ErrUnknownOrInactiveProduct = errors.New("product does not exist or is not active")
	ErrDuplicateProductInCart   = errors.New("cart contains the same product more than once")
	ErrInvalidQuantity          = errors.New("cart line quantity must be positive")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInvalidPaymentMethod     = errors.New("unsupported payment method")
)

// CheckoutService defines the order placement and settlement workflow.
// PlaceOrder either commits a complete pending order or has no visible
// effect; a repository.ErrConcurrencyConflict result means the whole
// call should be retried from scratch.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, lines []domain.CartLine, method domain.PaymentMethod) (*domain.Order, *domain.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, outcome domain.PaymentStatus) (*domain.Payment, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type checkoutService struct {
	checkoutRepo repository.CheckoutRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	checkoutRepo repository.CheckoutRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
) CheckoutService {
	return &checkoutService{
		checkoutRepo: checkoutRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
	}
}

// PlaceOrder validates the cart, then hands the atomic work to the
// checkout repository. All validation failures happen before any row
// is written.
func (s *checkoutService) PlaceOrder(ctx context.Context, customerID uuid.UUID, lines []domain.CartLine, method domain.PaymentMethod) (*domain.Order, *domain.Payment, error) {
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}
	if !method.Valid() {
		return nil, nil, ErrInvalidPaymentMethod
	}

	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, ErrInvalidQuantity
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateProductInCart, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}

	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, nil, ErrUnknownCustomer
		}
		return nil, nil, fmt.Errorf("failed to validate customer: %w", err)
	}

	for _, line := range lines {
		product, err := s.productRepo.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnknownOrInactiveProduct, line.ProductID)
			}
			return nil, nil, fmt.Errorf("failed to validate product: %w", err)
		}
		if !product.Active {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownOrInactiveProduct, product.SKU)
		}
	}

	order, payment, err := s.checkoutRepo.PlaceOrder(ctx, customerID, lines, method)
	if err != nil {
		// The transaction re-checks existence and activity under its
		// locks; map those races onto the same validation error.
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrProductNotActive) {
			return nil, nil, ErrUnknownOrInactiveProduct
		}
		return nil, nil, err
	}

	return order, payment, nil
}

// ConfirmPayment applies the external settlement signal, idempotently
func (s *checkoutService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, outcome domain.PaymentStatus) (*domain.Payment, error) {
	return s.checkoutRepo.ConfirmPayment(ctx, paymentID, outcome)
}

// CancelOrder runs the compensating path for a pending order
func (s *checkoutService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.checkoutRepo.CancelOrder(ctx, orderID)
}
