package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest is the checkout payload
type PlaceOrderRequest struct {
	CustomerID    string             `json:"customer_id" validate:"required,uuid4"`
	PaymentMethod string             `json:"payment_method" validate:"required,oneof=card bank_transfer wallet"`
	Items         []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderLineRequest is one requested cart line
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// ConfirmPaymentRequest carries the external settlement outcome
type ConfirmPaymentRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=confirmed failed"`
}

// PlaceOrderResponse is returned on successful checkout
type PlaceOrderResponse struct {
	Order   *domain.Order   `json:"order"`
	Payment *domain.Payment `json:"payment"`
}

// CheckoutHandler handles HTTP requests for the order workflow
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout routes
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/orders", h.PlaceOrder)
	r.Post("/api/orders/{orderID}/cancel", h.CancelOrder)
	r.Post("/api/payments/{paymentID}/confirm", h.ConfirmPayment)
}

// PlaceOrder handles POST /api/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Place order validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
			return
		}
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: item.Quantity})
	}

	order, payment, err := h.checkoutService.PlaceOrder(r.Context(), customerID, lines, domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.respondPlaceOrderError(w, err)
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.String("total", order.OrderTotal.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, PlaceOrderResponse{Order: order, Payment: payment})
}

func (h *CheckoutHandler) respondPlaceOrderError(w http.ResponseWriter, err error) {
	var stockErr *repository.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrUnknownCustomer):
		middleware.RespondWithError(w, http.StatusNotFound, "customer does not exist")
	case errors.Is(err, service.ErrUnknownOrInactiveProduct):
		middleware.RespondWithError(w, http.StatusNotFound, "product does not exist or is not active")
	case errors.Is(err, service.ErrDuplicateProductInCart):
		middleware.RespondWithError(w, http.StatusConflict, "cart contains the same product more than once")
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", map[string]interface{}{
			"product_id": stockErr.ProductID.String(),
			"sku":        stockErr.SKU,
			"requested":  stockErr.Requested,
			"on_hand":    stockErr.OnHand,
		})
	case errors.Is(err, repository.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "order could not be placed due to concurrent updates, retry")
	default:
		h.logger.Error("Place order failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
	}
}

// ConfirmPayment handles POST /api/payments/{paymentID}/confirm
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid payment ID")
		return
	}

	var req ConfirmPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.checkoutService.ConfirmPayment(r.Context(), paymentID, domain.PaymentStatus(req.Outcome))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "payment not found")
		case errors.Is(err, repository.ErrConcurrencyConflict):
			w.Header().Set("Retry-After", "1")
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "payment could not be confirmed, retry")
		default:
			h.logger.Error("Payment confirmation failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to confirm payment")
		}
		return
	}

	h.logger.Info("Payment confirmation processed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", string(payment.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, payment)
}

// CancelOrder handles POST /api/orders/{orderID}/cancel
func (h *CheckoutHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.checkoutService.CancelOrder(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, repository.ErrOrderNotCancellable):
			middleware.RespondWithError(w, http.StatusConflict, "order is not in a cancellable state")
		case errors.Is(err, repository.ErrConcurrencyConflict):
			w.Header().Set("Retry-After", "1")
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "order could not be cancelled, retry")
		default:
			h.logger.Error("Order cancellation failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	h.logger.Info("Order cancelled", zap.String("order_id", order.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
