package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateCustomerRequest is the customer registration payload
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// CreateProductRequest is the product registration payload
type CreateProductRequest struct {
	SKU   string `json:"sku" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Price string `json:"price" validate:"required"`
}

// RestockRequest adds stock to a product
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// AdjustStockRequest applies a signed inventory correction
type AdjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CatalogHandler handles customer, product and inventory maintenance
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/customers", h.CreateCustomer)
	r.Get("/api/customers/{customerID}", h.GetCustomer)
	r.Post("/api/products", h.CreateProduct)
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{productID}", h.GetProduct)
	r.Post("/api/products/{productID}/deactivate", h.DeactivateProduct)
	r.Post("/api/inventory/{productID}/restock", h.Restock)
	r.Post("/api/inventory/{productID}/adjust", h.AdjustStock)
}

// CreateCustomer handles POST /api/customers
func (h *CatalogHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	customer, err := h.catalogService.CreateCustomer(r.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, "customer with this email already exists")
			return
		}
		h.logger.Error("Customer creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}

	h.logger.Info("Customer created", zap.String("customer_id", customer.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, customer)
}

// GetCustomer handles GET /api/customers/{customerID}
func (h *CatalogHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	customer, err := h.catalogService.GetCustomer(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("Customer lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// CreateProduct handles POST /api/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		middleware.RespondWithError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req.SKU, req.Name, price)
	if err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, "product with this SKU already exists")
			return
		}
		h.logger.Error("Product creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// ListProducts handles GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListActiveProducts(r.Context())
	if err != nil {
		h.logger.Error("Product listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{productID}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeactivateProduct handles POST /api/products/{productID}/deactivate
func (h *CatalogHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.catalogService.DeactivateProduct(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product deactivation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to deactivate product")
		return
	}

	h.logger.Info("Product deactivated", zap.String("product_id", productID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// Restock handles POST /api/inventory/{productID}/restock
func (h *CatalogHandler) Restock(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req RestockRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	record, err := h.catalogService.Restock(r.Context(), productID, req.Quantity)
	if err != nil {
		h.respondInventoryError(w, err, "failed to restock")
		return
	}

	h.logger.Info("Product restocked",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int("on_hand", record.OnHand),
	)
	middleware.RespondWithJSON(w, http.StatusOK, record)
}

// AdjustStock handles POST /api/inventory/{productID}/adjust
func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req AdjustStockRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	record, err := h.catalogService.AdjustStock(r.Context(), productID, req.Delta)
	if err != nil {
		h.respondInventoryError(w, err, "failed to adjust stock")
		return
	}

	h.logger.Info("Stock adjusted",
		zap.String("product_id", productID.String()),
		zap.Int("delta", req.Delta),
		zap.Int("on_hand", record.OnHand),
	)
	middleware.RespondWithJSON(w, http.StatusOK, record)
}

func (h *CatalogHandler) respondInventoryError(w http.ResponseWriter, err error, fallback string) {
	var stockErr *repository.InsufficientStockError

	switch {
	case errors.Is(err, repository.ErrInventoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "inventory record not found")
	case errors.As(err, &stockErr):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", map[string]interface{}{
			"product_id": stockErr.ProductID.String(),
			"sku":        stockErr.SKU,
			"requested":  stockErr.Requested,
			"on_hand":    stockErr.OnHand,
		})
	case errors.Is(err, repository.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "inventory is contended, retry")
	default:
		h.logger.Error("Inventory operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeRequest decodes and validates the body, writing the error
// response itself. Returns false when the request was rejected.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
