package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportHandler exposes the read-only queries for reporting
// collaborators
type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/orders", h.OrderSummaries)
	r.Get("/api/orders/{orderID}", h.OrderDetail)
	r.Get("/api/inventory/low-stock", h.LowStock)
	r.Get("/api/reports/top-products", h.TopProducts)
	r.Get("/api/reports/payments", h.PaymentReconciliation)
}

// OrderSummaries handles GET /api/orders
func (h *ReportHandler) OrderSummaries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	summaries, err := h.reportService.OrderSummaries(r.Context(), limit)
	if err != nil {
		h.logger.Error("Order summary query failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summaries)
}

// OrderDetail handles GET /api/orders/{orderID}
func (h *ReportHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	detail, err := h.reportService.OrderDetail(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Order detail query failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// LowStock handles GET /api/inventory/low-stock
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := queryInt(r, "threshold", 0)

	entries, err := h.reportService.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("Low stock query failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list low stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, entries)
}

// TopProducts handles GET /api/reports/top-products
func (h *ReportHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	ranking, err := h.reportService.TopProductsByRevenue(r.Context(), limit)
	if err != nil {
		h.logger.Error("Top products query failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to rank products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ranking)
}

// PaymentReconciliation handles GET /api/reports/payments
func (h *ReportHandler) PaymentReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.PaymentReconciliation(r.Context())
	if err != nil {
		h.logger.Error("Payment reconciliation query failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to reconcile payments")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
