package service

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

const defaultSummaryLimit = 50

// ReportService is the thin read-only surface for reporting
// collaborators
type ReportService interface {
	OrderSummaries(ctx context.Context, limit int) ([]domain.OrderSummary, error)
	OrderDetail(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetail, error)
	LowStock(ctx context.Context, threshold int) ([]domain.LowStockEntry, error)
	TopProductsByRevenue(ctx context.Context, limit int) ([]domain.ProductRevenue, error)
	PaymentReconciliation(ctx context.Context) ([]domain.PaymentReconciliationRow, error)
}

type reportService struct {
	reportRepo        repository.ReportRepository
	inventoryRepo     repository.InventoryRepository
	lowStockThreshold int
}

// NewReportService creates a new instance of ReportService.
// lowStockThreshold is the configured default; callers may override it
// per query with a positive threshold argument.
func NewReportService(
	reportRepo repository.ReportRepository,
	inventoryRepo repository.InventoryRepository,
	lowStockThreshold int,
) ReportService {
	return &reportService{
		reportRepo:        reportRepo,
		inventoryRepo:     inventoryRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *reportService) OrderSummaries(ctx context.Context, limit int) ([]domain.OrderSummary, error) {
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	return s.reportRepo.OrderSummaries(ctx, limit)
}

func (s *reportService) OrderDetail(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetail, error) {
	return s.reportRepo.OrderDetail(ctx, orderID)
}

func (s *reportService) LowStock(ctx context.Context, threshold int) ([]domain.LowStockEntry, error) {
	if threshold <= 0 {
		threshold = s.lowStockThreshold
	}
	return s.inventoryRepo.LowStock(ctx, threshold)
}

func (s *reportService) TopProductsByRevenue(ctx context.Context, limit int) ([]domain.ProductRevenue, error) {
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	return s.reportRepo.TopProductsByRevenue(ctx, limit)
}

func (s *reportService) PaymentReconciliation(ctx context.Context) ([]domain.PaymentReconciliationRow, error) {
	return s.reportRepo.PaymentReconciliation(ctx)
}
