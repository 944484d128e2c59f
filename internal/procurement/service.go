package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/observability"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, limit, offset int) ([]Purchase, int, error)
}

// TxRepository exposes the writes of a purchase inside one transaction.
type TxRepository interface {
	inventory.LotStore
	CreatePurchase(ctx context.Context, supplierID *int64) (Purchase, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	ListPurchaseLots(ctx context.Context, purchaseID int64) ([]inventory.Lot, error)
	UpdatePurchaseTotal(ctx context.Context, id int64, total decimal.Decimal) error
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	SaveProductStock(ctx context.Context, product catalog.Product) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts stock movements.
type MetricsPort interface {
	ObserveMovement(kind string, units int)
	ObserveRejected(kind, reason string)
}

// Service orchestrates purchases and the stock they bring in.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger}
}

// CreatePurchase stores a purchase header and receives its lines atomically.
// Any failing line rolls the whole purchase back.
func (s *Service) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (Purchase, error) {
	if input.SupplierID != nil && *input.SupplierID <= 0 {
		return Purchase{}, shared.NewValidationError("supplier_id", "inválido")
	}
	for i, line := range input.Lines {
		if err := validateLine(line); err != nil {
			return Purchase{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	var purchase Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		purchase, err = tx.CreatePurchase(ctx, input.SupplierID)
		if err != nil {
			return err
		}
		for _, line := range input.Lines {
			lot, err := receiveLine(ctx, tx, purchase.ID, line)
			if err != nil {
				return err
			}
			purchase.Lines = append(purchase.Lines, lot)
		}
		purchase.Total, err = refreshTotal(ctx, tx, purchase.ID)
		return err
	})
	if err != nil {
		s.reject(err)
		return Purchase{}, err
	}
	s.observe(purchase.Lines...)
	s.recordAudit(ctx, shared.AuditPurchaseCreated, purchase.ID, map[string]any{
		"lines": len(purchase.Lines),
		"total": purchase.Total.StringFixed(shared.MoneyPlaces),
	})
	return purchase, nil
}

// RecordPurchaseLine receives one lot into an existing purchase. The product's
// average cost and stock, the new lot and the purchase total change together.
func (s *Service) RecordPurchaseLine(ctx context.Context, purchaseID int64, line LineInput) (inventory.Lot, error) {
	if purchaseID <= 0 {
		return inventory.Lot{}, shared.NewValidationError("purchase_id", "inválido")
	}
	if err := validateLine(line); err != nil {
		return inventory.Lot{}, err
	}
	var lot inventory.Lot
	var total decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, purchaseID); err != nil {
			return err
		}
		var err error
		lot, err = receiveLine(ctx, tx, purchaseID, line)
		if err != nil {
			return err
		}
		total, err = refreshTotal(ctx, tx, purchaseID)
		return err
	})
	if err != nil {
		s.reject(err)
		return inventory.Lot{}, err
	}
	s.observe(lot)
	s.recordAudit(ctx, shared.AuditPurchaseLineRecorded, purchaseID, map[string]any{
		"lot_id":     lot.ID,
		"product_id": lot.ProductID,
		"quantity":   lot.Quantity,
		"unit_cost":  lot.UnitCost.StringFixed(shared.MoneyPlaces),
		"total":      total.StringFixed(shared.MoneyPlaces),
	})
	return lot, nil
}

// GetPurchase returns a purchase with its lines.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, shared.NewValidationError("id", "inválido")
	}
	return s.repo.GetPurchase(ctx, id)
}

// ListPurchases returns purchases newest first.
func (s *Service) ListPurchases(ctx context.Context, page, perPage int) ([]Purchase, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListPurchases(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

func receiveLine(ctx context.Context, tx TxRepository, purchaseID int64, line LineInput) (inventory.Lot, error) {
	// The lot and the average must see the same stored cost.
	line.UnitCost = shared.RoundMoney(line.UnitCost)
	product, err := tx.GetProductForUpdate(ctx, line.ProductID)
	if err != nil {
		return inventory.Lot{}, err
	}
	product.AvgCost = inventory.RecomputeAverageCost(product.Stock, product.AvgCost, line.Quantity, line.UnitCost)
	product.Stock += line.Quantity
	if err := catalog.ValidateProduct(product); err != nil {
		return inventory.Lot{}, err
	}
	lot, err := inventory.NewLedger(tx).AddLot(ctx, inventory.NewLot{
		PurchaseID: purchaseID,
		ProductID:  line.ProductID,
		Quantity:   line.Quantity,
		UnitCost:   line.UnitCost,
		ExpiryDate: line.ExpiryDate,
		Batch:      line.Batch,
	})
	if err != nil {
		return inventory.Lot{}, err
	}
	if err := tx.SaveProductStock(ctx, product); err != nil {
		return inventory.Lot{}, err
	}
	return lot, nil
}

func refreshTotal(ctx context.Context, tx TxRepository, purchaseID int64) (decimal.Decimal, error) {
	lines, err := tx.ListPurchaseLots(ctx, purchaseID)
	if err != nil {
		return decimal.Zero, err
	}
	total := PurchaseTotal(lines)
	if err := tx.UpdatePurchaseTotal(ctx, purchaseID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func validateLine(line LineInput) error {
	fields := map[string]string{}
	if line.ProductID <= 0 {
		fields["product_id"] = "obrigatório"
	}
	if line.Quantity <= 0 {
		fields["quantity"] = "deve ser maior que zero"
	}
	if line.UnitCost.IsNegative() {
		fields["unit_cost"] = "não pode ser negativo"
	}
	if line.ExpiryDate.IsZero() {
		fields["expiry_date"] = "obrigatório"
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

func (s *Service) observe(lots ...inventory.Lot) {
	if s.metrics == nil {
		return
	}
	for _, lot := range lots {
		s.metrics.ObserveMovement(observability.MovementPurchase, lot.Quantity)
	}
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, shared.ErrValidation):
		reason = "validation"
	case errors.Is(err, shared.ErrNotFound):
		reason = "not_found"
	}
	s.metrics.ObserveRejected(observability.MovementPurchase, reason)
}

func (s *Service) recordAudit(ctx context.Context, action string, purchaseID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.OperatorFromContext(ctx),
		Action:   action,
		Entity:   "purchase",
		EntityID: strconv.FormatInt(purchaseID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("procurement audit failed", slog.Int64("purchase_id", purchaseID), slog.Any("error", err))
	}
}
