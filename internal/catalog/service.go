package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes catalog operations.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService creates a catalog service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory stores a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, shared.NewValidationError("name", "obrigatório")
	}
	return s.repo.CreateCategory(ctx, Category{Name: name})
}

// DeleteCategory removes a category and, through the schema, its products.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("id", "inválido")
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, name, contact string) (Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Supplier{}, shared.NewValidationError("name", "obrigatório")
	}
	return s.repo.CreateSupplier(ctx, Supplier{Name: name, Contact: strings.TrimSpace(contact)})
}

// DeleteSupplier removes a supplier. Purchases keep their history with no supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("id", "inválido")
	}
	return s.repo.DeleteSupplier(ctx, id)
}

// ListProducts returns a filtered page of products and the total count.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

// GetProduct fetches a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.NewValidationError("id", "inválido")
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct registers a product with zero stock. AvgCost seeds the cost used
// before the first purchase.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateStruct(in); err != nil {
		return Product{}, err
	}
	product := Product{
		Name:       strings.TrimSpace(in.Name),
		Brand:      strings.TrimSpace(in.Brand),
		CategoryID: in.CategoryID,
		AvgCost:    shared.RoundMoney(in.AvgCost),
		SalePrice:  shared.RoundMoney(in.SalePrice),
		MinStock:   DefaultMinStock,
	}
	if in.MinStock != nil {
		product.MinStock = *in.MinStock
	}
	if err := ValidateProduct(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, created)
	return created, nil
}

// UpdateProduct changes the descriptive attributes and price of a product.
// Stock and AvgCost only move through purchases and sales.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := validateStruct(in); err != nil {
		return Product{}, err
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	product.Name = strings.TrimSpace(in.Name)
	product.Brand = strings.TrimSpace(in.Brand)
	product.CategoryID = in.CategoryID
	product.SalePrice = shared.RoundMoney(in.SalePrice)
	if in.MinStock != nil {
		product.MinStock = *in.MinStock
	}
	if err := ValidateProduct(product); err != nil {
		return Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.record(ctx, product)
	return product, nil
}

// Margin reports unit profit and margin percentage at the current average cost.
func (s *Service) Margin(ctx context.Context, id int64) (MarginView, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return MarginView{}, err
	}
	profit, percent := inventory.Margin(product.AvgCost, product.SalePrice)
	return MarginView{
		ProductID: product.ID,
		AvgCost:   product.AvgCost,
		SalePrice: product.SalePrice,
		Profit:    profit,
		Percent:   percent,
	}, nil
}

func (s *Service) record(ctx context.Context, p Product) {
	if s.audit == nil {
		return
	}
	actor := shared.OperatorFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   shared.AuditProductSaved,
		Entity:   "product",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta: map[string]any{
			"sale_price": p.SalePrice.StringFixed(shared.MoneyPlaces),
			"avg_cost":   p.AvgCost.StringFixed(shared.MoneyPlaces),
		},
	})
	if err != nil {
		s.logger.Warn("catalog audit failed", slog.Int64("product_id", p.ID), slog.Any("error", err))
	}
}
