package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinStock is the low stock threshold applied when none is given.
const DefaultMinStock = 5

// ListFilters represents product list filters.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID *int64
	LowStock   bool
}

// Category groups products.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Supplier represents a vendor purchases are made from.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a sellable item. Stock and AvgCost are maintained by stock movements.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	CategoryID int64           `json:"category_id"`
	AvgCost    decimal.Decimal `json:"avg_cost"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	Stock      int             `json:"stock"`
	MinStock   int             `json:"min_stock"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LowStock reports whether stock is at or under the product threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductInput carries the editable product attributes.
type ProductInput struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Brand      string          `json:"brand" validate:"required,max=100"`
	CategoryID int64           `json:"category_id" validate:"required,gt=0"`
	AvgCost    decimal.Decimal `json:"avg_cost"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	MinStock   *int            `json:"min_stock" validate:"omitempty,gte=0"`
}

// MarginView reports the unit profit of a product at its current cost.
type MarginView struct {
	ProductID int64           `json:"product_id"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Profit    decimal.Decimal `json:"profit"`
	Percent   decimal.Decimal `json:"percent"`
}

// Repository persists catalog records.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, product Product) error
}
