package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/app"
	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/finance"
	"github.com/gestao-cosmeticos/gestao/internal/platform/db"
	"github.com/gestao-cosmeticos/gestao/internal/procurement"
	"github.com/gestao-cosmeticos/gestao/internal/sales"
	"github.com/gestao-cosmeticos/gestao/migrations"
)

type seedProduct struct {
	name, brand, category string
	cost, price           string
	qty, expiryDays       int
}

var demoProducts = []seedProduct{
	{"Creme Hidratante 200ml", "Nivea", "Cremes", "1800", "2900", 24, 400},
	{"Protector Solar FPS50", "La Roche-Posay", "Cremes", "7500", "11900", 10, 20},
	{"Batom Matte Vermelho", "Avon", "Maquilhagem", "900", "1500", 40, 700},
	{"Base Líquida", "Maybelline", "Maquilhagem", "4200", "6500", 12, 300},
	{"Eau de Toilette 100ml", "Boticário", "Perfumes", "15000", "24000", 6, 900},
	{"Champô Reparador", "L'Oréal", "Cabelo", "2100", "3400", 18, 10},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	catalogSvc := catalog.NewService(catalog.NewRepository(pool), nil, logger)
	_, existing, err := catalogSvc.ListProducts(ctx, catalog.ListFilters{Page: 1, Limit: 1})
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	if existing > 0 {
		fmt.Println("→ Catalog already has products, nothing to seed")
		return
	}
	procurementSvc := procurement.NewService(procurement.NewRepository(pool), nil, nil, logger)
	salesSvc := sales.NewService(sales.NewRepository(pool), sales.WithLogger(logger))
	financeSvc := finance.NewService(finance.NewRepository(pool), nil, logger)

	fmt.Println("→ Seeding catalog...")
	categories := map[string]int64{}
	var lines []procurement.LineInput
	productIDs := make([]int64, 0, len(demoProducts))
	today := time.Now().UTC()
	for _, p := range demoProducts {
		if _, ok := categories[p.category]; !ok {
			c, err := catalogSvc.CreateCategory(ctx, p.category)
			if err != nil {
				log.Fatalf("create category %s: %v", p.category, err)
			}
			categories[p.category] = c.ID
		}
		product, err := catalogSvc.CreateProduct(ctx, catalog.ProductInput{
			Name:       p.name,
			Brand:      p.brand,
			CategoryID: categories[p.category],
			SalePrice:  decimal.RequireFromString(p.price),
		})
		if err != nil {
			log.Fatalf("create product %s: %v", p.name, err)
		}
		productIDs = append(productIDs, product.ID)
		lines = append(lines, procurement.LineInput{
			ProductID:  product.ID,
			Quantity:   p.qty,
			UnitCost:   decimal.RequireFromString(p.cost),
			ExpiryDate: today.AddDate(0, 0, p.expiryDays),
			Batch:      fmt.Sprintf("L%s-%02d", today.Format("0601"), product.ID),
		})
	}

	supplier, err := catalogSvc.CreateSupplier(ctx, "Distribuidora Beleza Lda", "geral@beleza.ao")
	if err != nil {
		log.Fatalf("create supplier: %v", err)
	}
	fmt.Println("→ Seeding purchase...")
	if _, err := procurementSvc.CreatePurchase(ctx, procurement.CreatePurchaseInput{SupplierID: &supplier.ID, Lines: lines}); err != nil {
		log.Fatalf("create purchase: %v", err)
	}

	fmt.Println("→ Seeding sales...")
	methods := []sales.PaymentMethod{sales.PaymentCash, sales.PaymentCard, sales.PaymentTransfer}
	for i, id := range productIDs {
		if _, err := salesSvc.Checkout(ctx, sales.CheckoutInput{
			PaymentMethod: methods[i%len(methods)],
			Lines:         []sales.LineInput{{ProductID: id, Quantity: 1 + i%3}},
		}); err != nil {
			log.Fatalf("checkout product %d: %v", id, err)
		}
	}

	fmt.Println("→ Seeding cash entries...")
	if _, err := financeSvc.RecordExpense(ctx, finance.EntryInput{Description: "Renda da loja", Amount: decimal.NewFromInt(150000), Date: today}); err != nil {
		log.Fatalf("record expense: %v", err)
	}
	if _, err := financeSvc.RecordRevenue(ctx, finance.EntryInput{Description: "Workshop de maquilhagem", Amount: decimal.NewFromInt(45000), Date: today}); err != nil {
		log.Fatalf("record revenue: %v", err)
	}
	fmt.Println("✓ Demo data ready")
}
