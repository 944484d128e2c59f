package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// Service coordinates report queries with the cache layer.
type Service struct {
	repo     Repository
	cache    *Cache
	group    singleflight.Group
	now      func() time.Time
	nearDays int
}

// NewService wires a Repository with a Cache helper. nearDays <= 0 uses the
// default expiry alert window.
func NewService(repo Repository, cache *Cache, nearDays int) *Service {
	if nearDays <= 0 {
		nearDays = inventory.NearExpiryDays
	}
	return &Service{repo: repo, cache: cache, now: time.Now, nearDays: nearDays}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// InventoryValue is Σ stock × average cost over all products.
func (s *Service) InventoryValue(ctx context.Context) (decimal.Decimal, error) {
	return fetch(ctx, s, cacheKey("inventory_value"), func(ctx context.Context) (decimal.Decimal, error) {
		products, err := s.repo.ListProducts(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return InventoryValue(products), nil
	})
}

// CashSummary totals inflow and outflow over period.
func (s *Service) CashSummary(ctx context.Context, period shared.Period) (CashSummary, error) {
	return fetch(ctx, s, cacheKey("cash", period.Key()), func(ctx context.Context) (CashSummary, error) {
		movements, err := s.repo.ListMovements(ctx, period)
		if err != nil {
			return CashSummary{}, err
		}
		return SummarizeCash(movements), nil
	})
}

// Ledger returns the extrato over period, newest first, with running balances.
func (s *Service) Ledger(ctx context.Context, period shared.Period) ([]LedgerEntry, error) {
	return fetch(ctx, s, cacheKey("ledger", period.Key()), func(ctx context.Context) ([]LedgerEntry, error) {
		movements, err := s.repo.ListMovements(ctx, period)
		if err != nil {
			return nil, err
		}
		return BuildLedger(movements), nil
	})
}

// Monthly returns the per-month report for every month with sales.
func (s *Service) Monthly(ctx context.Context) ([]MonthlyRow, error) {
	return fetch(ctx, s, cacheKey("monthly"), func(ctx context.Context) ([]MonthlyRow, error) {
		movements, err := s.repo.ListMovements(ctx, shared.AllTime())
		if err != nil {
			return nil, err
		}
		return BuildMonthly(movements), nil
	})
}

// CurrentMonth summarises the calendar month containing now.
func (s *Service) CurrentMonth(ctx context.Context) (MonthSummary, error) {
	now := s.now()
	month := shared.MonthOf(now)
	return fetch(ctx, s, cacheKey("month", month.Key()), func(ctx context.Context) (MonthSummary, error) {
		var (
			movements []Movement
			products  []ProductSnapshot
		)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			movements, err = s.repo.ListMovements(ctx, month)
			return err
		})
		g.Go(func() error {
			var err error
			products, err = s.repo.ListProducts(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return MonthSummary{}, err
		}
		return SummarizeMonth(now, movements, InventoryValue(products)), nil
	})
}

// Products returns the analytics row of every product.
func (s *Service) Products(ctx context.Context) ([]ProductRow, error) {
	today := shared.Today(s.now())
	return fetch(ctx, s, cacheKey("products", today.Format(shared.DateLayout)), func(ctx context.Context) ([]ProductRow, error) {
		var (
			products []ProductSnapshot
			activity map[int64]ProductActivity
			lots     []inventory.Lot
		)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			products, err = s.repo.ListProducts(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			activity, err = s.repo.ListProductActivity(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			lots, err = s.repo.ListOpenLots(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return BuildProductRows(products, activity, lots, today, s.nearDays), nil
	})
}

// Alerts lists low stock products and lots expiring inside the alert window.
func (s *Service) Alerts(ctx context.Context) (Alerts, error) {
	today := shared.Today(s.now())
	return fetch(ctx, s, cacheKey("alerts", today.Format(shared.DateLayout)), func(ctx context.Context) (Alerts, error) {
		products, lots, err := s.stockState(ctx)
		if err != nil {
			return Alerts{}, err
		}
		return BuildAlerts(products, lots, today, s.nearDays), nil
	})
}

// Dashboard loads cash, inventory value and alerts concurrently. Concurrent
// callers asking for the same period share one build.
func (s *Service) Dashboard(ctx context.Context, period shared.Period) (Dashboard, error) {
	today := shared.Today(s.now())
	key := cacheKey("dashboard", period.Key(), today.Format(shared.DateLayout))
	ch := s.group.DoChan(key, func() (any, error) {
		return fetch(ctx, s, key, func(ctx context.Context) (Dashboard, error) {
			return s.buildDashboard(ctx, period, today)
		})
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

func (s *Service) buildDashboard(ctx context.Context, period shared.Period, today time.Time) (Dashboard, error) {
	var (
		movements []Movement
		products  []ProductSnapshot
		lots      []inventory.Lot
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movements, err = s.repo.ListMovements(ctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		products, lots, err = s.stockState(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(
		SummarizeCash(movements),
		InventoryValue(products),
		BuildAlerts(products, lots, today, s.nearDays),
	), nil
}

func (s *Service) stockState(ctx context.Context) ([]ProductSnapshot, []inventory.Lot, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	lots, err := s.repo.ListOpenLots(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, lots, nil
}

// fetch serves key from the cache, building it with load on a miss.
func fetch[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if s.cache == nil {
		return load(ctx)
	}
	versioned, err := s.cache.BuildKey(ctx, key)
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, versioned, &out, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	return out, err
}
