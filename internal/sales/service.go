package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/gestao-cosmeticos/gestao/internal/catalog"
	"github.com/gestao-cosmeticos/gestao/internal/inventory"
	"github.com/gestao-cosmeticos/gestao/internal/observability"
	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

const idempotencyModule = "sales.line"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, limit, offset int) ([]Sale, int, error)
}

// TxRepository exposes the writes of a sale inside one transaction.
type TxRepository interface {
	inventory.LotStore
	CreateSale(ctx context.Context, sale Sale) (Sale, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	InsertSaleLine(ctx context.Context, line SaleLine) (SaleLine, error)
	ListSaleLines(ctx context.Context, saleID int64) ([]SaleLine, error)
	UpdateSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	SaveProductStock(ctx context.Context, product catalog.Product) error
}

// LockPort serialises movements of one product across processes.
type LockPort interface {
	Lock(ctx context.Context, productID int64) (func(), error)
}

// IdempotencyPort guards against replayed line requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
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

// Service records sales and takes their units out of stock.
type Service struct {
	repo        RepositoryPort
	locker      LockPort
	idempotency IdempotencyPort
	audit       AuditPort
	metrics     MetricsPort
	logger      *slog.Logger
}

// Option customises Service.
type Option func(*Service)

// WithLocker sets the cross-process product lock.
func WithLocker(l LockPort) Option { return func(s *Service) { s.locker = l } }

// WithIdempotency sets the idempotency key store.
func WithIdempotency(store IdempotencyPort) Option { return func(s *Service) { s.idempotency = store } }

// WithAudit sets the audit recorder.
func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }

// WithMetrics sets the movement counters.
func WithMetrics(m MetricsPort) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService constructs the sales service.
func NewService(repo RepositoryPort, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSale opens an empty sale for the operator found in ctx.
func (s *Service) CreateSale(ctx context.Context, method PaymentMethod) (Sale, error) {
	if !method.Valid() {
		return Sale{}, shared.NewValidationError("payment_method", "use CASH, CARD ou TRANSFER")
	}
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.CreateSale(ctx, Sale{
			OperatorID:    shared.OperatorFromContext(ctx),
			PaymentMethod: method,
			Total:         decimal.Zero,
		})
		return err
	})
	if err != nil {
		return Sale{}, err
	}
	s.recordAudit(ctx, shared.AuditSaleCreated, sale.ID, map[string]any{"payment_method": string(method)})
	return sale, nil
}

// RecordSaleLine sells qty units of a product within an existing sale. The stock
// check, the FEFO lot depletion, the stock decrement, the line and the sale
// total commit together or not at all. A non empty idempotencyKey makes
// replays fail with shared.ErrIdempotencyConflict.
func (s *Service) RecordSaleLine(ctx context.Context, saleID int64, line LineInput, idempotencyKey string) (SaleLine, error) {
	if saleID <= 0 {
		return SaleLine{}, shared.NewValidationError("sale_id", "inválido")
	}
	if err := validateLine(line); err != nil {
		return SaleLine{}, err
	}
	if idempotencyKey != "" {
		if err := s.claimKey(ctx, idempotencyKey); err != nil {
			return SaleLine{}, err
		}
	}

	release, err := s.lock(ctx, []int64{line.ProductID})
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)
		s.reject(err)
		return SaleLine{}, err
	}
	defer release()

	var recorded SaleLine
	var total decimal.Decimal
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, saleID); err != nil {
			return err
		}
		var err error
		recorded, err = sellLine(ctx, tx, saleID, line)
		if err != nil {
			return err
		}
		total, err = refreshTotal(ctx, tx, saleID)
		return err
	})
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)
		s.reject(err)
		return SaleLine{}, err
	}
	s.observe(recorded)
	s.recordAudit(ctx, shared.AuditSaleLineRecorded, saleID, map[string]any{
		"line_id":    recorded.ID,
		"product_id": recorded.ProductID,
		"quantity":   recorded.Quantity,
		"unit_price": recorded.UnitPrice.StringFixed(shared.MoneyPlaces),
		"total":      total.StringFixed(shared.MoneyPlaces),
	})
	return recorded, nil
}

// Checkout creates a sale with all of its lines atomically.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Sale, error) {
	if !input.PaymentMethod.Valid() {
		return Sale{}, shared.NewValidationError("payment_method", "use CASH, CARD ou TRANSFER")
	}
	if len(input.Lines) == 0 {
		return Sale{}, shared.NewValidationError("lines", "adicione pelo menos um produto")
	}
	productIDs := make([]int64, 0, len(input.Lines))
	for i, line := range input.Lines {
		if err := validateLine(line); err != nil {
			return Sale{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		productIDs = append(productIDs, line.ProductID)
	}

	release, err := s.lock(ctx, productIDs)
	if err != nil {
		s.reject(err)
		return Sale{}, err
	}
	defer release()

	var sale Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Row locks follow the same ascending order as the product locks.
		for _, id := range distinctSorted(productIDs) {
			if _, err := tx.GetProductForUpdate(ctx, id); err != nil {
				return err
			}
		}
		var err error
		sale, err = tx.CreateSale(ctx, Sale{
			OperatorID:    shared.OperatorFromContext(ctx),
			PaymentMethod: input.PaymentMethod,
			Total:         decimal.Zero,
		})
		if err != nil {
			return err
		}
		for _, line := range input.Lines {
			recorded, err := sellLine(ctx, tx, sale.ID, line)
			if err != nil {
				return err
			}
			sale.Lines = append(sale.Lines, recorded)
		}
		sale.Total, err = refreshTotal(ctx, tx, sale.ID)
		return err
	})
	if err != nil {
		s.reject(err)
		return Sale{}, err
	}
	s.observe(sale.Lines...)
	s.recordAudit(ctx, shared.AuditSaleCreated, sale.ID, map[string]any{
		"payment_method": string(sale.PaymentMethod),
		"lines":          len(sale.Lines),
		"total":          sale.Total.StringFixed(shared.MoneyPlaces),
	})
	return sale, nil
}

// GetInvoice returns a sale with its lines and line totals.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, shared.NewValidationError("id", "inválido")
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv := Invoice{Sale: sale, Lines: make([]InvoiceLine, 0, len(sale.Lines)), Total: sale.Total}
	for _, line := range sale.Lines {
		inv.Lines = append(inv.Lines, InvoiceLine{SaleLine: line, LineTotal: line.Subtotal()})
	}
	inv.Sale.Lines = nil
	return inv, nil
}

// ListSales returns sales newest first.
func (s *Service) ListSales(ctx context.Context, page, perPage int) ([]Sale, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListSales(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

func sellLine(ctx context.Context, tx TxRepository, saleID int64, line LineInput) (SaleLine, error) {
	product, err := tx.GetProductForUpdate(ctx, line.ProductID)
	if err != nil {
		return SaleLine{}, err
	}
	if line.Quantity > product.Stock {
		return SaleLine{}, &shared.InsufficientStockError{
			ProductID: product.ID,
			Requested: line.Quantity,
			Available: product.Stock,
		}
	}
	allocations, err := inventory.NewLedger(tx).Consume(ctx, product.ID, line.Quantity)
	if err != nil {
		return SaleLine{}, err
	}
	product.Stock -= line.Quantity
	if err := catalog.ValidateProduct(product); err != nil {
		return SaleLine{}, err
	}
	if err := tx.SaveProductStock(ctx, product); err != nil {
		return SaleLine{}, err
	}
	recorded, err := tx.InsertSaleLine(ctx, SaleLine{
		SaleID:       saleID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductBrand: product.Brand,
		Quantity:     line.Quantity,
		UnitPrice:    product.SalePrice,
	})
	if err != nil {
		return SaleLine{}, err
	}
	recorded.Allocations = allocations
	return recorded, nil
}

func refreshTotal(ctx context.Context, tx TxRepository, saleID int64) (decimal.Decimal, error) {
	lines, err := tx.ListSaleLines(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	total := SaleTotal(lines)
	if err := tx.UpdateSaleTotal(ctx, saleID, total); err != nil {
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
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// lock takes each distinct product lock once, in ascending id order.
func (s *Service) lock(ctx context.Context, productIDs []int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range distinctSorted(productIDs) {
		release, err := s.locker.Lock(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func distinctSorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

func (s *Service) claimKey(ctx context.Context, key string) error {
	if s.idempotency == nil {
		return nil
	}
	if err := shared.ValidateIdempotencyKey(key); err != nil {
		return err
	}
	return s.idempotency.CheckAndInsert(ctx, key, idempotencyModule)
}

// releaseKey frees the key of a request that failed so the client can retry it.
func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Warn("sales idempotency release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) observe(lines ...SaleLine) {
	if s.metrics == nil {
		return
	}
	for _, line := range lines {
		s.metrics.ObserveMovement(observability.MovementSale, line.Quantity)
	}
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, shared.ErrStockBusy):
		reason = "busy"
	case errors.Is(err, shared.ErrValidation):
		reason = "validation"
	case errors.Is(err, shared.ErrNotFound):
		reason = "not_found"
	}
	s.metrics.ObserveRejected(observability.MovementSale, reason)
}

func (s *Service) recordAudit(ctx context.Context, action string, saleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.OperatorFromContext(ctx),
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(saleID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("sales audit failed", slog.Int64("sale_id", saleID), slog.Any("error", err))
	}
}
