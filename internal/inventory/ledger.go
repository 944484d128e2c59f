package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// LotStore is the persistence needed by Ledger. Implementations run inside
// the caller's transaction and lock the rows returned by ListOpenLotsForUpdate.
type LotStore interface {
	InsertLot(ctx context.Context, lot Lot) (int64, error)
	ListOpenLotsForUpdate(ctx context.Context, productID int64) ([]Lot, error)
	UpdateLotRemaining(ctx context.Context, lotID int64, remaining int) error
}

// Ledger tracks and depletes purchase lots under FEFO.
type Ledger struct {
	store LotStore
}

// NewLedger binds a ledger to a transactional store.
func NewLedger(store LotStore) *Ledger {
	return &Ledger{store: store}
}

// AddLot appends a new lot whose remaining quantity equals the received quantity.
func (l *Ledger) AddLot(ctx context.Context, in NewLot) (Lot, error) {
	if in.ProductID == 0 {
		return Lot{}, shared.NewValidationError("product_id", "required")
	}
	if in.Quantity <= 0 {
		return Lot{}, ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() {
		return Lot{}, ErrInvalidUnitCost
	}
	if in.ExpiryDate.IsZero() {
		return Lot{}, ErrExpiryRequired
	}
	lot := Lot{
		PurchaseID: in.PurchaseID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		UnitCost:   shared.RoundMoney(in.UnitCost),
		ExpiryDate: dateOnly(in.ExpiryDate),
		Remaining:  in.Quantity,
		Batch:      in.Batch,
	}
	id, err := l.store.InsertLot(ctx, lot)
	if err != nil {
		return Lot{}, fmt.Errorf("inventory: insert lot: %w", err)
	}
	lot.ID = id
	return lot, nil
}

// Consume takes qty units from the product's open lots, earliest expiry first.
// Nothing is written when the lots cannot cover qty.
func (l *Ledger) Consume(ctx context.Context, productID int64, qty int) ([]Allocation, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	lots, err := l.store.ListOpenLotsForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("inventory: load lots: %w", err)
	}
	plan, err := PlanFEFO(lots, qty)
	if err != nil {
		var stockErr *shared.InsufficientStockError
		if errors.As(err, &stockErr) {
			stockErr.ProductID = productID
		}
		return nil, err
	}
	for _, a := range plan {
		if err := l.store.UpdateLotRemaining(ctx, a.LotID, a.Remaining); err != nil {
			return nil, fmt.Errorf("inventory: update lot %d: %w", a.LotID, err)
		}
	}
	return plan, nil
}

// PlanFEFO computes the allocations needed to take qty units without mutating lots.
func PlanFEFO(lots []Lot, qty int) ([]Allocation, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	open := make([]Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.Remaining > 0 {
			open = append(open, lot)
		}
	}
	SortFEFO(open)
	if available := TotalRemaining(open); available < qty {
		return nil, &shared.InsufficientStockError{Requested: qty, Available: available}
	}
	need := qty
	plan := make([]Allocation, 0, len(open))
	for _, lot := range open {
		if need == 0 {
			break
		}
		take := min(lot.Remaining, need)
		need -= take
		plan = append(plan, Allocation{
			LotID:      lot.ID,
			ExpiryDate: lot.ExpiryDate,
			Taken:      take,
			Remaining:  lot.Remaining - take,
		})
	}
	return plan, nil
}

// SortFEFO orders lots by expiry date, then by id.
func SortFEFO(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ExpiryDate.Equal(lots[j].ExpiryDate) {
			return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
		}
		return lots[i].ID < lots[j].ID
	})
}

// TotalRemaining sums the remaining units across lots.
func TotalRemaining(lots []Lot) int {
	total := 0
	for _, lot := range lots {
		if lot.Remaining > 0 {
			total += lot.Remaining
		}
	}
	return total
}
