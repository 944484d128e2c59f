package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a precondition on input or entity state failed.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates a sale would take more units than are available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockBusy indicates another movement holds the product lock.
	ErrStockBusy = errors.New("stock movement in progress")
)

// ValidationError carries field level messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientStockError reports the requested and available quantities.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: product %d requested %d available %d", ErrInsufficientStock.Error(), e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// UserSafeMessage returns a message that can be shown to the operator.
func UserSafeMessage(err error) string {
	var vErr *ValidationError
	var sErr *InsufficientStockError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.As(err, &sErr):
		return fmt.Sprintf("Stock insuficiente: pedido %d, disponível %d", sErr.Requested, sErr.Available)
	case errors.Is(err, ErrNotFound):
		return "Registo não encontrado"
	case errors.Is(err, ErrStockBusy):
		return "Outro movimento de stock está em curso, tente novamente"
	default:
		return "Ocorreu um erro inesperado"
	}
}
