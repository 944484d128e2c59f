package db

import (
	"fmt"
	"strings"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// PeriodFilter appends the half-open bounds of p on column to args and returns
// the matching SQL predicate, or "TRUE" for an unbounded period.
func PeriodFilter(column string, p shared.Period, args []any) (string, []any) {
	var parts []string
	if !p.From.IsZero() {
		args = append(args, p.From)
		parts = append(parts, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if !p.To.IsZero() {
		args = append(args, p.To)
		parts = append(parts, fmt.Sprintf("%s < $%d", column, len(args)))
	}
	if len(parts) == 0 {
		return "TRUE", args
	}
	return strings.Join(parts, " AND "), args
}
