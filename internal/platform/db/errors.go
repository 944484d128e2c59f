package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// PostgreSQL error codes the repositories translate.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"
)

// MapError translates driver errors into shared domain errors. entity names the
// record being read or written and is used in messages.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, shared.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case CodeForeignKeyViolation:
		return fmt.Errorf("%s: referenced record (%s): %w", entity, pgErr.ConstraintName, shared.ErrNotFound)
	case CodeUniqueViolation:
		return shared.NewValidationError(entity, "já existe um registo com estes dados")
	case CodeCheckViolation:
		return shared.NewValidationError(entity, "viola a restrição "+pgErr.ConstraintName)
	}
	return err
}
