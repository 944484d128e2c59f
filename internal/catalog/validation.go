package catalog

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateProduct checks the invariants a product must hold before every persist.
func ValidateProduct(p Product) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "obrigatório"
	}
	if strings.TrimSpace(p.Brand) == "" {
		fields["brand"] = "obrigatório"
	}
	if p.CategoryID <= 0 {
		fields["category_id"] = "obrigatório"
	}
	if p.SalePrice.IsNegative() {
		fields["sale_price"] = "não pode ser negativo"
	}
	if p.AvgCost.IsNegative() {
		fields["avg_cost"] = "não pode ser negativo"
	}
	if p.Stock < 0 {
		fields["stock"] = "não pode ser negativo"
	}
	if p.MinStock < 0 {
		fields["min_stock"] = "não pode ser negativo"
	}
	if p.AvgCost.IsPositive() && p.SalePrice.LessThan(p.AvgCost) {
		fields["sale_price"] = "preço de venda (" + shared.FormatMoney(p.SalePrice) + ") abaixo do custo médio (" + shared.FormatMoney(p.AvgCost) + ")"
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// validateStruct runs tag validation and converts failures to a ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &shared.ValidationError{Fields: fields}
}
