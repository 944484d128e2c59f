package shared

import "context"

type operatorContextKey struct{}

// ContextWithOperator stores the authenticated operator id in context.
func ContextWithOperator(ctx context.Context, operatorID int64) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, operatorID)
}

// OperatorFromContext extracts the operator id, zero when absent.
func OperatorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(operatorContextKey{}).(int64)
	return id
}
