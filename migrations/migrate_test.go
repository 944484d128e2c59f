package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesAreOrderedSQLFiles(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "001_schema.sql", names[0])
}

func TestSchemaDeclaresCoreTables(t *testing.T) {
	body, err := files.ReadFile("001_schema.sql")
	require.NoError(t, err)
	for _, table := range []string{
		"categories", "suppliers", "products", "purchases", "purchase_lines",
		"sales", "sale_lines", "expenses", "extra_revenues", "audit_logs", "idempotency_keys",
	} {
		require.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestSaleOperatorIsNotForeignKey(t *testing.T) {
	body, err := files.ReadFile("001_schema.sql")
	require.NoError(t, err)
	schema := string(body)
	start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS sales (")
	require.GreaterOrEqual(t, start, 0)
	table := schema[start:]
	table = table[:strings.Index(table, ");")]

	var column string
	for _, line := range strings.Split(table, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "operator_id") {
			column = line
		}
	}
	require.NotEmpty(t, column)
	require.NotContains(t, column, "REFERENCES")
	require.NotContains(t, schema, "TABLE IF NOT EXISTS operators")
}
