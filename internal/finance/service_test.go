package finance

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

type memoryRepo struct {
	entries []Entry
}

func (m *memoryRepo) Insert(_ context.Context, e Entry) (Entry, error) {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memoryRepo) List(_ context.Context, kind Kind, p shared.Period) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.Kind == kind && p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func TestRecordEntries(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 17, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	exp, err := svc.RecordExpense(ctx, EntryInput{Description: " Renda ", Amount: decimal.RequireFromString("1500.005")})
	require.NoError(t, err)
	require.Equal(t, KindExpense, exp.Kind)
	require.Equal(t, "Renda", exp.Description)
	require.Equal(t, "1500.01", exp.Amount.StringFixed(2))
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), exp.Date)

	_, err = svc.RecordRevenue(ctx, EntryInput{Description: "Comissão", Amount: decimal.NewFromInt(200), Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	march, err := shared.ParsePeriod("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	revenues, err := svc.ListRevenues(ctx, march)
	require.NoError(t, err)
	require.Empty(t, revenues)
	expenses, err := svc.ListExpenses(ctx, march)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
}

func TestRecordEntryValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	_, err := svc.RecordExpense(context.Background(), EntryInput{Amount: decimal.Zero})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "description")
	require.Contains(t, vErr.Fields, "amount")
}

func TestHandlerCreateAndList(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revenues", strings.NewReader(`{"description":"Serviço","amount":"75.50","date":"2026-04-02"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenues?from=2026-04-01&to=2026-04-30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"amount":"75.5"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses?from=2026-04-10&to=2026-04-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
