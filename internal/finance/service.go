package finance

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gestao-cosmeticos/gestao/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records expenses and extra revenues.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the finance service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// RecordExpense stores an outflow that is not a purchase.
func (s *Service) RecordExpense(ctx context.Context, in EntryInput) (Entry, error) {
	return s.record(ctx, KindExpense, in)
}

// RecordRevenue stores an inflow that is not a sale.
func (s *Service) RecordRevenue(ctx context.Context, in EntryInput) (Entry, error) {
	return s.record(ctx, KindRevenue, in)
}

// ListExpenses returns expenses dated inside period, newest first.
func (s *Service) ListExpenses(ctx context.Context, period shared.Period) ([]Entry, error) {
	return s.repo.List(ctx, KindExpense, period)
}

// ListRevenues returns extra revenues dated inside period, newest first.
func (s *Service) ListRevenues(ctx context.Context, period shared.Period) ([]Entry, error) {
	return s.repo.List(ctx, KindRevenue, period)
}

func (s *Service) record(ctx context.Context, kind Kind, in EntryInput) (Entry, error) {
	fields := map[string]string{}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		fields["description"] = "obrigatório"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "deve ser maior que zero"
	}
	if len(fields) > 0 {
		return Entry{}, &shared.ValidationError{Fields: fields}
	}
	date := in.Date
	if date.IsZero() {
		date = shared.Today(s.now())
	}
	entry, err := s.repo.Insert(ctx, Entry{
		Kind:        kind,
		Description: desc,
		Amount:      shared.RoundMoney(in.Amount),
		Date:        date,
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, entry)
	return entry, nil
}

func (s *Service) recordAudit(ctx context.Context, entry Entry) {
	if s.audit == nil {
		return
	}
	action := shared.AuditExpenseRecorded
	if entry.Kind == KindRevenue {
		action = shared.AuditRevenueRecorded
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.OperatorFromContext(ctx),
		Action:   action,
		Entity:   string(entry.Kind),
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"amount": entry.Amount.StringFixed(shared.MoneyPlaces)},
	})
	if err != nil {
		s.logger.Warn("finance audit failed", slog.Int64("entry_id", entry.ID), slog.Any("error", err))
	}
}
