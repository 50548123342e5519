package operations

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/errors"
)

// Totals aggregates completed volume over a window.
type Totals struct {
	Count     int             `json:"count"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	AmountPEN decimal.Decimal `json:"amount_pen"`
}

// Stats is the dashboard snapshot for a month.
type Stats struct {
	Month          int            `json:"month"`
	Year           int            `json:"year"`
	Today          Totals         `json:"today"`
	MonthTotals    Totals         `json:"month_totals"`
	PurchasesMonth Totals         `json:"purchases_month"`
	SalesMonth     Totals         `json:"sales_month"`
	ByStatus       map[string]int `json:"by_status"`
	Pending        int            `json:"pending"`
	InProcess      int            `json:"in_process"`
	ClientsServed  int            `json:"clients_served"`
	ActiveClients  int            `json:"active_clients"`
}

// DashboardStats aggregates the month's operations. Completed operations
// count toward volume totals; every status counts toward the breakdown.
func (s *Service) DashboardStats(ctx context.Context, month, year int) (Stats, error) {
	if month < 1 || month > 12 {
		return Stats{}, errors.Validation("invalid month %d", month)
	}
	if year < 2000 || year > 2200 {
		return Stats{}, errors.Validation("invalid year %d", year)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	ops, err := s.store.ListOperationsBetween(ctx, from, to)
	if err != nil {
		return Stats{}, err
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := Stats{
		Month:          month,
		Year:           year,
		Today:          zeroTotals(),
		MonthTotals:    zeroTotals(),
		PurchasesMonth: zeroTotals(),
		SalesMonth:     zeroTotals(),
		ByStatus:       map[string]int{},
	}
	seen := map[int64]struct{}{}
	for _, op := range ops {
		stats.ByStatus[string(op.Status)]++
		seen[op.ClientID] = struct{}{}
		switch op.Status {
		case operation.StatusPending:
			stats.Pending++
		case operation.StatusInProcess:
			stats.InProcess++
		}
		if op.Status != operation.StatusCompleted {
			continue
		}
		add(&stats.MonthTotals, op)
		if op.Kind == operation.KindPurchase {
			add(&stats.PurchasesMonth, op)
		} else {
			add(&stats.SalesMonth, op)
		}
		if !op.CreatedAt.Before(dayStart) && op.CreatedAt.Before(dayStart.AddDate(0, 0, 1)) {
			add(&stats.Today, op)
		}
	}
	stats.ClientsServed = len(seen)

	active, err := s.store.ListActiveClients(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.ActiveClients = len(active)
	return stats, nil
}

func zeroTotals() Totals {
	return Totals{AmountUSD: decimal.Zero, AmountPEN: decimal.Zero}
}

func add(t *Totals, op operation.Operation) {
	t.Count++
	t.AmountUSD = t.AmountUSD.Add(op.AmountUSD)
	t.AmountPEN = t.AmountPEN.Add(op.AmountPEN)
}
