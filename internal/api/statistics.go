package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// StatisticsService reads aggregated balances and period summaries.
type StatisticsService struct {
	d Doer
}

// Balances returns the balance of every account in the active workspace.
func (s *StatisticsService) Balances(ctx context.Context) ([]AccountBalance, error) {
	var out []AccountBalance
	if err := s.d.Request(ctx, http.MethodGet, "/api/statistics/balance", nil, &out); err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return out, nil
}

func (s *StatisticsService) AccountBalance(ctx context.Context, accountID int64) (*AccountBalance, error) {
	var out AccountBalance
	path := fmt.Sprintf("/api/statistics/balance/%d", accountID)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get balance of account %d: %w", accountID, err)
	}
	return &out, nil
}

// TotalBalance returns the combined balance converted to currency.
func (s *StatisticsService) TotalBalance(ctx context.Context, currency string) (*TotalBalance, error) {
	q := url.Values{}
	if currency != "" {
		q.Set("currency", currency)
	}
	path := "/api/statistics/total"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var out TotalBalance
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get total balance: %w", err)
	}
	return &out, nil
}

// Summary returns income/expense statistics for [start, end], optionally
// restricted to accountIDs and converted to currency.
func (s *StatisticsService) Summary(ctx context.Context, start, end time.Time, accountIDs []int64, currency string) (*PeriodStatistics, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	for _, id := range accountIDs {
		q.Add("account_ids", strconv.FormatInt(id, 10))
	}
	if currency != "" {
		q.Set("currency", currency)
	}

	var out PeriodStatistics
	if err := s.d.Request(ctx, http.MethodGet, "/api/statistics/summary?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("get period statistics: %w", err)
	}
	return &out, nil
}
