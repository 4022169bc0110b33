package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TransactionsService manages transactions of the active workspace.
type TransactionsService struct {
	d Doer
}

func (s *TransactionsService) List(ctx context.Context, skip, limit int) ([]Transaction, error) {
	var out []Transaction
	path := fmt.Sprintf("/api/transactions?skip=%d&limit=%d", skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// ListByAccount returns the transactions touching one account.
func (s *TransactionsService) ListByAccount(ctx context.Context, accountID int64, skip, limit int) ([]Transaction, error) {
	var out []Transaction
	path := fmt.Sprintf("/api/transactions/account/%d?skip=%d&limit=%d", accountID, skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list account %d transactions: %w", accountID, err)
	}
	return out, nil
}

// ListByPeriod returns the transactions inside [start, end], optionally
// filtered by type. Pass an empty transactionType for no filter.
func (s *TransactionsService) ListByPeriod(ctx context.Context, start, end time.Time, transactionType TransactionType) ([]Transaction, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	if transactionType != "" {
		q.Set("transaction_type", string(transactionType))
	}

	var out []Transaction
	if err := s.d.Request(ctx, http.MethodGet, "/api/transactions/period?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("list transactions by period: %w", err)
	}
	return out, nil
}

func (s *TransactionsService) Get(ctx context.Context, id int64) (*Transaction, error) {
	var out Transaction
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/transactions/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &out, nil
}

func (s *TransactionsService) Create(ctx context.Context, in TransactionCreate) (*Transaction, error) {
	var out Transaction
	if err := s.d.Request(ctx, http.MethodPost, "/api/transactions", in, &out); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return &out, nil
}

// Transfer creates a transfer transaction between two accounts.
func (s *TransactionsService) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount Decimal, description *string, date time.Time) (*Transaction, error) {
	in := TransactionCreate{
		Type:            TransactionTransfer,
		AccountID:       fromAccountID,
		TargetAccountID: &toAccountID,
		Amount:          amount,
		Description:     description,
		TransactionDate: date,
	}
	out, err := s.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("transfer %s from %d to %d: %w", string(amount), fromAccountID, toAccountID, err)
	}
	return out, nil
}

func (s *TransactionsService) Update(ctx context.Context, id int64, in TransactionUpdate) (*Transaction, error) {
	var out Transaction
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return &out, nil
}

func (s *TransactionsService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}
