package api

import (
	"context"
	"fmt"
	"net/http"
)

// RecurringService manages recurring transactions.
type RecurringService struct {
	d Doer
}

func (s *RecurringService) List(ctx context.Context, skip, limit int) ([]RecurringTransaction, error) {
	var out []RecurringTransaction
	path := fmt.Sprintf("/api/recurring-transactions?skip=%d&limit=%d", skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return out, nil
}

// ListPending returns recurring transactions due for execution.
func (s *RecurringService) ListPending(ctx context.Context) ([]RecurringTransaction, error) {
	var out []RecurringTransaction
	if err := s.d.Request(ctx, http.MethodGet, "/api/recurring-transactions/pending", nil, &out); err != nil {
		return nil, fmt.Errorf("list pending recurring transactions: %w", err)
	}
	return out, nil
}

func (s *RecurringService) Get(ctx context.Context, id int64) (*RecurringTransaction, error) {
	var out RecurringTransaction
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/recurring-transactions/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get recurring transaction %d: %w", id, err)
	}
	return &out, nil
}

func (s *RecurringService) Create(ctx context.Context, in RecurringTransactionCreate) (*RecurringTransaction, error) {
	var out RecurringTransaction
	if err := s.d.Request(ctx, http.MethodPost, "/api/recurring-transactions", in, &out); err != nil {
		return nil, fmt.Errorf("create recurring transaction: %w", err)
	}
	return &out, nil
}

func (s *RecurringService) Update(ctx context.Context, id int64, in RecurringTransactionUpdate) (*RecurringTransaction, error) {
	var out RecurringTransaction
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/recurring-transactions/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update recurring transaction %d: %w", id, err)
	}
	return &out, nil
}

func (s *RecurringService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/recurring-transactions/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete recurring transaction %d: %w", id, err)
	}
	return nil
}

func (s *RecurringService) Deactivate(ctx context.Context, id int64) (*RecurringTransaction, error) {
	var out RecurringTransaction
	path := fmt.Sprintf("/api/recurring-transactions/%d/deactivate", id)
	if err := s.d.Request(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("deactivate recurring transaction %d: %w", id, err)
	}
	return &out, nil
}

func (s *RecurringService) Activate(ctx context.Context, id int64) (*RecurringTransaction, error) {
	var out RecurringTransaction
	path := fmt.Sprintf("/api/recurring-transactions/%d/activate", id)
	if err := s.d.Request(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("activate recurring transaction %d: %w", id, err)
	}
	return &out, nil
}

// Execute books the recurring transaction immediately and returns the
// created transaction.
func (s *RecurringService) Execute(ctx context.Context, id int64) (*Transaction, error) {
	var out Transaction
	path := fmt.Sprintf("/api/recurring-transactions/%d/execute", id)
	if err := s.d.Request(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("execute recurring transaction %d: %w", id, err)
	}
	return &out, nil
}
