package api

import (
	"context"
	"fmt"
	"net/http"
)

// AccountsService manages the accounts of the active workspace.
type AccountsService struct {
	d Doer
}

func (s *AccountsService) List(ctx context.Context, skip, limit int) ([]Account, error) {
	var out []Account
	path := fmt.Sprintf("/api/accounts?skip=%d&limit=%d", skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (s *AccountsService) Get(ctx context.Context, id int64) (*Account, error) {
	var out Account
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/accounts/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return &out, nil
}

func (s *AccountsService) Create(ctx context.Context, in AccountCreate) (*Account, error) {
	var out Account
	if err := s.d.Request(ctx, http.MethodPost, "/api/accounts", in, &out); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &out, nil
}

func (s *AccountsService) Update(ctx context.Context, id int64, in AccountUpdate) (*Account, error) {
	var out Account
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update account %d: %w", id, err)
	}
	return &out, nil
}

func (s *AccountsService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return nil
}
